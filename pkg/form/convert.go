package form

import (
	"fmt"
	"net/mail"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrymomot/crudforge/pkg/field"
	"github.com/dmitrymomot/crudforge/pkg/sanitizer"
)

// Convert turns a raw submitted string into the Go value of f's type and
// validates it. A nil value with no errors means "empty".
func Convert(f field.Field, raw string) (any, []string) {
	if f.Type == field.TypeBoolean {
		return parseBool(raw), nil
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		if f.Required {
			return nil, []string{MsgRequired}
		}
		return nil, nil
	}

	switch f.Type {
	case field.TypeText, field.TypeTextarea:
		s := sanitizer.Text(raw)
		if f.Type == field.TypeTextarea {
			s = strings.TrimSpace(sanitizer.StripHTML(raw))
		}
		if s == "" && f.Required {
			return nil, []string{MsgRequired}
		}
		if errs := checkLength(f, s); errs != nil {
			return nil, errs
		}
		return s, nil

	case field.TypeEmail:
		s := sanitizer.Email(raw)
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return nil, []string{MsgEmail}
		}
		if errs := checkLength(f, s); errs != nil {
			return nil, errs
		}
		return s, nil

	case field.TypeInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, []string{MsgInteger}
		}
		return n, nil

	case field.TypeNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, []string{MsgNumber}
		}
		return n, nil

	case field.TypeDate:
		t, err := time.Parse(field.DateLayout, raw)
		if err != nil {
			return nil, []string{MsgDate}
		}
		return t, nil

	case field.TypeDateTime:
		t, err := time.Parse(field.DateTimeLayout, raw)
		if err != nil {
			return nil, []string{MsgDateTime}
		}
		return t, nil

	case field.TypeChoice:
		if !slices.ContainsFunc(f.Choices, func(c field.Choice) bool { return c.Value == raw }) {
			return nil, []string{MsgChoice}
		}
		return raw, nil
	}

	return raw, nil
}

func checkLength(f field.Field, s string) []string {
	if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
		return []string{fmt.Sprintf(MsgTooLong, f.MaxLength)}
	}
	return nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false", "off", "no":
		return false
	}
	return true
}
