package htmx

import (
	"net/http"
	"strings"
)

// Request headers.
const (
	HeaderHXRequest    = "HX-Request"
	HeaderHXCurrentURL = "HX-Current-URL"
	HeaderHXTarget     = "HX-Target"
)

// Response headers.
const (
	HeaderHXPushURL  = "HX-Push-Url"
	HeaderHXRedirect = "HX-Redirect"
	HeaderHXRefresh  = "HX-Refresh"
	HeaderHXReswap   = "HX-Reswap"
	HeaderHXRetarget = "HX-Retarget"
	HeaderHXTrigger  = "HX-Trigger"
)

// IsHTMX reports whether r was sent by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get(HeaderHXRequest) == "true"
}

// addTriggers appends events to the HX-Trigger header already in h.
func addTriggers(h http.Header, events []string) {
	if len(events) == 0 {
		return
	}
	if prev := h.Get(HeaderHXTrigger); prev != "" {
		events = append([]string{prev}, events...)
	}
	h.Set(HeaderHXTrigger, strings.Join(events, ", "))
}
