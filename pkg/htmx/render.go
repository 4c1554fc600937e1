package htmx

import (
	"context"
	"io"
	"net/http"
)

// SwapStrategy is an hx-swap value.
type SwapStrategy string

const (
	SwapInnerHTML SwapStrategy = "innerHTML"
	SwapOuterHTML SwapStrategy = "outerHTML"
	SwapDelete    SwapStrategy = "delete"
	SwapNone      SwapStrategy = "none"
)

// Renderable is an out-of-band fragment. templ.Component satisfies it.
type Renderable interface {
	Render(ctx context.Context, w io.Writer) error
}

// Config collects the headers and out-of-band fragments of one HTMX render.
type Config struct {
	OOBComponents []Renderable
	Retarget      string
	Reswap        SwapStrategy
	PushURL       string
	Triggers      []string
	Refresh       bool
}

// RenderOption configures an HTMX render.
type RenderOption func(*Config)

// NewConfig applies opts to an empty Config.
func NewConfig(opts ...RenderOption) *Config {
	cfg := &Config{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// ApplyHeaders writes the configured headers. It must run before the
// status line is sent.
func (c *Config) ApplyHeaders(w http.ResponseWriter) {
	if c == nil {
		return
	}
	h := w.Header()
	for name, value := range map[string]string{
		HeaderHXRetarget: c.Retarget,
		HeaderHXReswap:   string(c.Reswap),
		HeaderHXPushURL:  c.PushURL,
	} {
		if value != "" {
			h.Set(name, value)
		}
	}
	addTriggers(h, c.Triggers)
	if c.Refresh {
		h.Set(HeaderHXRefresh, "true")
	}
}

// WithOOB renders components after the main one. Each needs an id and an
// hx-swap-oob attribute.
func WithOOB(components ...Renderable) RenderOption {
	return func(c *Config) { c.OOBComponents = append(c.OOBComponents, components...) }
}

// WithRetarget swaps the response into selector instead of the request target.
func WithRetarget(selector string) RenderOption {
	return func(c *Config) { c.Retarget = selector }
}

// WithReswap overrides the swap strategy of the request.
func WithReswap(strategy SwapStrategy) RenderOption {
	return func(c *Config) { c.Reswap = strategy }
}

// WithPushURL pushes url into the browser history, e.g. the current search
// of a list page.
func WithPushURL(url string) RenderOption {
	return func(c *Config) { c.PushURL = url }
}

// WithTrigger fires client-side events once the response arrives.
func WithTrigger(events ...string) RenderOption {
	return func(c *Config) { c.Triggers = append(c.Triggers, events...) }
}

// WithRefresh asks htmx to reload the whole page.
func WithRefresh() RenderOption {
	return func(c *Config) { c.Refresh = true }
}
