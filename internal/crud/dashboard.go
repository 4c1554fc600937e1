package crud

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/crudforge/internal"
)

// Dashboard groups the CRUD controllers of one admin area and serves its
// landing page.
type Dashboard struct {
	services    Services
	opts        []Option
	log         *slog.Logger
	cfg         DashboardConfig
	controllers []*Controller
}

// NewDashboard creates an empty dashboard. Every controller added to it
// shares services and opts.
func NewDashboard(services Services, opts ...Option) (*Dashboard, error) {
	if err := services.validate(); err != nil {
		return nil, err
	}
	if services.Events == nil {
		services.Events = NewDispatcher()
	}
	o := buildOptions(opts)
	return &Dashboard{
		services: services,
		opts:     opts,
		log:      o.log,
		cfg:      o.dashboard,
	}, nil
}

// Config returns the dashboard configuration.
func (d *Dashboard) Config() DashboardConfig { return d.cfg }

// Events returns the dispatcher shared by every controller.
func (d *Dashboard) Events() *Dispatcher { return d.services.Events }

// Controllers returns the controllers in registration order.
func (d *Dashboard) Controllers() []*Controller {
	return append([]*Controller(nil), d.controllers...)
}

// Add registers one controller per configurator. Each entity may be
// configured once.
func (d *Dashboard) Add(cfgs ...Configurator) error {
	opts := append(append([]Option(nil), d.opts...), withMenu(d.menu))
	for _, cfg := range cfgs {
		c, err := NewController(cfg, d.services, opts...)
		if err != nil {
			return err
		}
		for _, existing := range d.controllers {
			if existing.crud.Entity == c.crud.Entity || existing.crud.Path == c.crud.Path {
				return fmt.Errorf("%w: %s", ErrDuplicateCrud, c.crud.Entity)
			}
		}
		d.controllers = append(d.controllers, c)
		d.log.Debug("crud registered",
			slog.String("entity", c.crud.Entity),
			slog.String("path", c.urls.Index()),
		)
	}
	return nil
}

// Routes registers the dashboard page and every controller.
func (d *Dashboard) Routes(r internal.Router) {
	if d.cfg.Prefix == "" {
		d.routes(r)
		return
	}
	r.Route(d.cfg.Prefix, d.routes)
}

func (d *Dashboard) routes(r internal.Router) {
	r.GET("/", d.Index)
	for _, c := range d.controllers {
		c.routes(r)
	}
}

// Index renders the dashboard landing page.
func (d *Dashboard) Index(ctx internal.Context) error {
	menu := d.menu("")
	params := map[string]any{
		"action":    ActionDashboard,
		"dashboard": DashboardView{Title: d.cfg.Title, URL: d.cfg.URL()},
		"menu":      menu,
		"cruds":     menu,
	}
	var buf bytes.Buffer
	if err := d.services.Renderer.Render(ctx.Context(), &buf, TemplateDashboard, params); err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, templ.Raw(buf.String()))
}

func (d *Dashboard) menu(active string) []MenuItem {
	items := make([]MenuItem, 0, len(d.controllers))
	for _, c := range d.controllers {
		if !c.crud.IsEnabled(ActionIndex) {
			continue
		}
		items = append(items, MenuItem{
			Label:  c.crud.PluralLabel,
			URL:    c.urls.Index(),
			Active: c.crud.Entity == active,
		})
	}
	return items
}
