package render

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/flosch/pongo2/v6"

	"github.com/dmitrymomot/crudforge/pkg/logger"
)

//go:embed templates
var embedded embed.FS

// DefaultExtension is appended to template paths that have no extension.
const DefaultExtension = ".html"

// Defaults returns the embedded default templates.
func Defaults() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

type config struct {
	log        *slog.Logger
	globals    map[string]any
	filters    map[string]pongo2.FilterFunction
	overrides  []fs.FS
	dir        string
	extension  string
	noDefaults bool
}

// Option configures an Engine.
type Option func(*config)

// WithDir loads templates from a directory on disk before the defaults.
func WithDir(dir string) Option {
	return func(c *config) { c.dir = strings.TrimSpace(dir) }
}

// WithFS loads templates from fsys before the defaults. Later calls take
// precedence over earlier ones.
func WithFS(fsys fs.FS) Option {
	return func(c *config) {
		if fsys != nil {
			c.overrides = append([]fs.FS{fsys}, c.overrides...)
		}
	}
}

// WithoutDefaults disables the embedded templates.
func WithoutDefaults() Option {
	return func(c *config) { c.noDefaults = true }
}

// WithExtension overrides DefaultExtension.
func WithExtension(ext string) Option {
	return func(c *config) {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.extension = ext
	}
}

// WithGlobals seeds values visible to every template.
func WithGlobals(values map[string]any) Option {
	return func(c *config) {
		if c.globals == nil {
			c.globals = make(map[string]any, len(values))
		}
		maps.Copy(c.globals, values)
	}
}

// WithFilter registers a pongo2 filter. pongo2 filters are process wide;
// a name that is already registered is left untouched.
func WithFilter(name string, fn pongo2.FilterFunction) Option {
	return func(c *config) {
		if c.filters == nil {
			c.filters = make(map[string]pongo2.FilterFunction)
		}
		c.filters[strings.TrimSpace(name)] = fn
	}
}

// WithLogger sets the logger used for template diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// Engine renders templates resolved by path.
type Engine struct {
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
	log       *slog.Logger
	sources   []fs.FS
	ext       string
	mu        sync.RWMutex
}

// New creates an Engine.
func New(opts ...Option) (*Engine, error) {
	cfg := &config{extension: DefaultExtension, log: logger.NewNope()}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	var (
		loaders []pongo2.TemplateLoader
		sources []fs.FS
	)
	if cfg.dir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.dir)
		if err != nil {
			return nil, fmt.Errorf("render: create local loader: %w", err)
		}
		loaders = append(loaders, loader)
		sources = append(sources, os.DirFS(cfg.dir))
	}
	for _, fsys := range cfg.overrides {
		loaders = append(loaders, pongo2.NewFSLoader(fsys))
		sources = append(sources, fsys)
	}
	if !cfg.noDefaults {
		defaults := Defaults()
		loaders = append(loaders, pongo2.NewFSLoader(defaults))
		sources = append(sources, defaults)
	}
	if len(loaders) == 0 {
		return nil, ErrNoTemplates
	}

	set := pongo2.NewSet("crudforge", loaders...)
	if set.Globals == nil {
		set.Globals = make(pongo2.Context)
	}
	set.Globals.Update(pongo2.Context(cfg.globals))

	for name, fn := range cfg.filters {
		if name == "" || fn == nil || pongo2.FilterExists(name) {
			continue
		}
		if err := pongo2.RegisterFilter(name, fn); err != nil {
			return nil, fmt.Errorf("render: register filter %q: %w", name, err)
		}
	}

	return &Engine{
		set:       set,
		templates: make(map[string]*pongo2.Template),
		log:       cfg.log,
		sources:   sources,
		ext:       cfg.extension,
	}, nil
}

// Exists reports whether path resolves to a template.
func (e *Engine) Exists(path string) bool {
	_, ok := e.resolve(e.filename(path))
	return ok
}

// Render executes the template at path with params and writes the output
// to w. Nothing is written when execution fails.
func (e *Engine) Render(ctx context.Context, w io.Writer, path string, params map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := e.filename(path)
	tmpl, err := e.template(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(pongo2.Context(params), &buf); err != nil {
		e.log.ErrorContext(ctx, "template execution failed",
			slog.String("template", name), slog.String("error", err.Error()))
		return errors.Join(ErrRenderFailed, fmt.Errorf("%q: %w", name, err))
	}
	_, err = buf.WriteTo(w)
	return err
}

// RenderString renders an inline template source.
func (e *Engine) RenderString(ctx context.Context, w io.Writer, source string, params map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmpl, err := e.set.FromString(source)
	if err != nil {
		return fmt.Errorf("render: parse template string: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(pongo2.Context(params), &buf); err != nil {
		return errors.Join(ErrRenderFailed, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// Component adapts the template at path to a templ.Component.
func (e *Engine) Component(path string, params map[string]any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return e.Render(ctx, w, path, params)
	})
}

func (e *Engine) filename(path string) string {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	if !strings.HasSuffix(path, e.ext) {
		path += e.ext
	}
	return path
}

func (e *Engine) resolve(name string) (fs.FS, bool) {
	for _, src := range e.sources {
		if info, err := fs.Stat(src, name); err == nil && !info.IsDir() {
			return src, true
		}
	}
	return nil, false
}

func (e *Engine) template(name string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.templates[name]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.templates[name]; ok {
		return tmpl, nil
	}
	if _, ok := e.resolve(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	tmpl, err := e.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("render: load template %q: %w", name, err)
	}
	e.templates[name] = tmpl
	return tmpl, nil
}
