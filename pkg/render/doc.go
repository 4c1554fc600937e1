// Package render renders HTML pages from pongo2 templates.
//
// An Engine resolves template paths such as "crud/index" against an ordered
// list of sources: an override directory or fs.FS configured by the
// application first, then the default templates embedded in this package.
// An application can therefore replace a single page, or the shared
// layout.html, without copying the rest.
//
//	engine, err := render.New(
//		render.WithDir("./templates"),
//		render.WithGlobals(map[string]any{"site_name": "Catalog admin"}),
//	)
//	if err != nil {
//		return err
//	}
//	err = engine.Render(ctx, w, "crud/index", map[string]any{"entities": rows})
//
// Parsed templates are cached; an Engine is safe for concurrent use.
//
// Engine.Component adapts a template to templ.Component so pongo2 pages can
// be embedded into templ layouts and rendered through the framework's
// Context.Render.
package render
