package crud

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/crudforge/pkg/field"
)

// IDPlaceholder stands for the entity id in URL templates.
const IDPlaceholder = "__id__"

// DashboardConfig describes the admin dashboard all CRUDs are mounted on.
type DashboardConfig struct {
	Title  string
	Prefix string
}

// URL returns the dashboard root URL.
func (d DashboardConfig) URL() string {
	if d.Prefix == "" {
		return "/"
	}
	return d.Prefix + "/"
}

// ApplicationContext is the state of one CRUD request. It is created once
// per request and shared by every step of an action.
type ApplicationContext struct {
	Request   *http.Request
	Manager   ObjectManager
	Search    SearchDto
	Dashboard DashboardConfig
	URLs      URLGenerator
	Crud      CrudConfig
	Action    string
	EntityID  string
	Assets    Assets
	IndexPage IndexPage
	Detail    DetailPage
	FormPage  FormPage
	Fields    field.Set
}

// TemplatePath resolves the template rendered for path.
func (a *ApplicationContext) TemplatePath(path string) string {
	return a.Crud.TemplatePath(path)
}

// URLGenerator builds the URLs of one CRUD.
type URLGenerator struct {
	Prefix string
	Path   string
}

func (g URLGenerator) base() string {
	return g.Prefix + "/" + g.Path
}

func (g URLGenerator) Dashboard() string { return DashboardConfig{Prefix: g.Prefix}.URL() }
func (g URLGenerator) Index() string     { return g.base() }
func (g URLGenerator) Batch() string     { return g.base() + "/batch" }

// Search returns the index URL carrying s.
func (g URLGenerator) Search(s SearchDto) string {
	if q := s.Values().Encode(); q != "" {
		return g.base() + "?" + q
	}
	return g.base()
}

// Filters returns the filters overlay URL; the form submits to referrer.
func (g URLGenerator) Filters(s SearchDto, referrer string) string {
	v := s.Values()
	v.Del("page")
	v.Set("referrer", referrer)
	return g.base() + "/filters?" + v.Encode()
}

func (g URLGenerator) Detail(id string) string { return g.base() + "/" + g.id(id) }
func (g URLGenerator) Edit(id string) string   { return g.base() + "/" + g.id(id) + "/edit" }
func (g URLGenerator) Delete(id string) string { return g.base() + "/" + g.id(id) + "/delete" }

func (g URLGenerator) id(id string) string {
	if id == IDPlaceholder {
		return id
	}
	return url.PathEscape(id)
}

// WithReferrer appends a referrer query parameter to target.
func WithReferrer(target, referrer string) string {
	if referrer == "" {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + "referrer=" + url.QueryEscape(referrer)
}

// SafeReferrer returns ref when it is a relative URL on the same site.
// Absolute and protocol-relative URLs are rejected to prevent open redirects.
func SafeReferrer(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || !strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "//") || strings.HasPrefix(ref, `/\`) {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "", false
	}
	return ref, true
}

// RedirectTarget picks where to go after a write: a safe referrer, then the
// index page when it is enabled, then the dashboard root.
func (a *ApplicationContext) RedirectTarget() string {
	if ref, ok := SafeReferrer(a.Search.Referrer); ok {
		return ref
	}
	if a.Crud.IsEnabled(ActionIndex) {
		return a.URLs.Index()
	}
	return a.URLs.Dashboard()
}
