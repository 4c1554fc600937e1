// Package htmx detects HTMX requests and writes HTMX response headers.
//
// The dashboard pages work without JavaScript. When a page is enhanced with
// HTMX, the same handlers answer with headers instead of plain HTTP
// redirects so the client can navigate or refresh itself.
//
// # Request Detection
//
//	if htmx.IsHTMX(r) {
//		// answer with a fragment
//	}
//
// # Redirects
//
// RedirectWithStatus sends an HX-Redirect header with status 200 to HTMX
// requests and a regular redirect to everything else:
//
//	htmx.RedirectWithStatus(w, r, "/admin/product", http.StatusSeeOther)
//
// # Triggers
//
// Trigger adds client-side events to the response of an HTMX request. The
// CRUD controllers announce saved and deleted entities this way:
//
//	htmx.Trigger(w, r, "crud:deleted")
//
// # Rendering
//
// RenderOption values adjust the headers sent with a rendered component:
// retargeting, swap strategy, pushed URL, triggers and out-of-band
// components. Context.Render applies them only to HTMX requests.
package htmx
