package htmx

import "net/http"

// Redirect performs a 302 redirect for both HTMX and regular requests.
func Redirect(w http.ResponseWriter, r *http.Request, url string) {
	RedirectWithStatus(w, r, url, http.StatusFound)
}

// RedirectWithStatus redirects regular requests with status. HTMX requests
// get HX-Redirect and a 200, since htmx does not follow 3xx responses.
func RedirectWithStatus(w http.ResponseWriter, r *http.Request, targetURL string, status int) {
	if IsHTMX(r) {
		w.Header().Set(HeaderHXRedirect, targetURL)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, targetURL, status)
}

// Trigger adds events to the HX-Trigger header of an HTMX response.
// Non-HTMX requests are left untouched.
func Trigger(w http.ResponseWriter, r *http.Request, events ...string) {
	if IsHTMX(r) {
		addTriggers(w.Header(), events)
	}
}
