package crud

import (
	"net/http"

	"github.com/dmitrymomot/crudforge/internal"
	"github.com/dmitrymomot/crudforge/pkg/event"
)

// Client-side events sent in HX-Trigger after a successful mutation.
const (
	TriggerUpdated = "crud:updated"
	TriggerDeleted = "crud:deleted"
)

// Response is a terminal reply supplied by a listener that stops an action.
type Response func(c internal.Context) error

// Dispatcher publishes the lifecycle events of every CRUD action.
type Dispatcher = event.Bus[Response]

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(opts ...event.Option) *Dispatcher {
	return event.NewBus[Response](opts...)
}

// RedirectResponse replies with a 303 redirect to url.
func RedirectResponse(url string) Response {
	return func(c internal.Context) error {
		return c.Redirect(http.StatusSeeOther, url)
	}
}

// ErrorResponse replies with an HTTP error.
func ErrorResponse(code int, message string) Response {
	return func(internal.Context) error {
		return internal.NewHTTPError(code, message)
	}
}

// BeforeCrudActionEvent is published before an action touches any service.
type BeforeCrudActionEvent struct {
	Context *ApplicationContext
}

// AfterCrudActionEvent is published before rendering. Listeners may change
// Parameters; the template path stays fixed.
type AfterCrudActionEvent struct {
	Context    *ApplicationContext
	Parameters Parameters
}

// BeforeEntityUpdatedEvent is published before an edit is flushed.
// Listeners may replace Instance.
type BeforeEntityUpdatedEvent struct {
	Context  *ApplicationContext
	Instance any
}

// AfterEntityUpdatedEvent is published after an edit is flushed.
type AfterEntityUpdatedEvent struct {
	Context  *ApplicationContext
	Instance any
}

// BeforeEntityDeletedEvent is published before a delete is flushed.
type BeforeEntityDeletedEvent struct {
	Context  *ApplicationContext
	Instance any
}

// AfterEntityDeletedEvent is published after a delete is flushed.
type AfterEntityDeletedEvent struct {
	Context  *ApplicationContext
	Instance any
}
