package event

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/dmitrymomot/crudforge/pkg/logger"
)

// Result is a handler's verdict: continue to the next handler, or stop
// dispatching and hand a terminal value back to the publisher.
type Result[R any] struct {
	value   R
	stopped bool
}

// Continue lets dispatch proceed.
func Continue[R any]() Result[R] {
	return Result[R]{}
}

// Stop ends dispatch with v.
func Stop[R any](v R) Result[R] {
	return Result[R]{value: v, stopped: true}
}

// Stopped reports whether a handler ended dispatch.
func (r Result[R]) Stopped() bool { return r.stopped }

// Value returns the terminal value. It is the zero value unless Stopped.
func (r Result[R]) Value() R { return r.value }

// Handler reacts to an event of type E. It may mutate the event.
type Handler[E, R any] func(ctx context.Context, e *E) (Result[R], error)

type subscription[R any] struct {
	call     func(ctx context.Context, e any) (Result[R], error)
	name     string
	priority int
	seq      int
}

// Bus dispatches events synchronously to handlers subscribed by event type.
// Handlers run by descending priority, then registration order.
// A Bus is safe for concurrent use.
type Bus[R any] struct {
	handlers map[reflect.Type][]subscription[R]
	log      *slog.Logger
	seq      int
	mu       sync.RWMutex
}

// Option configures a Bus.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger logs stopped dispatches and handler failures.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// NewBus creates an empty bus whose handlers stop with values of type R.
func NewBus[R any](opts ...Option) *Bus[R] {
	o := &options{log: logger.NewNope()}
	for _, opt := range opts {
		opt(o)
	}
	return &Bus[R]{
		handlers: make(map[reflect.Type][]subscription[R]),
		log:      o.log,
	}
}

// SubscribeOption configures one subscription.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	name     string
	priority int
}

// WithPriority runs the handler before handlers with a lower priority. Default 0.
func WithPriority(p int) SubscribeOption {
	return func(o *subscribeOptions) { o.priority = p }
}

// WithName labels the handler in logs.
func WithName(name string) SubscribeOption {
	return func(o *subscribeOptions) { o.name = name }
}

// Subscribe registers fn for events of type E.
func Subscribe[E, R any](b *Bus[R], fn Handler[E, R], opts ...SubscribeOption) {
	o := &subscribeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	key := reflect.TypeFor[E]()

	b.mu.Lock()
	defer b.mu.Unlock()

	if o.name == "" {
		o.name = fmt.Sprintf("%s#%d", key.Name(), len(b.handlers[key]))
	}

	b.seq++
	// Publish iterates a snapshot, so never sort the shared backing array.
	subs := append(slices.Clone(b.handlers[key]), subscription[R]{
		call: func(ctx context.Context, e any) (Result[R], error) {
			return fn(ctx, e.(*E))
		},
		name:     o.name,
		priority: o.priority,
		seq:      b.seq,
	})
	slices.SortStableFunc(subs, func(a, c subscription[R]) int {
		if a.priority != c.priority {
			return c.priority - a.priority
		}
		return a.seq - c.seq
	})
	b.handlers[key] = subs
}

// Publish runs every handler subscribed to E in order. It returns as soon as
// a handler stops or fails; the returned Result is Continue when nobody stopped.
func Publish[E, R any](ctx context.Context, b *Bus[R], e *E) (Result[R], error) {
	key := reflect.TypeFor[E]()

	b.mu.RLock()
	subs := b.handlers[key]
	b.mu.RUnlock()

	for _, s := range subs {
		res, err := s.call(ctx, e)
		if err != nil {
			b.log.ErrorContext(ctx, "event handler failed",
				slog.String("event", key.String()),
				slog.String("handler", s.name),
				slog.String("error", err.Error()),
			)
			return Continue[R](), fmt.Errorf("event: %s handler %s: %w", key.Name(), s.name, err)
		}
		if res.Stopped() {
			b.log.DebugContext(ctx, "event propagation stopped",
				slog.String("event", key.String()),
				slog.String("handler", s.name),
			)
			return res, nil
		}
	}
	return Continue[R](), nil
}

// Handlers returns the number of handlers subscribed to the event type t.
func (b *Bus[R]) Handlers(t reflect.Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[t])
}

// HasHandlers reports whether anything listens to E.
func HasHandlers[E, R any](b *Bus[R]) bool {
	return b.Handlers(reflect.TypeFor[E]()) > 0
}
