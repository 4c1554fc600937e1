// Package event is a synchronous, typed publish/subscribe bus with
// stoppable propagation.
//
// Handlers receive a pointer to the event so they can change its payload,
// and return a [Result]: [Continue] to let the next handler run, or [Stop]
// to end dispatch with a terminal value the publisher acts on.
//
//	bus := event.NewBus[http.Handler]()
//	event.Subscribe(bus, func(ctx context.Context, e *BeforeSave) (event.Result[http.Handler], error) {
//		if e.Locked {
//			return event.Stop[http.Handler](http.NotFoundHandler()), nil
//		}
//		return event.Continue[http.Handler](), nil
//	})
//
//	res, err := event.Publish(ctx, bus, &BeforeSave{})
//	if res.Stopped() {
//		res.Value().ServeHTTP(w, r)
//	}
package event
