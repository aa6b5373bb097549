package events

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/etherna/sso/internal/domain"
)

// Handler consumes a dispatched domain event.
type Handler func(ctx context.Context, event domain.Event) error

// Dispatcher fans domain events out to handlers registered for the event's
// exact type. Handlers run sequentially for a single event, but a handler
// error or panic never prevents the remaining handlers, nor subsequent
// events, from running: failures are logged and delivery continues.
type Dispatcher struct {
	logger         *slog.Logger
	handlerTimeout time.Duration

	mu       sync.RWMutex
	handlers map[reflect.Type][]Handler
}

// NewDispatcher constructs a dispatcher with a bounded per-handler timeout.
func NewDispatcher(logger *slog.Logger, handlerTimeout time.Duration) *Dispatcher {
	if handlerTimeout <= 0 {
		handlerTimeout = 10 * time.Second
	}
	return &Dispatcher{
		logger:         logger,
		handlerTimeout: handlerTimeout,
		handlers:       make(map[reflect.Type][]Handler),
	}
}

// On registers a typed handler for events of exactly type E.
func On[E domain.Event](d *Dispatcher, fn func(ctx context.Context, event E) error) {
	var zero E
	t := reflect.TypeOf(zero)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = append(d.handlers[t], func(ctx context.Context, event domain.Event) error {
		typed, ok := event.(E)
		if !ok {
			return fmt.Errorf("handler registered for %v received %T", t, event)
		}
		return fn(ctx, typed)
	})
}

// Dispatch delivers each event to every handler registered for its exact
// type, in registration order. An event counts as delivered once all its
// handlers have been invoked, whatever their outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, evts ...domain.Event) {
	for _, event := range evts {
		d.mu.RLock()
		registered := d.handlers[reflect.TypeOf(event)]
		d.mu.RUnlock()

		for i, handler := range registered {
			d.invoke(ctx, event, i, handler)
		}
	}
}

func (d *Dispatcher) invoke(ctx context.Context, event domain.Event, index int, handler Handler) {
	handlerCtx, cancel := context.WithTimeout(ctx, d.handlerTimeout)
	defer cancel()

	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.ErrorContext(ctx, "event handler panicked",
				"module", "events.dispatcher",
				"operation", "dispatch",
				"outcome", "failure",
				"event_name", event.EventName(),
				"handler_index", index,
				"panic", recovered,
			)
		}
	}()

	if err := handler(handlerCtx, event); err != nil {
		d.logger.WarnContext(ctx, "event handler failed",
			"module", "events.dispatcher",
			"operation", "dispatch",
			"outcome", "failure",
			"event_name", event.EventName(),
			"handler_index", index,
			"error", err,
		)
	}
}
