package drivers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"cache-manager/internal/common/logging"
)

// EventType identifies a cache lifecycle event.
type EventType string

const (
	EventHit          EventType = "hit"
	EventMiss         EventType = "miss"
	EventSet          EventType = "set"
	EventRemoved      EventType = "removed"
	EventFlushed      EventType = "flushed"
	EventExpired      EventType = "expired"
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventError        EventType = "error"
)

// Event is the payload delivered to subscribed handlers.
type Event struct {
	Type      EventType
	Driver    string
	Key       string
	Value     interface{}
	TTL       time.Duration
	Namespace string
	Err       error
}

// Handler receives an event. A handler error is logged and isolated; it never
// aborts the operation that triggered the event.
type Handler func(ctx context.Context, event Event) error

type subscription struct {
	id      string
	handler Handler
	once    bool
	fired   sync.Once
}

// Emitter fans events out to subscribed handlers. Handlers run concurrently;
// Emit waits for all of them and routes failures to the logger only.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]*subscription
	logger   logging.Logger
}

// NewEmitter creates an emitter writing handler failures to the given logger.
func NewEmitter(logger logging.Logger) *Emitter {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Emitter{
		handlers: make(map[EventType][]*subscription),
		logger:   logger,
	}
}

// On registers a handler for an event type and returns its subscription id.
func (e *Emitter) On(event EventType, handler Handler) string {
	return e.subscribe(event, handler, false)
}

// Once registers a handler removed after its first invocation.
func (e *Emitter) Once(event EventType, handler Handler) string {
	return e.subscribe(event, handler, true)
}

func (e *Emitter) subscribe(event EventType, handler Handler, once bool) string {
	sub := &subscription{id: uuid.NewString(), handler: handler, once: once}
	e.mu.Lock()
	e.handlers[event] = append(e.handlers[event], sub)
	e.mu.Unlock()
	return sub.id
}

// Off removes the subscription with the given id, if present.
func (e *Emitter) Off(event EventType, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := e.handlers[event]
	for i, sub := range subs {
		if sub.id == id {
			e.handlers[event] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Emit delivers the event to every handler registered for its type. All
// handlers are started, their outcomes awaited collectively, and failures
// logged without short-circuiting.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	e.mu.RLock()
	subs := make([]*subscription, len(e.handlers[event.Type]))
	copy(subs, e.handlers[event.Type])
	e.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	var (
		wg     sync.WaitGroup
		errsMu sync.Mutex
		errs   *multierror.Error
	)

	for _, sub := range subs {
		handler := e.resolve(event.Type, sub)
		if handler == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := handler(ctx, event); err != nil {
				errsMu.Lock()
				errs = multierror.Append(errs, err)
				errsMu.Unlock()
			}
		}()
	}

	wg.Wait()

	if err := errs.ErrorOrNil(); err != nil {
		e.logger.Warn("cache event handler failed",
			logging.Field{Key: "event", Value: string(event.Type)},
			logging.Field{Key: "key", Value: event.Key},
			logging.Err(err),
		)
	}
}

// resolve returns the handler to run, honoring once-only subscriptions.
func (e *Emitter) resolve(event EventType, sub *subscription) Handler {
	if !sub.once {
		return sub.handler
	}
	var handler Handler
	sub.fired.Do(func() {
		handler = sub.handler
	})
	if handler != nil {
		e.Off(event, sub.id)
	}
	return handler
}
