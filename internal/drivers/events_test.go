package drivers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) handler(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestEmitterDeliversToAllHandlers(t *testing.T) {
	emitter := NewEmitter(nil)
	first := &eventRecorder{}
	second := &eventRecorder{}

	emitter.On(EventSet, first.handler)
	emitter.On(EventSet, second.handler)

	emitter.Emit(context.Background(), Event{Type: EventSet, Driver: "test", Key: "k"})

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
}

func TestEmitterHandlerFailureIsIsolated(t *testing.T) {
	emitter := NewEmitter(nil)
	recorder := &eventRecorder{}

	emitter.On(EventSet, func(ctx context.Context, event Event) error {
		return errors.New("handler exploded")
	})
	emitter.On(EventSet, recorder.handler)

	// Must not panic or skip the healthy handler.
	emitter.Emit(context.Background(), Event{Type: EventSet, Driver: "test"})

	assert.Equal(t, 1, recorder.count())
}

func TestEmitterOnce(t *testing.T) {
	emitter := NewEmitter(nil)
	recorder := &eventRecorder{}

	emitter.Once(EventHit, recorder.handler)

	emitter.Emit(context.Background(), Event{Type: EventHit})
	emitter.Emit(context.Background(), Event{Type: EventHit})

	assert.Equal(t, 1, recorder.count())
}

func TestEmitterOff(t *testing.T) {
	emitter := NewEmitter(nil)
	recorder := &eventRecorder{}

	id := emitter.On(EventMiss, recorder.handler)
	emitter.Off(EventMiss, id)

	emitter.Emit(context.Background(), Event{Type: EventMiss})

	assert.Equal(t, 0, recorder.count())
}

func TestEmitterScopedToEventType(t *testing.T) {
	emitter := NewEmitter(nil)
	recorder := &eventRecorder{}

	emitter.On(EventHit, recorder.handler)
	emitter.Emit(context.Background(), Event{Type: EventMiss})

	assert.Equal(t, 0, recorder.count())
}
