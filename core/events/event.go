package events

import (
	"sync"

	"treasurehunt/core/types"
)

// Event represents a structured state change emitted by the runtime.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Payload is implemented by events that carry a raw typed payload.
type Payload interface {
	Event() *types.Event
}

type envelope struct {
	evt *types.Event
}

func (e envelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e envelope) Event() *types.Event { return e.evt }

// Wrap converts a raw event payload into the emitter-friendly envelope.
func Wrap(evt *types.Event) Event { return envelope{evt: evt} }

// Unwrap extracts the raw payload, returning nil for events that do not carry one.
func Unwrap(evt Event) *types.Event {
	if p, ok := evt.(Payload); ok {
		return p.Event()
	}
	return nil
}

// Buffer collects events emitted during a transaction so they can be released
// only when the transaction commits.
type Buffer struct {
	events []*types.Event
}

// Emit implements Emitter.
func (b *Buffer) Emit(evt Event) {
	if raw := Unwrap(evt); raw != nil {
		b.events = append(b.events, raw.Clone())
	}
}

// Events returns the buffered payloads in emission order.
func (b *Buffer) Events() []*types.Event {
	out := make([]*types.Event, len(b.events))
	copy(out, b.events)
	return out
}

// Bus fans committed events out to subscribers. Slow subscribers drop events
// instead of blocking the runtime.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]chan *types.Event
}

// NewBus constructs an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan *types.Event)}
}

// Subscribe registers a listener with the given channel capacity. The returned
// cancel function unregisters it and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan *types.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan *types.Event, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers evt to every subscriber.
func (b *Bus) Publish(evt *types.Event) {
	if evt == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt.Clone():
		default:
		}
	}
}
