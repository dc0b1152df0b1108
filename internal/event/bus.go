// Package event provides a pub/sub event system for the server using watermill.
package event

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/opencode-ai/companion/internal/logging"
)

// Topic is the watermill topic every event is published on.
const Topic = "companion.events"

// Event represents an event to be published.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Subscriber is a function that receives events.
type Subscriber func(event Event)

// subscriberEntry wraps a subscriber with an ID.
type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus delivers events through a watermill GoChannel. Subscribers are fed by
// a single dispatch loop reading the topic.
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	subscribers map[EventType][]subscriberEntry
	global      []subscriberEntry

	nextID uint64
	closed bool

	dispatchOnce sync.Once
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewBus creates a new event bus instance.
func NewBus() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 100,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		subscribers: make(map[EventType][]subscriberEntry),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// newID generates a unique subscriber ID.
func (b *Bus) newID() uint64 {
	return atomic.AddUint64(&b.nextID, 1)
}

// Subscribe registers a subscriber for a specific event type.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}
	b.startDispatch()

	id := b.newID()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribe(eventType, id)
	}
}

// SubscribeAll registers a subscriber for all events.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}
	b.startDispatch()

	id := b.newID()
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribeGlobal(id)
	}
}

func (b *Bus) unsubscribe(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, entry := range subs {
		if entry.id == id {
			b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.global {
		if entry.id == id {
			b.global = append(b.global[:i], b.global[i+1:]...)
			break
		}
	}
}

// startDispatch subscribes the handler loop to the topic. Must be called with
// b.mu held.
func (b *Bus) startDispatch() {
	b.dispatchOnce.Do(func() {
		messages, err := b.pubsub.Subscribe(b.ctx, Topic)
		if err != nil {
			logging.Error().Err(err).Msg("event dispatch subscribe failed")
			return
		}
		go b.dispatch(messages)
	})
}

func (b *Bus) dispatch(messages <-chan *message.Message) {
	for msg := range messages {
		e, err := decodeEvent(msg.Payload)
		msg.Ack()
		if err != nil {
			logging.Warn().Err(err).Str("uuid", msg.UUID).Msg("dropping undecodable event")
			continue
		}
		for _, sub := range b.subscribersFor(e.Type) {
			sub(e)
		}
	}
}

func (b *Bus) subscribersFor(eventType EventType) []Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := make([]Subscriber, 0, len(b.subscribers[eventType])+len(b.global))
	for _, entry := range b.subscribers[eventType] {
		subs = append(subs, entry.fn)
	}
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	return subs
}

// Publish sends an event through the pubsub. Delivery is asynchronous.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		logging.Error().Err(err).Str("type", string(e.Type)).Msg("event marshal failed")
		return
	}

	if err := b.pubsub.Publish(Topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		logging.Warn().Err(err).Str("type", string(e.Type)).Msg("event publish failed")
	}
}

// PublishSync calls subscribers in the current goroutine, bypassing the
// pubsub.
func (b *Bus) PublishSync(e Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	b.mu.RUnlock()

	for _, sub := range b.subscribersFor(e.Type) {
		sub(e)
	}
}

// Close closes the bus and all its subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.cancel()
	b.subscribers = make(map[EventType][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}

func decodeEvent(payload []byte) (Event, error) {
	var raw struct {
		Type EventType       `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, err
	}

	decode, ok := payloadDecoders[raw.Type]
	if !ok {
		return Event{Type: raw.Type, Data: raw.Data}, nil
	}
	data, err := decode(raw.Data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: raw.Type, Data: data}, nil
}
