package bus

import (
	"context"
	"log/slog"
	"sync"
)

// Subscriber receives events published to topics it is subscribed to.
// Delivery is at-least-once; implementations must tolerate duplicates.
type Subscriber interface {
	// SubscriberID is a stable identity; subscribing the same ID to the
	// same topic twice has no additional effect.
	SubscriberID() string
	HandleEvent(ctx context.Context, event any) error
}

// Bus is a topic-scoped publish/subscribe registry. Events published to
// one topic are delivered in publish order to the subscribers registered
// at publish time. There is no ordering guarantee across topics.
type Bus struct {
	mu     sync.Mutex
	topics map[string]*topic
	logger *slog.Logger
}

// New creates a Bus
func New(logger *slog.Logger) *Bus {
	return &Bus{
		topics: make(map[string]*topic),
		logger: logger.With(slog.String("component", "bus")),
	}
}

// Subscribe registers a subscriber on a topic. Subscribing an
// already-subscribed ref to the same topic is a no-op.
func (b *Bus) Subscribe(name string, sub Subscriber) {
	// Registration happens under b.mu so a concurrent Unsubscribe
	// cannot delete the topic between the map lookup and subscribe,
	// which would strand the new subscriber on an unreachable topic.
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[name]
	if !ok {
		t = newTopic(name, b.logger)
		b.topics[name] = t
	}
	t.subscribe(sub)
}

// Unsubscribe removes a subscriber from a topic. Unsubscribing a
// non-subscribed ref is a no-op, never an error.
func (b *Bus) Unsubscribe(name string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[name]
	if !ok {
		return
	}
	if t.unsubscribe(sub) == 0 && t.empty() {
		delete(b.topics, name)
	}
}

// Publish delivers an event to every subscriber currently registered on
// the topic. Publishing to a topic with no subscribers is a no-op.
func (b *Bus) Publish(ctx context.Context, name string, event any) {
	b.mu.Lock()
	t, ok := b.topics[name]
	b.mu.Unlock()
	if !ok {
		return
	}
	t.publish(ctx, event)
}

// SubscriberCount returns the number of subscribers on a topic
func (b *Bus) SubscriberCount(name string) int {
	b.mu.Lock()
	t, ok := b.topics[name]
	b.mu.Unlock()
	if !ok {
		return 0
	}
	return t.count()
}

// topic fans events out to its subscriber set. Publishes are queued and
// drained run-to-completion by whichever caller finds the queue idle, so
// per-topic ordering holds even when a handler publishes to the same
// topic from inside a delivery.
type topic struct {
	name   string
	logger *slog.Logger

	mu       sync.Mutex
	subs     map[string]Subscriber
	order    []string
	queue    []delivery
	draining bool
}

type delivery struct {
	event any
	subs  []Subscriber
}

func newTopic(name string, logger *slog.Logger) *topic {
	return &topic{
		name:   name,
		logger: logger.With(slog.String("topic", name)),
		subs:   make(map[string]Subscriber),
	}
}

func (t *topic) subscribe(sub Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := sub.SubscriberID()
	if _, ok := t.subs[id]; ok {
		return
	}
	t.subs[id] = sub
	t.order = append(t.order, id)
}

func (t *topic) unsubscribe(sub Subscriber) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := sub.SubscriberID()
	if _, ok := t.subs[id]; !ok {
		return len(t.subs)
	}
	delete(t.subs, id)
	for i, sid := range t.order {
		if sid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return len(t.subs)
}

func (t *topic) publish(ctx context.Context, event any) {
	t.mu.Lock()
	if len(t.subs) == 0 && len(t.queue) == 0 {
		t.mu.Unlock()
		return
	}
	// Snapshot the subscribers registered at publish time
	snapshot := make([]Subscriber, 0, len(t.subs))
	for _, id := range t.order {
		snapshot = append(snapshot, t.subs[id])
	}
	t.queue = append(t.queue, delivery{event: event, subs: snapshot})
	if t.draining {
		// An earlier caller is draining this topic and will pick the
		// event up in order
		t.mu.Unlock()
		return
	}
	t.draining = true
	for len(t.queue) > 0 {
		d := t.queue[0]
		t.queue = t.queue[1:]
		t.mu.Unlock()
		for _, sub := range d.subs {
			if err := sub.HandleEvent(ctx, d.event); err != nil {
				t.logger.Error("event handler failed",
					slog.String("subscriber", sub.SubscriberID()),
					slog.Any("error", err))
			}
		}
		t.mu.Lock()
	}
	t.draining = false
	t.mu.Unlock()
}

func (t *topic) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (t *topic) empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs) == 0 && len(t.queue) == 0
}
