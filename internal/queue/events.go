package queue

import (
	"sync"
	"sync/atomic"
)

// EventType names a queue mutation.
type EventType string

const (
	EventRecordAdded   EventType = "record_added"
	EventRecordRemoved EventType = "record_removed"
	EventRecordUpdated EventType = "record_updated"
)

// DefaultSubscriberBuffer is the per-subscriber channel capacity.
const DefaultSubscriberBuffer = 64

// Event is published after a mutation commits.
type Event struct {
	Type EventType      `json:"type"`
	Data map[string]any `json:"data"`
}

// Subscription is one fan-out listener. C is closed on Unsubscribe.
type Subscription struct {
	C <-chan Event

	ch      chan Event
	id      uint64
	hub     *Hub
	dropped atomic.Uint64
	once    sync.Once
}

// Dropped counts events discarded because C was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Unsubscribe detaches the listener and closes C. Safe to call twice.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { s.hub.remove(s.id) })
}

// Hub broadcasts events to every subscriber without ever blocking the publisher.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{subs: make(map[uint64]*Subscription), buffer: buffer}
}

func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan Event, h.buffer)
	s := &Subscription{C: ch, ch: ch, id: h.nextID, hub: h}
	h.subs[s.id] = s
	return s
}

// Publish delivers ev to each subscriber that has room; full subscribers miss it.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		select {
		case s.ch <- ev:
		default:
			s.dropped.Add(1)
		}
	}
}

// Len reports the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}
