package store

import (
	"sync"

	"github.com/focusboard/focusboard/internal/board/schema"
)

// EventType classifies store events.
type EventType string

const (
	EventCreated   EventType = "created"
	EventUpdated   EventType = "updated"
	EventDeleted   EventType = "deleted"
	EventCommitted EventType = "committed" // canonical record swapped in
	EventReloaded  EventType = "reloaded"
	EventSyncError EventType = "sync_error"
)

// Event describes one change to a store.
type Event struct {
	Collection schema.Collection `json:"collection"`
	Type       EventType         `json:"type"`
	ID         string            `json:"id,omitempty"`
	Record     any               `json:"record,omitempty"`
}

// Status is a point-in-time summary of a store's sync state.
type Status struct {
	Collection schema.Collection `json:"collection"`
	Count      int               `json:"count"`
	Loading    bool              `json:"loading"`
	Loaded     bool              `json:"loaded"`
	Online     bool              `json:"online"`
	Error      string            `json:"error,omitempty"`
	Pending    int               `json:"pending"`
	Failed     int               `json:"failed"`
	Committed  uint64            `json:"committed"`
}

const subscriberBuffer = 64

// broker fans events out to subscribers without blocking publishers.
type broker struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func newBroker() *broker {
	return &broker{subs: make(map[int]chan Event)}
}

func (b *broker) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
