// Package realtime provides the in-process push channel used for new-message
// and new-notification delivery.
//
// THIN EVENT, FAT FETCH:
// An Event carries only the table name, the filter key, and the inserted
// row's ID — never the row itself. Subscribers re-fetch the full record by ID
// so they always see the annotated shape (sender/related-user summaries)
// rather than bare columns. Keeping the event thin makes the hub oblivious to
// the data model and keeps one source of truth for row shaping: the
// repository.
//
// DELIVERY MODEL:
// One dispatcher goroutine drains the event queue, so callbacks for a given
// hub run strictly sequentially and never overlap. A slow callback delays
// later events rather than racing them.
package realtime

import (
	"log/slog"
	"sync"
)

// Table names used as event scopes.
const (
	TableMessages      = "messages"
	TableNotifications = "notifications"
)

// Event describes one row insert. FilterKey scopes delivery: for messages it
// is the conversation ID, for notifications the recipient's user ID.
type Event struct {
	Table     string
	FilterKey string
	RowID     string
}

// Hub routes insert events to subscriptions keyed by table + filter.
type Hub struct {
	logger *slog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]*Subscription
	queue  chan Event
	done   chan struct{}
}

// Subscription is an open push channel. The owner that opened it is
// responsible for calling Close — there is no automatic cleanup.
type Subscription struct {
	hub      *Hub
	id       int
	key      string
	callback func(Event)

	closeOnce sync.Once
}

const queueDepth = 256

// NewHub creates a hub and starts its dispatcher. Call Shutdown when the
// process stops to let the dispatcher exit.
func NewHub(logger *slog.Logger) *Hub {
	h := &Hub{
		logger: logger,
		subs:   make(map[string]map[int]*Subscription),
		queue:  make(chan Event, queueDepth),
		done:   make(chan struct{}),
	}
	go h.dispatch()
	return h
}

func scopeKey(table, filterKey string) string {
	return table + ":" + filterKey
}

// Subscribe opens a push channel for insert events on table rows matching
// filterKey. The callback runs on the hub's dispatcher goroutine; it must not
// block for long.
func (h *Hub) Subscribe(table, filterKey string, callback func(Event)) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		hub:      h,
		id:       h.nextID,
		key:      scopeKey(table, filterKey),
		callback: callback,
	}
	if h.subs[sub.key] == nil {
		h.subs[sub.key] = make(map[int]*Subscription)
	}
	h.subs[sub.key][sub.id] = sub
	return sub
}

// Close tears down the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if set, ok := s.hub.subs[s.key]; ok {
			delete(set, s.id)
			if len(set) == 0 {
				delete(s.hub.subs, s.key)
			}
		}
	})
}

// Publish enqueues an insert event. Events with no row ID are malformed push
// payloads: they are logged and dropped, never delivered (a subscriber cannot
// re-fetch a row it cannot identify). Publish never blocks the writer beyond
// the queue buffer.
func (h *Hub) Publish(table, filterKey, rowID string) {
	if rowID == "" {
		h.logger.Warn("realtime: dropping event without row id",
			slog.String("table", table),
			slog.String("filter", filterKey),
		)
		return
	}

	select {
	case h.queue <- Event{Table: table, FilterKey: filterKey, RowID: rowID}:
	case <-h.done:
	}
}

// Shutdown stops the dispatcher. Pending events are discarded.
func (h *Hub) Shutdown() {
	close(h.done)
}

func (h *Hub) dispatch() {
	for {
		select {
		case ev := <-h.queue:
			for _, sub := range h.snapshot(scopeKey(ev.Table, ev.FilterKey)) {
				sub.callback(ev)
			}
		case <-h.done:
			return
		}
	}
}

// snapshot copies the subscriber set so callbacks run outside the lock and a
// callback may close its own subscription.
func (h *Hub) snapshot(key string) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[key]
	if len(set) == 0 {
		return nil
	}
	subs := make([]*Subscription, 0, len(set))
	for _, s := range set {
		subs = append(subs, s)
	}
	return subs
}
