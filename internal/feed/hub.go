// Package feed implements the in-process live-update hub. Each subscriber
// holds a coalescing refresh channel: however many broadcasts land while a
// delivery is in flight, the subscriber re-reads its view once. Delivery
// content is the subscriber's own role-scoped listing, so the hub itself
// only carries "something you can see may have changed" signals.
package feed

import "sync"

// Hub fans out change signals to live subscriptions.
type Hub struct {
	mu   sync.Mutex
	subs map[uint64]*Subscription
	next uint64
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a new subscription.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	sub := &Subscription{
		hub:     h,
		id:      h.next,
		refresh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	h.subs[sub.id] = sub
	return sub
}

// Broadcast signals every live subscription. Non-blocking: a subscription
// that already has a pending refresh is not signaled again.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		select {
		case sub.refresh <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Subscription is one live feed registration.
type Subscription struct {
	hub     *Hub
	id      uint64
	refresh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Refresh signals that the subscriber's view may be stale.
func (s *Subscription) Refresh() <-chan struct{} {
	return s.refresh
}

// Done is closed when the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Cancel tears the subscription down. Idempotent; after it returns no new
// deliveries start, and consumers checking Done drop in-flight ones.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s.id)
		close(s.done)
	})
}
