package feed

import (
	"testing"
	"time"
)

func TestHub(t *testing.T) {
	t.Run("broadcast reaches every subscription", func(t *testing.T) {
		h := NewHub()
		a := h.Subscribe()
		b := h.Subscribe()

		h.Broadcast()

		for name, sub := range map[string]*Subscription{"a": a, "b": b} {
			select {
			case <-sub.Refresh():
			case <-time.After(time.Second):
				t.Fatalf("subscription %s never saw the broadcast", name)
			}
		}
	})

	t.Run("broadcasts coalesce while pending", func(t *testing.T) {
		h := NewHub()
		sub := h.Subscribe()

		h.Broadcast()
		h.Broadcast()
		h.Broadcast()

		<-sub.Refresh()
		select {
		case <-sub.Refresh():
			t.Error("expected coalesced broadcasts to leave at most one pending refresh")
		default:
		}
	})

	t.Run("cancel is idempotent and stops signals", func(t *testing.T) {
		h := NewHub()
		sub := h.Subscribe()

		sub.Cancel()
		sub.Cancel()

		select {
		case <-sub.Done():
		default:
			t.Fatal("Done must be closed after Cancel")
		}
		if h.Len() != 0 {
			t.Errorf("hub still tracks %d subscriptions after cancel", h.Len())
		}

		// A broadcast after cancel must not signal the dead subscription.
		h.Broadcast()
		select {
		case <-sub.Refresh():
			t.Error("cancelled subscription received a refresh")
		default:
		}
	})

	t.Run("cancelling one subscription leaves others live", func(t *testing.T) {
		h := NewHub()
		a := h.Subscribe()
		b := h.Subscribe()

		a.Cancel()
		h.Broadcast()

		select {
		case <-b.Refresh():
		case <-time.After(time.Second):
			t.Fatal("surviving subscription never saw the broadcast")
		}
	})
}
