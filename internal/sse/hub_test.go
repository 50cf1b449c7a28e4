package sse

import (
	"encoding/json"
	"testing"

	"github.com/GTDGit/groupbuy_api/internal/events"
)

func TestHubPublishDeliversToRegisteredClients(t *testing.T) {
	h := NewHub()
	c := h.Register("admin-1", "admin")
	defer h.Unregister("admin-1")

	h.Publish(&events.Event{Event: events.OrderCreated, ID: "ord_1", Status: "pending"})

	select {
	case msg := <-c.Events:
		if msg.Event != string(events.OrderCreated) {
			t.Fatalf("Event = %q, want %q", msg.Event, events.OrderCreated)
		}
		var e events.Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if e.ID != "ord_1" {
			t.Fatalf("event = %+v", e)
		}
	default:
		t.Fatalf("expected an event on the client channel")
	}
}

func TestHubUnregisterClosesChannel(t *testing.T) {
	h := NewHub()
	c := h.Register("admin-1", "admin")
	h.Unregister("admin-1")

	if _, ok := <-c.Events; ok {
		t.Fatalf("channel should be closed")
	}
	if n := h.ClientCount(); n != 0 {
		t.Fatalf("ClientCount = %d, want 0", n)
	}
	// Publishing with no clients is a no-op.
	h.Publish(&events.Event{Event: events.OrderCreated})
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	c := h.Register("slow", "staff")
	defer h.Unregister("slow")

	for i := 0; i < cap(c.Events)+5; i++ {
		h.Publish(&events.Event{Event: events.RequestCreated})
	}
	if len(c.Events) != cap(c.Events) {
		t.Fatalf("buffered = %d, want %d", len(c.Events), cap(c.Events))
	}
}

func TestHubCloseEndsStreamsAndRejectsNewOnes(t *testing.T) {
	h := NewHub()
	c := h.Register("admin-1", "admin")

	h.Close()

	if _, ok := <-c.Events; ok {
		t.Fatalf("open stream should be closed")
	}
	late := h.Register("admin-2", "admin")
	if _, ok := <-late.Events; ok {
		t.Fatalf("stream registered after Close should be closed")
	}
	if n := h.ClientCount(); n != 0 {
		t.Fatalf("ClientCount = %d, want 0", n)
	}
	// Unregister after Close must not double-close.
	h.Unregister("admin-1")
}
