// Package events describes order and request lifecycle events fanned out to
// the admin event stream and the optional Kafka topic.
package events

import (
	"time"

	"github.com/GTDGit/groupbuy_api/internal/models"
)

// Type defines the event name.
type Type string

const (
	OrderCreated         Type = "order.created"
	OrderStatusChanged   Type = "order.status_changed"
	RequestCreated       Type = "request.created"
	RequestStatusChanged Type = "request.status_changed"
)

// Event is the payload delivered to sinks.
type Event struct {
	Event       Type      `json:"event"`
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	StatusLabel string    `json:"statusLabel"`
	MemberID    string    `json:"memberId,omitempty"`
	TotalAmount *int      `json:"totalAmount,omitempty"`
	UpdatedBy   string    `json:"updatedBy,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Sink receives events. Publish must not block the caller for long.
type Sink interface {
	Publish(e *Event)
}

// Fanout publishes to every sink in order.
type Fanout []Sink

func (f Fanout) Publish(e *Event) {
	for _, s := range f {
		s.Publish(e)
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(*Event) {}

func FromOrder(t Type, o *models.Order, actor string) *Event {
	total := o.TotalAmount
	return &Event{
		Event:       t,
		ID:          o.OrderID,
		Status:      string(o.Status),
		StatusLabel: o.Status.Label(),
		MemberID:    o.MemberID,
		TotalAmount: &total,
		UpdatedBy:   actor,
		Timestamp:   time.Now(),
	}
}

func FromRequest(t Type, r *models.Request, actor string) *Event {
	return &Event{
		Event:       t,
		ID:          r.RequestID,
		Status:      string(r.Status),
		StatusLabel: r.Status.Label(),
		MemberID:    r.MemberID,
		UpdatedBy:   actor,
		Timestamp:   time.Now(),
	}
}
