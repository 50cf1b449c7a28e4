package models

import (
	"encoding/json"
	"time"
)

// Status is the constraint shared by the order and request status enums so
// both collections can run through the same status workflow.
type Status[S any] interface {
	~string
	Valid() bool
	Label() string
	CanTransitionTo(to S) bool
}

// ActivityLogEntry is one immutable line of a record's audit trail.
type ActivityLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	UpdatedBy string    `json:"updatedBy"`
	Action    string    `json:"action"`
}

type OrderStatus string
type RequestStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderVendorNotified OrderStatus = "vendor-notified"
	OrderShipped        OrderStatus = "shipped"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
)

const (
	RequestPendingQuote RequestStatus = "pending-quote"
	RequestQuoted       RequestStatus = "quoted"
	RequestInProgress   RequestStatus = "in-progress"
	RequestConverted    RequestStatus = "converted"
	RequestCancelled    RequestStatus = "cancelled"
)

// Storefront labels, also accepted on input so that documents written by the
// earlier admin UI keep loading.
var orderStatusLabels = map[OrderStatus]string{
	OrderPending:        "待處理",
	OrderVendorNotified: "已通知廠商發貨",
	OrderShipped:        "已發貨",
	OrderCompleted:      "已完成",
	OrderCancelled:      "訂單取消",
}

var requestStatusLabels = map[RequestStatus]string{
	RequestPendingQuote: "待報價",
	RequestQuoted:       "已報價",
	RequestInProgress:   "處理中",
	RequestConverted:    "已轉訂單",
	RequestCancelled:    "已取消",
}

// OrderStatuses lists the order states in workflow order.
var OrderStatuses = []OrderStatus{OrderPending, OrderVendorNotified, OrderShipped, OrderCompleted, OrderCancelled}

// RequestStatuses lists the request states in workflow order.
var RequestStatuses = []RequestStatus{RequestPendingQuote, RequestQuoted, RequestInProgress, RequestConverted, RequestCancelled}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

func (s OrderStatus) Label() string {
	if l, ok := orderStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

// CanTransitionTo reports whether an order may move from s to the target
// status. Any valid status is reachable from any other.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	return to.Valid()
}

// ParseOrderStatus maps a wire value or storefront label to an OrderStatus.
// Unknown input is returned unchanged so callers can reject it.
func ParseOrderStatus(raw string) OrderStatus {
	for s, l := range orderStatusLabels {
		if raw == l {
			return s
		}
	}
	return OrderStatus(raw)
}

func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseOrderStatus(raw)
	return nil
}

func (s RequestStatus) Valid() bool {
	_, ok := requestStatusLabels[s]
	return ok
}

func (s RequestStatus) Label() string {
	if l, ok := requestStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

// CanTransitionTo reports whether a request may move from s to the target
// status. Any valid status is reachable from any other.
func (s RequestStatus) CanTransitionTo(to RequestStatus) bool {
	return to.Valid()
}

// ParseRequestStatus maps a wire value or storefront label to a RequestStatus.
func ParseRequestStatus(raw string) RequestStatus {
	for s, l := range requestStatusLabels {
		if raw == l {
			return s
		}
	}
	return RequestStatus(raw)
}

func (s *RequestStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseRequestStatus(raw)
	return nil
}
