package models

import (
	"encoding/json"
	"time"
)

// OrderItem is one cart line captured at checkout.
type OrderItem struct {
	ProductID  string `json:"productId"`
	Title      string `json:"title"`
	Price      int    `json:"price"`
	ServiceFee int    `json:"serviceFee"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes,omitempty"`
}

// UnmarshalJSON also reads the product id from "id", the key storefront carts
// used before items carried productId.
func (i *OrderItem) UnmarshalJSON(b []byte) error {
	type plain OrderItem
	var v struct {
		plain
		LegacyID string `json:"id"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v.ProductID == "" {
		v.ProductID = v.LegacyID
	}
	*i = OrderItem(v.plain)
	return nil
}

// Subtotal returns (price + service fee) × quantity.
func (i OrderItem) Subtotal() int {
	return (i.Price + i.ServiceFee) * i.Quantity
}

// Order is a storefront checkout. Status and ActivityLog are only changed by
// authenticated status updates.
type Order struct {
	OrderID        string             `json:"orderId"`
	CreatedAt      time.Time          `json:"createdAt"`
	Status         OrderStatus        `json:"status"`
	IsNew          bool               `json:"isNew"`
	TotalAmount    int                `json:"totalAmount"`
	Items          []OrderItem        `json:"items"`
	MemberID       string             `json:"memberId"`
	Email          string             `json:"email"`
	LastFiveDigits string             `json:"lastFiveDigits"`
	TaxID          string             `json:"taxId,omitempty"`
	ActivityLog    []ActivityLogEntry `json:"activityLog"`
}

// UnmarshalJSON accepts documents that keep the member id under paopaohuId.
func (o *Order) UnmarshalJSON(b []byte) error {
	type plain Order
	var v struct {
		plain
		PaopaohuID string `json:"paopaohuId"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v.MemberID == "" {
		v.MemberID = v.PaopaohuID
	}
	*o = Order(v.plain)
	return nil
}

func (o *Order) CurrentStatus() OrderStatus { return o.Status }
func (o *Order) SetStatus(s OrderStatus)    { o.Status = s }
func (o *Order) Unseen() bool               { return o.IsNew }
func (o *Order) MarkSeen()                  { o.IsNew = false }

func (o *Order) AppendActivity(e ActivityLogEntry) {
	o.ActivityLog = append(o.ActivityLog, e)
}
