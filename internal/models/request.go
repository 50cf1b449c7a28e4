package models

import (
	"encoding/json"
	"time"

	"github.com/GTDGit/groupbuy_api/internal/utils"
)

// Request is a purchase-on-behalf request submitted from the storefront form.
type Request struct {
	RequestID   string             `json:"requestId"`
	ReceivedAt  time.Time          `json:"receivedAt"`
	Status      RequestStatus      `json:"status"`
	IsNew       bool               `json:"isNew"`
	MemberID    string             `json:"memberId,omitempty"`
	ContactInfo string             `json:"contactInfo"`
	Email       string             `json:"email,omitempty"`
	ProductURL  string             `json:"productUrl"`
	ProductName string             `json:"productName"`
	Specs       string             `json:"specs,omitempty"`
	Quantity    int                `json:"quantity"`
	Notes       string             `json:"notes,omitempty"`
	ActivityLog []ActivityLogEntry `json:"activityLog"`
}

// UnmarshalJSON accepts documents that keep the member id under paopaohuId
// and the quantity as a form string.
func (r *Request) UnmarshalJSON(b []byte) error {
	type plain Request
	var v struct {
		plain
		PaopaohuID string        `json:"paopaohuId"`
		Quantity   utils.FlexInt `json:"quantity"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v.MemberID == "" {
		v.MemberID = v.PaopaohuID
	}
	v.plain.Quantity = v.Quantity.Int()
	*r = Request(v.plain)
	return nil
}

func (r *Request) CurrentStatus() RequestStatus { return r.Status }
func (r *Request) SetStatus(s RequestStatus)    { r.Status = s }
func (r *Request) Unseen() bool                 { return r.IsNew }
func (r *Request) MarkSeen()                    { r.IsNew = false }

func (r *Request) AppendActivity(e ActivityLogEntry) {
	r.ActivityLog = append(r.ActivityLog, e)
}
