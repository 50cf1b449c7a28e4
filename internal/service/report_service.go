package service

import (
	"context"
	"time"

	"github.com/GTDGit/groupbuy_api/internal/models"
)

// NotificationSummary drives the back-office badges.
type NotificationSummary struct {
	NewOrdersCount   int `json:"newOrdersCount"`
	NewRequestsCount int `json:"newRequestsCount"`
	Total            int `json:"total"`
}

// Bucket is the order count and revenue for one period.
type Bucket struct {
	Count int `json:"count"`
	Total int `json:"total"`
}

// DashboardSummary buckets orders by createdAt in the configured time zone.
type DashboardSummary struct {
	Today     Bucket `json:"today"`
	ThisWeek  Bucket `json:"thisWeek"`
	ThisMonth Bucket `json:"thisMonth"`
	ThisYear  Bucket `json:"thisYear"`
	Timezone  string `json:"timezone"`
}

// ReportService computes the admin read models. Counts are derived from the
// collections on every call.
type ReportService struct {
	orders   *OrderService
	requests *RequestService
	loc      *time.Location
	now      func() time.Time
}

func NewReportService(orders *OrderService, requests *RequestService, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{orders: orders, requests: requests, loc: loc, now: time.Now}
}

func (s *ReportService) NotificationSummary(ctx context.Context) (*NotificationSummary, error) {
	newOrders, err := s.orders.CountUnseen(ctx)
	if err != nil {
		return nil, err
	}
	newRequests, err := s.requests.CountUnseen(ctx)
	if err != nil {
		return nil, err
	}
	return &NotificationSummary{
		NewOrdersCount:   newOrders,
		NewRequestsCount: newRequests,
		Total:            newOrders + newRequests,
	}, nil
}

func (s *ReportService) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	orders, err := s.orders.orderRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(orders, s.now(), s.loc), nil
}

func summarize(orders []models.Order, now time.Time, loc *time.Location) *DashboardSummary {
	w := periodStarts(now, loc)
	out := &DashboardSummary{Timezone: loc.String()}
	for _, o := range orders {
		t := o.CreatedAt.In(loc)
		if t.After(now) {
			continue
		}
		if !t.Before(w.year) {
			out.ThisYear.add(o.TotalAmount)
		}
		if !t.Before(w.month) {
			out.ThisMonth.add(o.TotalAmount)
		}
		if !t.Before(w.week) {
			out.ThisWeek.add(o.TotalAmount)
		}
		if !t.Before(w.day) {
			out.Today.add(o.TotalAmount)
		}
	}
	return out
}

func (b *Bucket) add(amount int) {
	b.Count++
	b.Total += amount
}

type windows struct {
	day, week, month, year time.Time
}

// periodStarts returns the start of the current day, Monday-based week, month
// and year in loc.
func periodStarts(now time.Time, loc *time.Location) windows {
	n := now.In(loc)
	day := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	sinceMonday := (int(n.Weekday()) + 6) % 7
	return windows{
		day:   day,
		week:  day.AddDate(0, 0, -sinceMonday),
		month: time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, loc),
		year:  time.Date(n.Year(), time.January, 1, 0, 0, 0, 0, loc),
	}
}
