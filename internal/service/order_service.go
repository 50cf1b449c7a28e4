package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GTDGit/groupbuy_api/internal/cache"
	"github.com/GTDGit/groupbuy_api/internal/events"
	"github.com/GTDGit/groupbuy_api/internal/models"
	"github.com/GTDGit/groupbuy_api/internal/repository"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

// CreationNotifier is told about new storefront submissions after they are
// stored. Implementations must not block.
type CreationNotifier interface {
	OrderCreated(o *models.Order)
	RequestCreated(r *models.Request)
}

type nopNotifier struct{}

func (nopNotifier) OrderCreated(*models.Order)     {}
func (nopNotifier) RequestCreated(*models.Request) {}

// CreateOrderInput is a storefront checkout submission.
type CreateOrderInput struct {
	MemberID       string
	Email          string
	LastFiveDigits string
	TaxID          string
	Items          []models.OrderItem
}

func (in *CreateOrderInput) normalize() error {
	in.MemberID = strings.TrimSpace(in.MemberID)
	in.Email = strings.TrimSpace(in.Email)
	in.LastFiveDigits = strings.TrimSpace(in.LastFiveDigits)
	in.TaxID = strings.TrimSpace(in.TaxID)

	if in.MemberID == "" {
		return fmt.Errorf("%w: memberId is required", utils.ErrValidation)
	}
	if in.Email == "" {
		return fmt.Errorf("%w: email is required", utils.ErrValidation)
	}
	if !isDigits(in.LastFiveDigits, 5) {
		return fmt.Errorf("%w: lastFiveDigits must be exactly 5 digits", utils.ErrValidation)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: items must not be empty", utils.ErrValidation)
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" && strings.TrimSpace(it.Title) == "" {
			return fmt.Errorf("%w: items[%d] needs a productId or title", utils.ErrValidation, i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: items[%d].quantity must be at least 1", utils.ErrValidation, i)
		}
		if it.Price < 0 || it.ServiceFee < 0 {
			return fmt.Errorf("%w: items[%d] price and serviceFee must not be negative", utils.ErrValidation, i)
		}
	}
	return nil
}

// OrderService handles storefront checkouts and the back-office order queue.
type OrderService struct {
	orderRepo *repository.OrderRepository
	flow      statusWorkflow[models.OrderStatus, models.Order, *models.Order]
	idem      *cache.IdempotencyCache
	sink      events.Sink
	notifier  CreationNotifier
	now       func() time.Time
}

// NewOrderService constructs an OrderService. idem, sink and notifier may be nil.
func NewOrderService(tx repository.Transactor, orderRepo *repository.OrderRepository, idem *cache.IdempotencyCache, sink events.Sink, notifier CreationNotifier) *OrderService {
	if sink == nil {
		sink = events.Nop{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	s := &OrderService{
		orderRepo: orderRepo,
		idem:      idem,
		sink:      sink,
		notifier:  notifier,
		now:       time.Now,
	}
	s.flow = statusWorkflow[models.OrderStatus, models.Order, *models.Order]{
		tx:       tx,
		repo:     orderRepo,
		notFound: utils.ErrOrderNotFound,
		now:      func() time.Time { return s.now() },
	}
	return s
}

// Create stores a new pending order. The total is computed from the items.
// With an idempotency key, a repeated submission returns the first order and
// replayed is true.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput, idempotencyKey string) (order *models.Order, replayed bool, err error) {
	if err := in.normalize(); err != nil {
		return nil, false, err
	}

	priorID, commit, err := reserveSubmission(ctx, s.idem, "orders", idempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if priorID != "" {
		prior, err := s.orderRepo.Get(ctx, priorID)
		if err == nil {
			return prior, true, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, false, err
		}
	}

	now := s.now()
	items := make([]models.OrderItem, len(in.Items))
	total := 0
	for i, it := range in.Items {
		it.ProductID = strings.TrimSpace(it.ProductID)
		it.Title = strings.TrimSpace(it.Title)
		items[i] = it
		total += it.Subtotal()
	}

	order = &models.Order{
		OrderID:        utils.NewID("ord", now),
		CreatedAt:      now,
		Status:         models.OrderPending,
		IsNew:          true,
		TotalAmount:    total,
		Items:          items,
		MemberID:       in.MemberID,
		Email:          in.Email,
		LastFiveDigits: in.LastFiveDigits,
		TaxID:          in.TaxID,
		ActivityLog:    []models.ActivityLogEntry{},
	}
	if err := s.orderRepo.Put(ctx, order); err != nil {
		commit(ctx, "", true)
		return nil, false, err
	}
	commit(ctx, order.OrderID, false)

	s.sink.Publish(events.FromOrder(events.OrderCreated, order, ""))
	s.notifier.OrderCreated(order)
	return order, false, nil
}

// ListForAdmin returns all orders newest first and marks them seen.
func (s *OrderService) ListForAdmin(ctx context.Context) ([]models.Order, error) {
	return s.flow.listAndAcknowledge(ctx)
}

// LookupByMember returns the orders placed under memberID, newest first.
func (s *OrderService) LookupByMember(ctx context.Context, memberID string) ([]models.Order, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, fmt.Errorf("%w: memberId is required", utils.ErrValidation)
	}
	all, err := s.orderRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]models.Order, 0)
	for _, o := range all {
		if o.MemberID == memberID {
			matched = append(matched, o)
		}
	}
	return newestFirst(matched), nil
}

// UpdateStatus moves an order to status on behalf of actor.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus, actor string) (*models.Order, error) {
	order, changed, err := s.flow.updateStatus(ctx, orderID, status, actor)
	if err != nil {
		return nil, err
	}
	if changed {
		s.sink.Publish(events.FromOrder(events.OrderStatusChanged, order, actor))
	}
	return order, nil
}

// CountUnseen returns how many orders have not been listed by staff yet.
func (s *OrderService) CountUnseen(ctx context.Context) (int, error) {
	return s.flow.countUnseen(ctx)
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
