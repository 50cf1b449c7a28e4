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

// CreateRequestInput is a purchase-on-behalf form submission.
type CreateRequestInput struct {
	MemberID    string
	ContactInfo string
	Email       string
	ProductURL  string
	ProductName string
	Specs       string
	Quantity    int
	Notes       string
}

func (in *CreateRequestInput) normalize() error {
	in.MemberID = strings.TrimSpace(in.MemberID)
	in.ContactInfo = strings.TrimSpace(in.ContactInfo)
	in.Email = strings.TrimSpace(in.Email)
	in.ProductURL = strings.TrimSpace(in.ProductURL)
	in.ProductName = strings.TrimSpace(in.ProductName)

	switch {
	case in.ProductURL == "":
		return fmt.Errorf("%w: productUrl is required", utils.ErrValidation)
	case in.ProductName == "":
		return fmt.Errorf("%w: productName is required", utils.ErrValidation)
	case in.ContactInfo == "":
		return fmt.Errorf("%w: contactInfo is required", utils.ErrValidation)
	case in.Quantity < 0:
		return fmt.Errorf("%w: quantity must be at least 1", utils.ErrValidation)
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	return nil
}

// RequestService handles purchase requests and their back-office queue.
type RequestService struct {
	requestRepo *repository.RequestRepository
	flow        statusWorkflow[models.RequestStatus, models.Request, *models.Request]
	idem        *cache.IdempotencyCache
	sink        events.Sink
	notifier    CreationNotifier
	now         func() time.Time
}

// NewRequestService constructs a RequestService. idem, sink and notifier may be nil.
func NewRequestService(tx repository.Transactor, requestRepo *repository.RequestRepository, idem *cache.IdempotencyCache, sink events.Sink, notifier CreationNotifier) *RequestService {
	if sink == nil {
		sink = events.Nop{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	s := &RequestService{
		requestRepo: requestRepo,
		idem:        idem,
		sink:        sink,
		notifier:    notifier,
		now:         time.Now,
	}
	s.flow = statusWorkflow[models.RequestStatus, models.Request, *models.Request]{
		tx:       tx,
		repo:     requestRepo,
		notFound: utils.ErrRequestNotFound,
		now:      func() time.Time { return s.now() },
	}
	return s
}

// Create stores a new request awaiting a quote.
func (s *RequestService) Create(ctx context.Context, in CreateRequestInput, idempotencyKey string) (req *models.Request, replayed bool, err error) {
	if err := in.normalize(); err != nil {
		return nil, false, err
	}

	priorID, commit, err := reserveSubmission(ctx, s.idem, "requests", idempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if priorID != "" {
		prior, err := s.requestRepo.Get(ctx, priorID)
		if err == nil {
			return prior, true, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, false, err
		}
	}

	now := s.now()
	req = &models.Request{
		RequestID:   utils.NewID("req", now),
		ReceivedAt:  now,
		Status:      models.RequestPendingQuote,
		IsNew:       true,
		MemberID:    in.MemberID,
		ContactInfo: in.ContactInfo,
		Email:       in.Email,
		ProductURL:  in.ProductURL,
		ProductName: in.ProductName,
		Specs:       in.Specs,
		Quantity:    in.Quantity,
		Notes:       in.Notes,
		ActivityLog: []models.ActivityLogEntry{},
	}
	if err := s.requestRepo.Put(ctx, req); err != nil {
		commit(ctx, "", true)
		return nil, false, err
	}
	commit(ctx, req.RequestID, false)

	s.sink.Publish(events.FromRequest(events.RequestCreated, req, ""))
	s.notifier.RequestCreated(req)
	return req, false, nil
}

// ListForAdmin returns all requests newest first and marks them seen.
func (s *RequestService) ListForAdmin(ctx context.Context) ([]models.Request, error) {
	return s.flow.listAndAcknowledge(ctx)
}

// UpdateStatus moves a request to status on behalf of actor.
func (s *RequestService) UpdateStatus(ctx context.Context, requestID string, status models.RequestStatus, actor string) (*models.Request, error) {
	req, changed, err := s.flow.updateStatus(ctx, requestID, status, actor)
	if err != nil {
		return nil, err
	}
	if changed {
		s.sink.Publish(events.FromRequest(events.RequestStatusChanged, req, actor))
	}
	return req, nil
}

func (s *RequestService) CountUnseen(ctx context.Context) (int, error) {
	return s.flow.countUnseen(ctx)
}
