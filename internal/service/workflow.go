package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GTDGit/groupbuy_api/internal/models"
	"github.com/GTDGit/groupbuy_api/internal/repository"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

// trackable is a record with an audited status and an unseen flag.
type trackable[S any] interface {
	CurrentStatus() S
	SetStatus(S)
	AppendActivity(models.ActivityLogEntry)
	Unseen() bool
	MarkSeen()
}

// statusWorkflow is the list/acknowledge/status-update cycle shared by
// orders and purchase requests.
type statusWorkflow[S models.Status[S], T any, PT interface {
	*T
	trackable[S]
}] struct {
	tx       repository.Transactor
	repo     *repository.DocumentRepository[T]
	notFound error
	now      func() time.Time
}

// listAndAcknowledge returns all records newest first and clears the unseen
// flag on each, persisting only when something changed.
func (w *statusWorkflow[S, T, PT]) listAndAcknowledge(ctx context.Context) ([]T, error) {
	var out []T
	err := w.tx.Exec(ctx, func(ctx context.Context) error {
		recs, err := w.repo.List(ctx)
		if err != nil {
			return err
		}
		for i := range recs {
			rec := PT(&recs[i])
			if !rec.Unseen() {
				continue
			}
			rec.MarkSeen()
			if err := w.repo.Put(ctx, &recs[i]); err != nil {
				return err
			}
		}
		out = newestFirst(recs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// updateStatus validates the target status, then applies it to the record
// with the given id. changed is false when the record already had that status.
func (w *statusWorkflow[S, T, PT]) updateStatus(ctx context.Context, id string, to S, actor string) (rec *T, changed bool, err error) {
	if !to.Valid() {
		return nil, false, utils.ErrInvalidStatus
	}

	err = w.tx.Exec(ctx, func(ctx context.Context) error {
		r, err := w.repo.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return w.notFound
		}
		if err != nil {
			return err
		}
		changed, err = applyStatusChange[S](PT(r), to, actor, w.now())
		if err != nil {
			return err
		}
		if changed {
			if err := w.repo.Put(ctx, r); err != nil {
				return err
			}
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return rec, changed, nil
}

func (w *statusWorkflow[S, T, PT]) countUnseen(ctx context.Context) (int, error) {
	recs, err := w.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range recs {
		if PT(&recs[i]).Unseen() {
			n++
		}
	}
	return n, nil
}

// applyStatusChange sets the status and appends one activity entry. Setting
// the current status again is a no-op.
func applyStatusChange[S models.Status[S]](rec trackable[S], to S, actor string, now time.Time) (bool, error) {
	if !to.Valid() {
		return false, utils.ErrInvalidStatus
	}
	from := rec.CurrentStatus()
	if from == to {
		return false, nil
	}
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("%w: %s → %s", utils.ErrTransitionNotAllowed, from, to)
	}
	rec.SetStatus(to)
	rec.AppendActivity(models.ActivityLogEntry{
		Timestamp: now,
		UpdatedBy: actor,
		Action:    fmt.Sprintf("%s → %s", from.Label(), to.Label()),
	})
	return true, nil
}

func newestFirst[T any](recs []T) []T {
	out := make([]T, len(recs))
	for i := range recs {
		out[len(recs)-1-i] = recs[i]
	}
	return out
}
