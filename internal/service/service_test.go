package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/GTDGit/groupbuy_api/internal/datastore"
	"github.com/GTDGit/groupbuy_api/internal/events"
	"github.com/GTDGit/groupbuy_api/internal/models"
)

func newTestStore(t *testing.T) *datastore.FileStore {
	t.Helper()
	s, err := datastore.OpenFile(filepath.Join(t.TempDir(), "db.json"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) Publish(e *events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
}

func (r *recordingSink) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Event
	}
	return out
}

type recordingNotifier struct {
	orders   []string
	requests []string
}

func (r *recordingNotifier) OrderCreated(o *models.Order)     { r.orders = append(r.orders, o.OrderID) }
func (r *recordingNotifier) RequestCreated(q *models.Request) { r.requests = append(r.requests, q.RequestID) }

var bg = context.Background()
