package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func openTemp(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestOpenFileCreatesEmptyDocument(t *testing.T) {
	_, path := openTemp(t)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var top map[string][]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, c := range Collections {
		if _, ok := top[string(c)]; !ok {
			t.Fatalf("collection %q missing from new document", c)
		}
	}
}

func TestPutGetListDeletePersist(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)

	if err := s.Put(ctx, Products, "p1", json.RawMessage(`{"id":"p1","title":"A"}`)); err != nil {
		t.Fatalf("Put p1: %v", err)
	}
	if err := s.Put(ctx, Products, "p2", json.RawMessage(`{"id":"p2","title":"B"}`)); err != nil {
		t.Fatalf("Put p2: %v", err)
	}
	if err := s.Put(ctx, Products, "p1", json.RawMessage(`{"id":"p1","title":"A2"}`)); err != nil {
		t.Fatalf("replace p1: %v", err)
	}

	docs, err := s.List(ctx, Products)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "p1" || docs[1].ID != "p2" {
		t.Fatalf("List = %+v, want [p1 p2] in insertion order", docs)
	}
	if !strings.Contains(string(docs[0].Body), "A2") {
		t.Fatalf("p1 body = %s, want replaced body", docs[0].Body)
	}

	if err := s.Delete(ctx, Products, "p2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, Products, "p2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get deleted = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, Products, "p2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete missing = %v, want ErrNotFound", err)
	}

	// Reopen from disk.
	_ = s.Close()
	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	d, err := reopened.Get(ctx, Products, "p1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if !strings.Contains(string(d.Body), "A2") {
		t.Fatalf("reopened body = %s", d.Body)
	}
}

func TestExecRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	boom := errors.New("boom")

	err := s.Exec(ctx, func(ctx context.Context) error {
		if err := s.Put(ctx, Orders, "o1", json.RawMessage(`{"orderId":"o1"}`)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Exec err = %v, want boom", err)
	}
	docs, _ := s.List(ctx, Orders)
	if len(docs) != 0 {
		t.Fatalf("orders = %d after rollback, want 0", len(docs))
	}
}

func TestExecSeesOwnWritesAndNests(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)

	err := s.Exec(ctx, func(ctx context.Context) error {
		if err := s.Put(ctx, Users, "alice", json.RawMessage(`{"username":"alice"}`)); err != nil {
			return err
		}
		return s.Exec(ctx, func(ctx context.Context) error {
			_, err := s.Get(ctx, Users, "alice")
			return err
		})
	})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
}

func TestConcurrentReadModifyWriteDoesNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	if err := s.Put(ctx, Orders, "o1", json.RawMessage(`{"orderId":"o1","n":0}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Exec(ctx, func(ctx context.Context) error {
				d, err := s.Get(ctx, Orders, "o1")
				if err != nil {
					return err
				}
				var v struct {
					OrderID string `json:"orderId"`
					N       int    `json:"n"`
				}
				if err := json.Unmarshal(d.Body, &v); err != nil {
					return err
				}
				v.N++
				body, _ := json.Marshal(v)
				return s.Put(ctx, Orders, "o1", body)
			})
			if err != nil {
				t.Errorf("Exec: %v", err)
			}
		}()
	}
	wg.Wait()

	d, _ := s.Get(ctx, Orders, "o1")
	var v struct {
		N int `json:"n"`
	}
	_ = json.Unmarshal(d.Body, &v)
	if v.N != workers {
		t.Fatalf("n = %d, want %d", v.N, workers)
	}
}

func TestOpenFileSkipsEntriesWithoutIdentifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	raw := `{"products":[{"id":"p1"},{"title":"no id"}],"users":[{"username":"admin","passwordHash":"x"}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer s.Close()

	products, _ := s.List(context.Background(), Products)
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1", len(products))
	}
	orders, _ := s.List(context.Background(), Orders)
	if orders == nil || len(orders) != 0 {
		t.Fatalf("orders = %v, want empty collection", orders)
	}
	if _, err := s.Get(context.Background(), Users, "admin"); err != nil {
		t.Fatalf("Get admin: %v", err)
	}
}

func TestClosedStoreRejectsWrites(t *testing.T) {
	s, _ := openTemp(t)
	_ = s.Close()
	err := s.Put(context.Background(), Products, "p1", json.RawMessage(`{"id":"p1"}`))
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Put after close = %v, want ErrClosed", err)
	}
}

func TestUnknownCollection(t *testing.T) {
	s, _ := openTemp(t)
	if _, err := s.List(context.Background(), Collection("carts")); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("err = %v, want ErrUnknownCollection", err)
	}
}

func TestOpenFileRejectsSecondOpener(t *testing.T) {
	s, path := openTemp(t)

	if _, err := OpenFile(path); !errors.Is(err, ErrLocked) {
		t.Fatalf("second OpenFile = %v, want ErrLocked", err)
	}

	_ = s.Close()
	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile after Close: %v", err)
	}
	_ = reopened.Close()
}

func TestExecCommitsWhenContextCancelledMidWrite(t *testing.T) {
	s, path := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := s.Exec(ctx, func(ctx context.Context) error {
		if err := s.Put(ctx, Products, "p1", json.RawMessage(`{"id":"p1"}`)); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if err != nil {
		t.Fatalf("Exec = %v, want the committed result", err)
	}
	if _, err := s.Get(context.Background(), Products, "p1"); err != nil {
		t.Fatalf("Get p1: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), `"p1"`) {
		t.Fatalf("p1 not persisted: %s", raw)
	}
}
