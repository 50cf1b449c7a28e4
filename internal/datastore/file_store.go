package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore keeps the whole document in memory and rewrites the file after
// each committed write. All writes go through a single goroutine so the
// compute-then-persist window of one write never overlaps another.
type FileStore struct {
	path string
	lock *os.File

	mu   sync.RWMutex
	data map[Collection][]Document

	ops     chan *writeOp
	closing chan struct{}
	done    chan struct{}
	once    sync.Once
}

type writeOp struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	errc chan error
}

// fileTx is the working copy a write operates on until it commits.
type fileTx struct {
	owner *FileStore
	data  map[Collection][]Document
	dirty bool
}

type fileTxKey struct{}

// OpenFile loads path (creating it when missing) and starts the writer.
// The store holds an exclusive lock on path+".lock" until Close; a second
// OpenFile on the same path fails with ErrLocked.
func OpenFile(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create datastore dir: %w", err)
		}
	}
	lock, err := lockFile(path + ".lock")
	if err != nil {
		return nil, err
	}

	s, err := openLocked(path, lock)
	if err != nil {
		_ = lock.Close()
		return nil, err
	}
	go s.loop()
	return s, nil
}

func openLocked(path string, lock *os.File) (*FileStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read datastore: %w", err)
	}
	missing := errors.Is(err, fs.ErrNotExist)

	data, err := decodeDocument(raw, func(coll Collection, index int) {
		log.Warn().Str("collection", string(coll)).Int("index", index).Msg("Skipping datastore entry without identifier")
	})
	if err != nil {
		return nil, fmt.Errorf("decode datastore %s: %w", path, err)
	}

	s := &FileStore{
		path:    path,
		lock:    lock,
		data:    data,
		ops:     make(chan *writeOp),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	if missing {
		if err := s.persist(data); err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Msg("Created empty datastore")
	}
	return s, nil
}

func (s *FileStore) Driver() string { return "file" }

func (s *FileStore) loop() {
	defer close(s.done)
	for {
		select {
		case op := <-s.ops:
			op.errc <- s.apply(op)
		case <-s.closing:
			return
		}
	}
}

func (s *FileStore) apply(op *writeOp) error {
	if err := op.ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	tx := &fileTx{owner: s, data: cloneData(s.data)}
	s.mu.RUnlock()

	if err := op.fn(context.WithValue(op.ctx, fileTxKey{}, tx)); err != nil {
		return err
	}
	if !tx.dirty {
		return nil
	}
	if err := s.persist(tx.data); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

// persist writes the document to a temp file and renames it over path.
func (s *FileStore) persist(data map[Collection][]Document) error {
	raw, err := encodeDocument(data)
	if err != nil {
		return fmt.Errorf("encode datastore: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create datastore dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write datastore: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace datastore: %w", err)
	}
	return nil
}

func (s *FileStore) txFrom(ctx context.Context) *fileTx {
	if tx, ok := ctx.Value(fileTxKey{}).(*fileTx); ok && tx.owner == s {
		return tx
	}
	return nil
}

// Exec queues fn on the writer goroutine, or runs it inline when ctx already
// belongs to a write of this store.
func (s *FileStore) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}

	op := &writeOp{ctx: ctx, fn: fn, errc: make(chan error, 1)}
	select {
	case s.ops <- op:
	case <-s.closing:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// The writer owns op now and always reports its outcome, even when ctx
	// is cancelled while fn runs.
	return <-op.errc
}

func (s *FileStore) view(ctx context.Context) (map[Collection][]Document, func()) {
	if tx := s.txFrom(ctx); tx != nil {
		return tx.data, func() {}
	}
	s.mu.RLock()
	return s.data, s.mu.RUnlock
}

func (s *FileStore) List(ctx context.Context, coll Collection) ([]Document, error) {
	if err := checkCollection(coll); err != nil {
		return nil, err
	}
	data, release := s.view(ctx)
	defer release()

	out := make([]Document, len(data[coll]))
	copy(out, data[coll])
	return out, nil
}

func (s *FileStore) Get(ctx context.Context, coll Collection, id string) (Document, error) {
	if err := checkCollection(coll); err != nil {
		return Document{}, err
	}
	data, release := s.view(ctx)
	defer release()

	for _, d := range data[coll] {
		if d.ID == id {
			return d, nil
		}
	}
	return Document{}, ErrNotFound
}

func (s *FileStore) Put(ctx context.Context, coll Collection, id string, body json.RawMessage) error {
	if err := checkCollection(coll); err != nil {
		return err
	}
	tx := s.txFrom(ctx)
	if tx == nil {
		return s.Exec(ctx, func(ctx context.Context) error {
			return s.Put(ctx, coll, id, body)
		})
	}

	docs := tx.data[coll]
	for i := range docs {
		if docs[i].ID == id {
			docs[i] = Document{ID: id, Body: body}
			tx.dirty = true
			return nil
		}
	}
	tx.data[coll] = append(docs, Document{ID: id, Body: body})
	tx.dirty = true
	return nil
}

func (s *FileStore) Delete(ctx context.Context, coll Collection, id string) error {
	if err := checkCollection(coll); err != nil {
		return err
	}
	tx := s.txFrom(ctx)
	if tx == nil {
		return s.Exec(ctx, func(ctx context.Context) error {
			return s.Delete(ctx, coll, id)
		})
	}

	docs := tx.data[coll]
	for i := range docs {
		if docs[i].ID == id {
			tx.data[coll] = append(docs[:i], docs[i+1:]...)
			tx.dirty = true
			return nil
		}
	}
	return ErrNotFound
}

func (s *FileStore) Snapshot(ctx context.Context) ([]byte, error) {
	data, release := s.view(ctx)
	defer release()
	return encodeDocument(data)
}

// Close stops the writer and releases the file lock. Queued writes that have
// not started fail with ErrClosed.
func (s *FileStore) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closing)
		<-s.done
		err = s.lock.Close()
	})
	<-s.done
	return err
}

// cloneData copies every collection slice so a write can append and splice
// without touching the committed state.
func cloneData(src map[Collection][]Document) map[Collection][]Document {
	dst := make(map[Collection][]Document, len(src))
	for coll, docs := range src {
		cp := make([]Document, len(docs))
		copy(cp, docs)
		dst[coll] = cp
	}
	return dst
}
