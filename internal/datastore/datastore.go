// Package datastore persists the platform's collections as JSON documents.
//
// Two backends implement Store: a single JSON file rewritten on every
// committed write, and a PostgreSQL table of JSONB documents. Writes are
// grouped with Exec so that read-modify-write sequences cannot interleave.
package datastore

import (
	"context"
	"encoding/json"
	"errors"
)

// Collection names a top-level array of the document.
type Collection string

const (
	Products   Collection = "products"
	Orders     Collection = "orders"
	Requests   Collection = "requests"
	Users      Collection = "users"
	Categories Collection = "categories"
)

// Collections lists every collection in on-disk order.
var Collections = []Collection{Products, Orders, Requests, Users, Categories}

// idFields maps each collection to the JSON key holding its identifier.
var idFields = map[Collection]string{
	Products:   "id",
	Orders:     "orderId",
	Requests:   "requestId",
	Users:      "username",
	Categories: "id",
}

var (
	ErrNotFound          = errors.New("document not found")
	ErrClosed            = errors.New("datastore closed")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrLocked            = errors.New("datastore file is in use by another process")
)

// Document is one element of a collection. Body is never mutated in place.
type Document struct {
	ID   string
	Body json.RawMessage
}

// Store is the narrow persistence interface the repositories depend on.
// List preserves insertion order; Put replaces in place or appends.
type Store interface {
	List(ctx context.Context, coll Collection) ([]Document, error)
	Get(ctx context.Context, coll Collection, id string) (Document, error)
	Put(ctx context.Context, coll Collection, id string, body json.RawMessage) error
	Delete(ctx context.Context, coll Collection, id string) error

	// Exec runs fn atomically. Store calls made with the ctx passed to fn
	// join the same unit of work; nested Exec calls run inline.
	Exec(ctx context.Context, fn func(ctx context.Context) error) error

	// Snapshot returns the whole document in the file layout.
	Snapshot(ctx context.Context) ([]byte, error)
	Driver() string
	Close() error
}

func checkCollection(coll Collection) error {
	if _, ok := idFields[coll]; !ok {
		return ErrUnknownCollection
	}
	return nil
}

// encodeDocument renders collections in the on-disk layout:
// {"products":[...],"orders":[...],...}
func encodeDocument(data map[Collection][]Document) ([]byte, error) {
	out := struct {
		Products   []json.RawMessage `json:"products"`
		Orders     []json.RawMessage `json:"orders"`
		Requests   []json.RawMessage `json:"requests"`
		Users      []json.RawMessage `json:"users"`
		Categories []json.RawMessage `json:"categories"`
	}{
		Products:   bodies(data[Products]),
		Orders:     bodies(data[Orders]),
		Requests:   bodies(data[Requests]),
		Users:      bodies(data[Users]),
		Categories: bodies(data[Categories]),
	}
	return json.MarshalIndent(out, "", "  ")
}

func bodies(docs []Document) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Body)
	}
	return out
}

// decodeDocument parses the on-disk layout. Missing collections become empty
// and elements without an identifier are reported through skip.
func decodeDocument(raw []byte, skip func(coll Collection, index int)) (map[Collection][]Document, error) {
	data := make(map[Collection][]Document, len(Collections))
	for _, c := range Collections {
		data[c] = []Document{}
	}
	if len(raw) == 0 {
		return data, nil
	}

	var top map[string][]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, err
	}
	for _, coll := range Collections {
		for i, body := range top[string(coll)] {
			id, err := extractID(coll, body)
			if err != nil || id == "" {
				if skip != nil {
					skip(coll, i)
				}
				continue
			}
			data[coll] = append(data[coll], Document{ID: id, Body: body})
		}
	}
	return data, nil
}

func extractID(coll Collection, body json.RawMessage) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", err
	}
	raw, ok := fields[idFields[coll]]
	if !ok {
		return "", nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", err
	}
	return id, nil
}
