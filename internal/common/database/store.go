// internal/common/database/store.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// Errors
// ============================================================================

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when a transaction aborts because a document
	// it read was modified concurrently.
	ErrConflict = errors.New("transaction conflict")
)

// ============================================================================
// Types
// ============================================================================

// Document is a stored record together with its identifier.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Filter is a single equality constraint on a document field.
// Path uses dotted notation for nested fields (e.g. "applicantDetails.district").
type Filter struct {
	Path  string
	Value interface{}
}

// Query describes a filtered, ordered listing over a collection.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
	// StartAfter is a cursor value on the OrderBy field; documents with an
	// OrderBy value at or before it are skipped. StartAfterID breaks ties
	// between documents sharing the cursor value, so a page boundary inside
	// a run of equal values drops nothing.
	StartAfter   interface{}
	StartAfterID string
}

// Where appends an equality filter and returns the query for chaining.
func (q Query) Where(path string, value interface{}) Query {
	q.Filters = append(q.Filters, Filter{Path: path, Value: value})
	return q
}

// ============================================================================
// Interfaces
// ============================================================================

// Tx is the view of a store inside a transaction. Reads observe the
// transaction snapshot; writes are buffered until commit.
type Tx interface {
	Get(path string) (map[string]interface{}, error)
	Set(path string, data map[string]interface{}) error
	Update(path string, fields map[string]interface{}) error
}

// DocumentStore is a hierarchical document database. Paths alternate
// collection and document segments ("applications/LMS202509080001",
// "masters/locations/districts/D01").
type DocumentStore interface {
	Get(ctx context.Context, path string) (map[string]interface{}, error)
	Set(ctx context.Context, path string, data map[string]interface{}) error
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, collection string, q Query) ([]Document, error)
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// ============================================================================
// Helpers
// ============================================================================

// ToMap converts a struct to its stored representation via JSON tags.
// Numbers become float64 and times become RFC3339 strings, which keeps the
// representation identical across backends.
func ToMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return m, nil
}

// FromMap decodes a stored representation into a struct via JSON tags.
func FromMap(m map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func splitPath(path string) ([]string, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 || len(segments)%2 != 0 {
		return nil, fmt.Errorf("invalid document path %q", path)
	}
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("invalid document path %q", path)
		}
	}
	return segments, nil
}

// lookupField resolves a dotted path inside a document.
func lookupField(data map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = data
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// setField writes a dotted path inside a document, creating intermediate
// maps as needed.
func setField(data map[string]interface{}, path string, value interface{}) {
	parts := strings.Split(path, ".")
	cur := data
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}
