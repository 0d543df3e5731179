// internal/common/database/memory.go
package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process DocumentStore with optimistic transactions.
// It is used by the memory backend and throughout the test suites.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]*memoryDoc
}

type memoryDoc struct {
	data    map[string]interface{}
	version int64
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*memoryDoc)}
}

func (s *MemoryStore) Get(ctx context.Context, path string) (map[string]interface{}, error) {
	if _, err := splitPath(path); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(doc.data), nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, data map[string]interface{}) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(path, deepCopy(data))
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return ErrNotFound
	}
	next := deepCopy(doc.data)
	for k, v := range fields {
		setField(next, k, deepValue(v))
	}
	doc.data = next
	doc.version++
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	prefix := strings.Trim(collection, "/") + "/"
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Document
	for path, doc := range s.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		id := strings.TrimPrefix(path, prefix)
		if strings.Contains(id, "/") {
			continue // document in a nested subcollection
		}
		if !matches(doc.data, q.Filters) {
			continue
		}
		out = append(out, Document{ID: id, Data: deepCopy(doc.data)})
	}

	if q.OrderBy != "" {
		// ties on the OrderBy value fall back to the document id so that
		// the ordering, and therefore paging, is deterministic
		sort.Slice(out, func(i, j int) bool {
			vi, _ := lookupField(out[i].Data, q.OrderBy)
			vj, _ := lookupField(out[j].Data, q.OrderBy)
			cmp := compareValues(vi, vj)
			if cmp == 0 {
				cmp = strings.Compare(out[i].ID, out[j].ID)
			}
			less := cmp < 0
			if q.Descending {
				return !less
			}
			return less
		})
		if q.StartAfter != nil {
			idx := 0
			for idx < len(out) {
				v, _ := lookupField(out[idx].Data, q.OrderBy)
				cmp := compareValues(v, q.StartAfter)
				if cmp == 0 && q.StartAfterID != "" {
					cmp = strings.Compare(out[idx].ID, q.StartAfterID)
				}
				if (q.Descending && cmp < 0) || (!q.Descending && cmp > 0) {
					break
				}
				idx++
			}
			out = out[idx:]
		}
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// RunTransaction executes fn against a snapshot of the store. At commit the
// versions of every document read or written are compared against the live
// store; any mismatch aborts with ErrConflict, leaving the caller to retry.
func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	tx := &memoryTx{store: s, reads: map[string]int64{}, writes: map[string]txWrite{}}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for path, version := range tx.reads {
		current := int64(0)
		if doc, ok := s.docs[path]; ok {
			current = doc.version
		}
		if current != version {
			return ErrConflict
		}
	}
	for path, w := range tx.writes {
		if w.merge {
			doc, ok := s.docs[path]
			if !ok {
				return fmt.Errorf("update %s: %w", path, ErrNotFound)
			}
			next := deepCopy(doc.data)
			for k, v := range w.data {
				setField(next, k, deepValue(v))
			}
			doc.data = next
			doc.version++
			continue
		}
		s.setLocked(path, deepCopy(w.data))
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) setLocked(path string, data map[string]interface{}) {
	doc, ok := s.docs[path]
	if !ok {
		doc = &memoryDoc{}
		s.docs[path] = doc
	}
	doc.data = data
	doc.version++
}

// ============================================================================
// Transaction
// ============================================================================

type txWrite struct {
	data  map[string]interface{}
	merge bool
}

type memoryTx struct {
	store  *MemoryStore
	reads  map[string]int64
	writes map[string]txWrite
}

func (t *memoryTx) Get(path string) (map[string]interface{}, error) {
	if _, err := splitPath(path); err != nil {
		return nil, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	doc, ok := t.store.docs[path]
	if !ok {
		if _, seen := t.reads[path]; !seen {
			t.reads[path] = 0
		}
		return nil, ErrNotFound
	}
	if _, seen := t.reads[path]; !seen {
		t.reads[path] = doc.version
	}
	return deepCopy(doc.data), nil
}

func (t *memoryTx) Set(path string, data map[string]interface{}) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	t.writes[path] = txWrite{data: deepCopy(data)}
	return nil
}

func (t *memoryTx) Update(path string, fields map[string]interface{}) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	if existing, ok := t.writes[path]; ok && existing.merge {
		for k, v := range fields {
			existing.data[k] = deepValue(v)
		}
		t.writes[path] = existing
		return nil
	}
	flat := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		flat[k] = deepValue(v)
	}
	t.writes[path] = txWrite{data: flat, merge: true}
	return nil
}

// ============================================================================
// Value helpers
// ============================================================================

func matches(data map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		v, ok := lookupField(data, f.Path)
		if !ok || compareValues(v, f.Value) != 0 {
			return false
		}
	}
	return true
}

func compareValues(a, b interface{}) int {
	if na, ok := toFloat(a); ok {
		if nb, ok := toFloat(b); ok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			default:
				return 0
			}
		}
	}
	sa := fmt.Sprintf("%v", a)
	sb := fmt.Sprintf("%v", b)
	return strings.Compare(sa, sb)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func deepCopy(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepValue(v)
	}
	return out
}

func deepValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopy(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = deepValue(e)
		}
		return out
	default:
		return v
	}
}
