// internal/common/database/firestore.go
package database

import (
	"context"
	"fmt"

	"loan-management-service/internal/common/config"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is the DocumentStore backed by Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestore creates a Firestore-backed store for the configured project.
func NewFirestore(ctx context.Context, cfg config.StoreConfig) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Get(ctx context.Context, path string) (map[string]interface{}, error) {
	if _, err := splitPath(path); err != nil {
		return nil, err
	}
	snap, err := s.client.Doc(path).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	return snap.Data(), nil
}

func (s *FirestoreStore) Set(ctx context.Context, path string, data map[string]interface{}) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	if _, err := s.client.Doc(path).Set(ctx, data); err != nil {
		return mapFirestoreError(err)
	}
	return nil
}

func (s *FirestoreStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	if _, err := s.client.Doc(path).Update(ctx, toUpdates(fields)); err != nil {
		return mapFirestoreError(err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, path string) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	if _, err := s.client.Doc(path).Delete(ctx); err != nil {
		return mapFirestoreError(err)
	}
	return nil
}

func (s *FirestoreStore) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	query := s.client.Collection(collection).Query
	for _, f := range q.Filters {
		query = query.Where(f.Path, "==", f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		// secondary order on the document id keeps paging stable across
		// records sharing an OrderBy value
		query = query.OrderBy(q.OrderBy, dir).OrderBy(firestore.DocumentID, dir)
		if q.StartAfter != nil {
			if q.StartAfterID != "" {
				query = query.StartAfter(q.StartAfter, q.StartAfterID)
			} else {
				query = query.StartAfter(q.StartAfter)
			}
		}
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	it := query.Documents(ctx)
	defer it.Stop()

	var out []Document
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapFirestoreError(err)
		}
		out = append(out, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return out, nil
}

func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(&firestoreTx{client: s.client, tx: tx})
	}, firestore.MaxAttempts(1))
	return mapFirestoreError(err)
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) Get(path string) (map[string]interface{}, error) {
	if _, err := splitPath(path); err != nil {
		return nil, err
	}
	snap, err := t.tx.Get(t.client.Doc(path))
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	return snap.Data(), nil
}

func (t *firestoreTx) Set(path string, data map[string]interface{}) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	return t.tx.Set(t.client.Doc(path), data)
}

func (t *firestoreTx) Update(path string, fields map[string]interface{}) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	return t.tx.Update(t.client.Doc(path), toUpdates(fields))
}

func toUpdates(fields map[string]interface{}) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	return updates
}

func mapFirestoreError(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.Aborted, codes.AlreadyExists, codes.FailedPrecondition:
		return ErrConflict
	}
	return err
}
