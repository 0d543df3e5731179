// internal/services/sequence/allocator.go
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loan-management-service/internal/common/config"
	"loan-management-service/internal/common/database"
	apperrors "loan-management-service/internal/common/errors"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/common/metrics"
	"loan-management-service/internal/models"
)

const (
	collection = "form_sequences"
	prefix     = "LMS"
)

// Allocator issues unique, gap-free form numbers of the shape
// LMS<YYYYMMDD><NNNN> by incrementing a per-day counter document inside a
// transaction. Concurrent allocations against the same day conflict, so the
// whole transaction is retried with a linearly growing backoff.
type Allocator struct {
	store      database.DocumentStore
	log        logger.Logger
	maxRetries int
	backoff    time.Duration

	now func() time.Time
}

// NewAllocator creates a form number allocator.
func NewAllocator(store database.DocumentStore, log logger.Logger, cfg config.SequenceConfig) *Allocator {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Allocator{
		store:      store,
		log:        log,
		maxRetries: maxRetries,
		backoff:    time.Duration(cfg.BackoffStep) * time.Millisecond,
		now:        time.Now,
	}
}

// Allocate reserves the next form number for the current day. The day is
// re-derived on every attempt so that an allocation retried across midnight
// lands on the new day's counter.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		dateKey := a.now().UTC().Format("20060102")

		number, err := a.tryAllocate(ctx, dateKey)
		if err == nil {
			metrics.SequenceAllocations.WithLabelValues("success").Inc()
			metrics.SequenceRetryAttempts.Observe(float64(attempt))
			a.log.Debug("form number allocated", map[string]interface{}{
				"formNumber": number,
				"attempt":    attempt,
			})
			return number, nil
		}

		lastErr = err
		if errors.Is(err, database.ErrConflict) {
			metrics.SequenceConflicts.Inc()
			a.log.Warn("form number allocation conflict, retrying", map[string]interface{}{
				"date":    dateKey,
				"attempt": attempt,
			})
		} else {
			a.log.WithError(err).Error("form number allocation attempt failed", map[string]interface{}{
				"date":    dateKey,
				"attempt": attempt,
			})
		}

		if attempt < a.maxRetries {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(a.backoff * time.Duration(attempt)):
			}
		}
	}

	metrics.SequenceAllocations.WithLabelValues("failure").Inc()
	return "", apperrors.NewAllocationFailedError(a.maxRetries, lastErr)
}

func (a *Allocator) tryAllocate(ctx context.Context, dateKey string) (string, error) {
	path := collection + "/" + dateKey
	var next int64

	err := a.store.RunTransaction(ctx, func(tx database.Tx) error {
		data, err := tx.Get(path)
		switch {
		case errors.Is(err, database.ErrNotFound):
			next = 1
			seq := models.FormSequence{
				Date:       dateKey,
				LastNumber: next,
				CreatedAt:  a.now().UTC(),
				UpdatedAt:  a.now().UTC(),
			}
			m, err := database.ToMap(seq)
			if err != nil {
				return err
			}
			return tx.Set(path, m)
		case err != nil:
			return err
		}

		last, _ := data["lastNumber"].(float64)
		next = int64(last) + 1
		return tx.Update(path, map[string]interface{}{
			"lastNumber": next,
			"updatedAt":  a.now().UTC().Format(time.RFC3339Nano),
		})
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%s%04d", prefix, dateKey, next), nil
}
