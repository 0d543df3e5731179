// internal/services/statistics/service.go
package statistics

import (
	"context"
	"errors"
	"time"

	"loan-management-service/internal/common/config"
	"loan-management-service/internal/common/database"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/common/metrics"
	"loan-management-service/internal/models"
)

const documentPath = "statistics/dashboard"

// Service maintains the dashboard counters singleton. Adjustments are
// best-effort: a failure is logged and swallowed so that the application
// write that triggered it still succeeds. Counters never go below zero.
//
// By default adjustments are plain read-modify-write, which can lose updates
// under concurrency; setting statistics.transactional upgrades every
// adjustment to a store transaction.
type Service struct {
	store         database.DocumentStore
	log           logger.Logger
	transactional bool

	now func() time.Time
}

// NewService creates the dashboard statistics service.
func NewService(store database.DocumentStore, log logger.Logger, cfg config.StatisticsConfig) *Service {
	return &Service{
		store:         store,
		log:           log,
		transactional: cfg.Transactional,
		now:           time.Now,
	}
}

// Adjust adds delta to the named counter, clamping the result at zero.
// Errors are logged, never returned.
func (s *Service) Adjust(ctx context.Context, counter string, delta int64) {
	if counter == "" || delta == 0 {
		return
	}

	var err error
	if s.transactional {
		err = s.adjustTransactional(ctx, counter, delta)
	} else {
		err = s.adjustBestEffort(ctx, counter, delta)
	}

	if err != nil {
		metrics.StatisticsAdjustments.WithLabelValues(counter, "failure").Inc()
		s.log.WithError(err).Warn("statistics adjustment dropped", map[string]interface{}{
			"counter": counter,
			"delta":   delta,
		})
		return
	}
	metrics.StatisticsAdjustments.WithLabelValues(counter, "success").Inc()
}

// AdjustAll applies a set of counter deltas, typically produced by a status
// transition.
func (s *Service) AdjustAll(ctx context.Context, deltas map[string]int64) {
	for counter, delta := range deltas {
		s.Adjust(ctx, counter, delta)
	}
}

// Dashboard returns the current counters. A missing document reads as all
// zeroes rather than an error.
func (s *Service) Dashboard(ctx context.Context) (*models.Statistics, error) {
	data, err := s.store.Get(ctx, documentPath)
	if errors.Is(err, database.ErrNotFound) {
		return &models.Statistics{}, nil
	}
	if err != nil {
		return nil, err
	}

	var stats models.Statistics
	if err := database.FromMap(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *Service) adjustBestEffort(ctx context.Context, counter string, delta int64) error {
	data, err := s.store.Get(ctx, documentPath)
	if errors.Is(err, database.ErrNotFound) {
		return s.store.Set(ctx, documentPath, s.initialDocument(counter, delta))
	}
	if err != nil {
		return err
	}

	current, _ := data[counter].(float64)
	return s.store.Update(ctx, documentPath, map[string]interface{}{
		counter:       clamp(int64(current) + delta),
		"lastUpdated": s.now().UTC().Format(time.RFC3339Nano),
	})
}

// adjustTransactional retries on conflict. An abort means a concurrent
// adjustment committed first, so the next attempt re-reads its result and the
// delta still lands; the loop only gives up when the context does.
func (s *Service) adjustTransactional(ctx context.Context, counter string, delta int64) error {
	for {
		err := s.store.RunTransaction(ctx, func(tx database.Tx) error {
			data, err := tx.Get(documentPath)
			if errors.Is(err, database.ErrNotFound) {
				return tx.Set(documentPath, s.initialDocument(counter, delta))
			}
			if err != nil {
				return err
			}

			current, _ := data[counter].(float64)
			return tx.Update(documentPath, map[string]interface{}{
				counter:       clamp(int64(current) + delta),
				"lastUpdated": s.now().UTC().Format(time.RFC3339Nano),
			})
		})
		if !errors.Is(err, database.ErrConflict) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Service) initialDocument(counter string, delta int64) map[string]interface{} {
	now := s.now().UTC().Format(time.RFC3339Nano)
	doc := map[string]interface{}{
		models.CounterTotal:     int64(0),
		models.CounterDraft:     int64(0),
		models.CounterSubmitted: int64(0),
		models.CounterApproved:  int64(0),
		models.CounterRejected:  int64(0),
		"lastUpdated":           now,
		"createdAt":             now,
	}
	doc[counter] = clamp(delta)
	return doc
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
