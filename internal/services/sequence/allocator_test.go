// internal/services/sequence/allocator_test.go
package sequence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"loan-management-service/internal/common/config"
	"loan-management-service/internal/common/database"
	apperrors "loan-management-service/internal/common/errors"
	"loan-management-service/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var formNumberPattern = regexp.MustCompile(`^LMS\d{8}\d{4}$`)

func newTestAllocator(store database.DocumentStore) *Allocator {
	return NewAllocator(store, logger.NewNoOpLogger(), config.SequenceConfig{
		MaxRetries:  3,
		BackoffStep: 0,
	})
}

func TestAllocator_FormatAndSequence(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	alloc := newTestAllocator(store)
	alloc.now = func() time.Time {
		return time.Date(2025, time.September, 8, 10, 0, 0, 0, time.UTC)
	}

	for i := 1; i <= 5; i++ {
		number, err := alloc.Allocate(ctx)
		require.NoError(t, err)
		assert.Regexp(t, formNumberPattern, number)
		assert.Equal(t, fmt.Sprintf("LMS20250908%04d", i), number)
	}

	data, err := store.Get(ctx, "form_sequences/20250908")
	require.NoError(t, err)
	assert.Equal(t, float64(5), data["lastNumber"])
}

func TestAllocator_ConcurrentAllocationsAreDistinct(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()

	const workers = 8
	var (
		mu      sync.Mutex
		numbers = map[string]bool{}
		wg      sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// generous retry budget: every concurrent allocator conflicts
			// with the winners of earlier rounds
			alloc := NewAllocator(store, logger.NewNoOpLogger(), config.SequenceConfig{
				MaxRetries:  workers + 2,
				BackoffStep: 1,
			})
			number, err := alloc.Allocate(ctx)
			require.NoError(t, err)
			mu.Lock()
			assert.False(t, numbers[number], "duplicate form number %s", number)
			numbers[number] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, numbers, workers)

	data, err := store.Get(ctx, "form_sequences/"+time.Now().UTC().Format("20060102"))
	require.NoError(t, err)
	assert.Equal(t, float64(workers), data["lastNumber"])
}

type conflictingStore struct {
	*database.MemoryStore
	calls int
}

func (s *conflictingStore) RunTransaction(ctx context.Context, fn func(tx database.Tx) error) error {
	s.calls++
	return database.ErrConflict
}

func TestAllocator_ExhaustedRetries(t *testing.T) {
	store := &conflictingStore{MemoryStore: database.NewMemoryStore()}
	alloc := newTestAllocator(store)

	_, err := alloc.Allocate(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, store.calls)

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeAllocationFailed, stdErr.Code)
}

func TestAllocator_DayRollover(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	alloc := newTestAllocator(store)

	day := time.Date(2025, time.September, 8, 23, 59, 0, 0, time.UTC)
	alloc.now = func() time.Time { return day }

	first, err := alloc.Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "LMS202509080001", first)

	day = day.Add(2 * time.Minute) // past midnight
	second, err := alloc.Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "LMS202509090001", second)
}

func TestAllocator_DateBucketIsUTC(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	alloc := newTestAllocator(store)

	// 01:30 IST on the 9th is still 20:00 UTC on the 8th
	ist := time.FixedZone("IST", 5*3600+1800)
	alloc.now = func() time.Time {
		return time.Date(2025, time.September, 9, 1, 30, 0, 0, ist)
	}

	number, err := alloc.Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "LMS202509080001", number)

	_, err = store.Get(ctx, "form_sequences/20250908")
	require.NoError(t, err)
}

func TestAllocator_ContextCancelledDuringBackoff(t *testing.T) {
	store := &conflictingStore{MemoryStore: database.NewMemoryStore()}
	alloc := NewAllocator(store, logger.NewNoOpLogger(), config.SequenceConfig{
		MaxRetries:  3,
		BackoffStep: 50,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := alloc.Allocate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
