// internal/services/masters/service_test.go
package masters

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"loan-management-service/internal/common/config"
	"loan-management-service/internal/common/database"
	apperrors "loan-management-service/internal/common/errors"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *database.MemoryStore) {
	store := database.NewMemoryStore()
	svc := NewService(store, logger.NewNoOpLogger(), config.MastersConfig{CacheTTL: 5 * 60 * 1000})
	return svc, store
}

func seedHierarchy(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, svc.AddDistrict(ctx, models.District{Code: "D01", Name: "Pune"}))
	require.NoError(t, svc.AddTaluka(ctx, "D01", models.Taluka{Code: "T01", Name: "Haveli"}))
	require.NoError(t, svc.AddVillage(ctx, "T01", models.Village{Code: "V01", Name: "Wagholi", Pincode: "412207"}))
}

func TestHierarchyCRUD(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	seedHierarchy(t, svc)

	data, err := svc.GetMasters(ctx)
	require.NoError(t, err)
	require.Len(t, data.Districts, 1)
	require.Len(t, data.Talukas, 1)
	require.Len(t, data.Villages, 1)

	assert.True(t, data.Districts[0].Active)
	assert.Equal(t, "D01", data.Talukas[0].DistrictCode)
	// district code denormalised onto the village from its taluka
	assert.Equal(t, "D01", data.Villages[0].DistrictCode)
	assert.Equal(t, "T01", data.Villages[0].TalukaCode)
}

func TestReferentialIntegrity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	err := svc.AddTaluka(ctx, "D99", models.Taluka{Code: "T01", Name: "Haveli"})
	require.Error(t, err)
	stdErr := apperrors.AsStandard(err)
	require.NotNil(t, stdErr)
	assert.Equal(t, apperrors.ErrCodeMastersParentMissing, stdErr.Code)

	err = svc.AddVillage(ctx, "T99", models.Village{Code: "V01", Name: "Wagholi"})
	require.Error(t, err)
}

func TestAddRejectsEmptyCode(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	require.NoError(t, svc.AddDistrict(ctx, models.District{Code: "D01", Name: "Pune"}))
	require.NoError(t, svc.AddTaluka(ctx, "D01", models.Taluka{Code: "T01", Name: "Haveli"}))

	tests := []struct {
		name string
		call func() error
	}{
		{"district", func() error { return svc.AddDistrict(ctx, models.District{Name: "Nameless"}) }},
		{"taluka", func() error { return svc.AddTaluka(ctx, "D01", models.Taluka{Name: "Nameless"}) }},
		{"village", func() error { return svc.AddVillage(ctx, "T01", models.Village{Name: "Nameless"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			stdErr := apperrors.AsStandard(err)
			require.NotNil(t, stdErr)
			assert.Equal(t, apperrors.ErrCodeValidationFailed, stdErr.Code)
		})
	}
}

func TestReferentialIntegrity_InactiveParentRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	require.NoError(t, svc.AddDistrict(ctx, models.District{Code: "D01", Name: "Pune"}))
	require.NoError(t, svc.UpdateDistrict(ctx, "D01", map[string]interface{}{"active": false}))

	err := svc.AddTaluka(ctx, "D01", models.Taluka{Code: "T01", Name: "Haveli"})
	require.Error(t, err)
}

func TestDistrictTalukasAndTalukaVillages(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	seedHierarchy(t, svc)
	require.NoError(t, svc.AddTaluka(ctx, "D01", models.Taluka{Code: "T02", Name: "Mulshi"}))
	require.NoError(t, svc.UpdateTaluka(ctx, "T02", map[string]interface{}{"active": false}))

	talukas, err := svc.DistrictTalukas(ctx, "D01")
	require.NoError(t, err)
	require.Len(t, talukas, 1)
	assert.Equal(t, "T01", talukas[0].Code)

	villages, err := svc.TalukaVillages(ctx, "T01")
	require.NoError(t, err)
	require.Len(t, villages, 1)
	assert.Equal(t, "V01", villages[0].Code)
}

func TestMutationsInvalidateCache(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	require.NoError(t, svc.AddDistrict(ctx, models.District{Code: "D01", Name: "Pune"}))

	data, err := svc.GetMasters(ctx)
	require.NoError(t, err)
	require.Len(t, data.Districts, 1)

	// a mutation must be visible on the next read despite the TTL
	require.NoError(t, svc.AddDistrict(ctx, models.District{Code: "D02", Name: "Satara"}))

	data, err = svc.GetMasters(ctx)
	require.NoError(t, err)
	assert.Len(t, data.Districts, 2)
}

func TestUpdateMissingRecord(t *testing.T) {
	svc, _ := newTestService()
	err := svc.UpdateDistrict(context.Background(), "D99", map[string]interface{}{"name": "Nowhere"})
	require.Error(t, err)
	stdErr := apperrors.AsStandard(err)
	require.NotNil(t, stdErr)
	assert.Equal(t, apperrors.ErrCodeRecordNotFound, stdErr.Code)
}

func TestLegacySingleDocumentFallback(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	require.NoError(t, store.Set(ctx, "masters/locations", map[string]interface{}{
		"districts": []interface{}{
			map[string]interface{}{"code": "D01", "name": "Pune"},
		},
		"talukas": []interface{}{
			map[string]interface{}{"code": "T01", "name": "Haveli", "districtCode": "D01", "active": false},
		},
		"villages": []interface{}{
			map[string]interface{}{"code": "V01", "name": "Wagholi", "talukaCode": "T01", "districtCode": "D01", "pincode": "412207"},
		},
	}))

	data, err := svc.GetMasters(ctx)
	require.NoError(t, err)
	require.Len(t, data.Districts, 1)
	assert.True(t, data.Districts[0].Active, "missing active flag defaults to true")
	assert.False(t, data.Talukas[0].Active, "explicit flag preserved")
	assert.Equal(t, "412207", data.Villages[0].Pincode)
}

func TestNoMastersDataInEitherLayout(t *testing.T) {
	svc, _ := newTestService()

	data, err := svc.GetMasters(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data.Districts)
	assert.Empty(t, data.Talukas)
	assert.Empty(t, data.Villages)
}

func TestCache_TTLAndDedup(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(5 * time.Minute)

	current := time.Date(2025, time.September, 8, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	var fetches int64
	fetch := func(ctx context.Context) (*models.MastersData, error) {
		atomic.AddInt64(&fetches, 1)
		return &models.MastersData{}, nil
	}

	// concurrent cold reads share one fetch
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(ctx, fetch)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), atomic.LoadInt64(&fetches))

	// fresh hit
	_, err := cache.Get(ctx, fetch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&fetches))

	// TTL expiry forces a refetch
	current = current.Add(6 * time.Minute)
	_, err = cache.Get(ctx, fetch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&fetches))

	// invalidation too
	cache.Invalidate()
	_, err = cache.Get(ctx, fetch)
	require.NoError(t, err)
	assert.Equal(t, int64(3), atomic.LoadInt64(&fetches))
}
