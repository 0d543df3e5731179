// internal/services/application/service_test.go
package application

import (
	"context"
	"testing"
	"time"

	"loan-management-service/internal/common/config"
	"loan-management-service/internal/common/database"
	apperrors "loan-management-service/internal/common/errors"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/models"
	"loan-management-service/internal/services/documents"
	"loan-management-service/internal/services/sequence"
	"loan-management-service/internal/services/statistics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *database.MemoryStore
	stats *statistics.Service
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := database.NewMemoryStore()
	log := logger.NewNoOpLogger()
	alloc := sequence.NewAllocator(store, log, config.SequenceConfig{MaxRetries: 3, BackoffStep: 0})
	stats := statistics.NewService(store, log, config.StatisticsConfig{})
	docs := documents.NewService(log, config.UploadsConfig{MaxFileSizeMB: 3})
	svc := NewService(store, alloc, stats, docs, nil, nil, log)
	return &fixture{store: store, stats: stats, svc: svc}
}

func sampleApplication() *models.LoanApplication {
	return &models.LoanApplication{
		ApplicantDetails: models.ApplicantDetails{
			FirstName: "Ramesh",
			LastName:  "Patil",
			MobileNo:  "9876543210",
			Email:     "ramesh@example.com",
		},
		LoanDetails: models.LoanDetails{
			WorkingCapital1: 150000,
			Machinery1:      100000,
		},
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		from    models.Status
		event   Event
		want    models.Status
		wantErr bool
	}{
		{"submit draft", models.StatusDraft, EventSubmit, models.StatusSubmitted, false},
		{"review submitted", models.StatusSubmitted, EventStartReview, models.StatusUnderReview, false},
		{"approve submitted", models.StatusSubmitted, EventApprove, models.StatusApproved, false},
		{"reject submitted", models.StatusSubmitted, EventReject, models.StatusRejected, false},
		{"approve under review", models.StatusUnderReview, EventApprove, models.StatusApproved, false},
		{"reject under review", models.StatusUnderReview, EventReject, models.StatusRejected, false},
		{"submit twice", models.StatusSubmitted, EventSubmit, "", true},
		{"approve draft", models.StatusDraft, EventApprove, "", true},
		{"approve approved", models.StatusApproved, EventApprove, "", true},
		{"reject rejected", models.StatusRejected, EventReject, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := Transition(tt.from, tt.event)
			if tt.wantErr {
				require.Error(t, err)
				stdErr := apperrors.AsStandard(err)
				require.NotNil(t, stdErr)
				assert.Equal(t, apperrors.ErrCodeInvalidTransition, stdErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreate_AssignsFormNumberAndCounters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	app, err := f.svc.Create(ctx, sampleApplication(), models.StatusDraft, "user-1")
	require.NoError(t, err)

	assert.Regexp(t, `^LMS\d{12}$`, app.FormNumber)
	assert.Equal(t, app.FormNumber, app.ID)
	assert.Equal(t, models.StatusDraft, app.Status)
	assert.Equal(t, "user-1", app.CreatedBy)
	assert.Nil(t, app.SubmittedAt)
	assert.Equal(t, float64(250000), app.LoanDetails.TotalAmount)
	assert.Equal(t, "Two Lakh Fifty Thousand Rupees Only", app.LoanDetails.TotalInWords)

	stats, err := f.stats.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalApplications)
	assert.Equal(t, int64(1), stats.DraftApplications)
}

func TestCreate_RejectsDecidedInitialStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), sampleApplication(), models.StatusApproved, "user-1")
	require.Error(t, err)
}

func TestCreate_SubmittedSetsSubmittedAt(t *testing.T) {
	f := newFixture(t)

	app, err := f.svc.Create(context.Background(), sampleApplication(), models.StatusSubmitted, "user-1")
	require.NoError(t, err)
	require.NotNil(t, app.SubmittedAt)

	stats, err := f.stats.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.SubmittedApplications)
	assert.Equal(t, int64(0), stats.DraftApplications)
}

func TestDelete_RemovesRecordAndRollsBackCounters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	app, err := f.svc.Create(ctx, sampleApplication(), models.StatusSubmitted, "user-1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, app.ID))

	gone, err := f.svc.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	stats, err := f.stats.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalApplications)
	assert.Equal(t, int64(0), stats.SubmittedApplications)
}

func TestDelete_MissingRecord(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Delete(context.Background(), "LMS202509080042")
	require.Error(t, err)
	stdErr := apperrors.AsStandard(err)
	require.NotNil(t, stdErr)
	assert.Equal(t, apperrors.ErrCodeRecordNotFound, stdErr.Code)
}

func TestGet_AbsentRecordIsNilNotError(t *testing.T) {
	f := newFixture(t)
	app, err := f.svc.Get(context.Background(), "LMS202509080099")
	require.NoError(t, err)
	assert.Nil(t, app)
}

func TestApply_SubmitDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, sampleApplication(), models.StatusDraft, "user-1")
	require.NoError(t, err)

	updated, err := f.svc.Apply(ctx, created.ID, EventSubmit)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, updated.Status)
	require.NotNil(t, updated.SubmittedAt)
	assert.Contains(t, updated.StatusTimestamps, "submitted")

	reloaded, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, reloaded.Status)
	require.NotNil(t, reloaded.SubmittedAt)

	stats, err := f.stats.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalApplications)
	assert.Equal(t, int64(0), stats.DraftApplications)
	assert.Equal(t, int64(1), stats.SubmittedApplications)
}

// Counter symmetry: create submitted, approve, and only the decision
// counters move.
func TestApply_ApproveCounterSymmetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, sampleApplication(), models.StatusSubmitted, "user-1")
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, created.ID, EventApprove)
	require.NoError(t, err)

	stats, err := f.stats.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalApplications)
	assert.Equal(t, int64(0), stats.SubmittedApplications)
	assert.Equal(t, int64(1), stats.ApprovedApplications)
}

func TestApply_ReviewPathMovesNoCountersUntilDecision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, sampleApplication(), models.StatusSubmitted, "user-1")
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, created.ID, EventStartReview)
	require.NoError(t, err)

	stats, err := f.stats.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.SubmittedApplications)

	_, err = f.svc.Apply(ctx, created.ID, EventReject)
	require.NoError(t, err)

	stats, err = f.stats.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.SubmittedApplications)
	assert.Equal(t, int64(1), stats.RejectedApplications)
}

func TestApply_InvalidEventLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, sampleApplication(), models.StatusDraft, "user-1")
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, created.ID, EventApprove)
	require.Error(t, err)

	reloaded, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, reloaded.Status)
}

func TestApply_MissingRecord(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Apply(context.Background(), "LMS202509080042", EventSubmit)
	require.Error(t, err)

	stdErr := apperrors.AsStandard(err)
	require.NotNil(t, stdErr)
	assert.Equal(t, apperrors.ErrCodeRecordNotFound, stdErr.Code)
}

func TestUpdate_RefreshesDetailsAndTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, sampleApplication(), models.StatusDraft, "user-1")
	require.NoError(t, err)

	details := created.ApplicantDetails
	details.FirstName = "Suresh"
	loan := models.LoanDetails{Godown1: 500000}

	updated, err := f.svc.Update(ctx, created.ID, details, loan, created.SuretyDetails, nil)
	require.NoError(t, err)
	assert.Equal(t, "Suresh", updated.ApplicantDetails.FirstName)
	assert.Equal(t, float64(500000), updated.LoanDetails.TotalAmount)
	assert.Equal(t, "Five Lakh Rupees Only", updated.LoanDetails.TotalInWords)
	assert.Equal(t, models.StatusDraft, updated.Status)
}

func TestListByCreatorAndRecent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var base time.Time = time.Date(2025, time.September, 8, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		creator := "user-1"
		if i == 2 {
			creator = "user-2"
		}
		now := base.Add(time.Duration(i) * time.Minute)
		f.svc.now = func() time.Time { return now }
		_, err := f.svc.Create(ctx, sampleApplication(), models.StatusDraft, creator)
		require.NoError(t, err)
	}

	mine, err := f.svc.ListByCreator(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.True(t, mine[0].CreatedAt.After(mine[1].CreatedAt))

	recent, err := f.svc.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "user-2", recent[0].CreatedBy)
}

func TestList_CursorPagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	base := time.Date(2025, time.September, 8, 10, 0, 0, 0, time.UTC)
	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		now := base.Add(time.Duration(i) * time.Minute)
		f.svc.now = func() time.Time { return now }
		app, err := f.svc.Create(ctx, sampleApplication(), models.StatusDraft, "user-1")
		require.NoError(t, err)
		ids = append(ids, app.ID)
	}

	var seen []string
	cursor := ""
	for {
		page, next, err := f.svc.List(ctx, 2, cursor)
		require.NoError(t, err)
		for _, app := range page {
			seen = append(seen, app.ID)
		}
		if next == "" {
			break
		}
		cursor = next
	}

	require.Len(t, seen, 5)
	// newest first, no duplicates across pages
	for i, id := range seen {
		assert.Equal(t, ids[len(ids)-1-i], id)
	}
}

func TestList_CursorPaginationSurvivesEqualTimestamps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// every record lands on the same createdAt
	instant := time.Date(2025, time.September, 8, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return instant }

	created := map[string]bool{}
	for i := 0; i < 5; i++ {
		app, err := f.svc.Create(ctx, sampleApplication(), models.StatusDraft, "user-1")
		require.NoError(t, err)
		created[app.ID] = true
	}

	seen := map[string]bool{}
	cursor := ""
	for {
		page, next, err := f.svc.List(ctx, 2, cursor)
		require.NoError(t, err)
		for _, app := range page {
			assert.False(t, seen[app.ID], "application %s returned twice", app.ID)
			seen[app.ID] = true
		}
		if next == "" {
			break
		}
		cursor = next
	}

	assert.Equal(t, created, seen)
}
