// internal/services/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"loan-management-service/internal/common/database"
	apperrors "loan-management-service/internal/common/errors"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/common/metrics"
	"loan-management-service/internal/models"
	"loan-management-service/internal/services/validation"
)

const collection = "loan_applications"

// NumberAllocator issues unique form numbers.
type NumberAllocator interface {
	Allocate(ctx context.Context) (string, error)
}

// CounterAdjuster applies best-effort dashboard counter adjustments.
type CounterAdjuster interface {
	Adjust(ctx context.Context, counter string, delta int64)
	AdjustAll(ctx context.Context, deltas map[string]int64)
}

// DocumentSanitizer drops invalid upload slots before persistence.
type DocumentSanitizer interface {
	Sanitize(documents map[string]models.Document) map[string]models.Document
}

// DecisionNotifier delivers approval/rejection notices to the applicant.
type DecisionNotifier interface {
	NotifyDecision(ctx context.Context, app *models.LoanApplication)
}

// SearchIndexer mirrors application records into the search index.
type SearchIndexer interface {
	Index(ctx context.Context, app *models.LoanApplication)
}

// Service owns the application record lifecycle: creation with an allocated
// form number, detail updates, and status transitions driven by the
// transition table. Counter adjustments, notifications and search indexing
// are best-effort side effects that never fail the primary write.
type Service struct {
	store     database.DocumentStore
	allocator NumberAllocator
	counters  CounterAdjuster
	documents DocumentSanitizer
	notifier  DecisionNotifier
	indexer   SearchIndexer
	log       logger.Logger

	now func() time.Time
}

// NewService wires the application lifecycle service. notifier and indexer
// may be nil.
func NewService(
	store database.DocumentStore,
	allocator NumberAllocator,
	counters CounterAdjuster,
	documents DocumentSanitizer,
	notifier DecisionNotifier,
	indexer SearchIndexer,
	log logger.Logger,
) *Service {
	return &Service{
		store:     store,
		allocator: allocator,
		counters:  counters,
		documents: documents,
		notifier:  notifier,
		indexer:   indexer,
		log:       log,
		now:       time.Now,
	}
}

// Create allocates a form number and persists a new application in the given
// initial status (draft or submitted). The form number doubles as the record
// id. totalApplications and the initial status counter are incremented after
// the write succeeds.
func (s *Service) Create(ctx context.Context, app *models.LoanApplication, initial models.Status, createdBy string) (*models.LoanApplication, error) {
	if initial != models.StatusDraft && initial != models.StatusSubmitted {
		return nil, apperrors.NewInvalidTransitionError("", string(initial))
	}

	formNumber, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	app.ID = formNumber
	app.FormNumber = formNumber
	app.Status = initial
	app.CreatedBy = createdBy
	app.CreatedAt = now
	app.UpdatedAt = now
	app.Timestamps = models.Timestamps{Created: now, LastModified: now}
	app.StatusTimestamps = map[string]time.Time{string(initial): now}
	if initial == models.StatusSubmitted {
		app.SubmittedAt = &now
	}

	validation.ApplyTotals(&app.LoanDetails)
	if s.documents != nil && len(app.Documents) > 0 {
		app.Documents = s.documents.Sanitize(app.Documents)
	}

	data, err := database.ToMap(app)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, s.path(formNumber), data); err != nil {
		return nil, apperrors.NewStoreWriteFailedError(err)
	}

	s.counters.Adjust(ctx, models.CounterTotal, 1)
	s.counters.Adjust(ctx, models.CounterFor(initial), 1)
	s.index(ctx, app)

	s.log.Info("application created", map[string]interface{}{
		"formNumber": formNumber,
		"status":     string(initial),
		"createdBy":  createdBy,
	})
	return app, nil
}

// Get loads an application by id. An absent record returns (nil, nil).
func (s *Service) Get(ctx context.Context, id string) (*models.LoanApplication, error) {
	data, err := s.store.Get(ctx, s.path(id))
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreReadFailedError(err)
	}

	var app models.LoanApplication
	if err := database.FromMap(data, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Update replaces the editable detail sections of an existing application
// and refreshes its modification timestamps. Status is not touched here;
// transitions go through Apply.
func (s *Service) Update(ctx context.Context, id string, details models.ApplicantDetails, loan models.LoanDetails, surety models.SuretyDetails, documents map[string]models.Document) (*models.LoanApplication, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, apperrors.NewRecordNotFoundError(id)
	}

	now := s.now().UTC()
	app.ApplicantDetails = details
	app.LoanDetails = loan
	app.SuretyDetails = surety
	app.UpdatedAt = now
	app.Timestamps.LastModified = now

	validation.ApplyTotals(&app.LoanDetails)
	if s.documents != nil {
		app.Documents = s.documents.Sanitize(documents)
	} else {
		app.Documents = documents
	}

	data, err := database.ToMap(app)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, s.path(id), data); err != nil {
		return nil, apperrors.NewStoreWriteFailedError(err)
	}

	s.index(ctx, app)
	return app, nil
}

// Delete removes an application record and rolls its counters back. The form
// number is never reissued; the sequence document keeps counting forward.
func (s *Service) Delete(ctx context.Context, id string) error {
	app, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if app == nil {
		return apperrors.NewRecordNotFoundError(id)
	}

	if err := s.store.Delete(ctx, s.path(id)); err != nil {
		return apperrors.NewStoreWriteFailedError(err)
	}

	deltas := map[string]int64{models.CounterTotal: -1}
	if counter := models.CounterFor(app.Status); counter != "" {
		deltas[counter] = -1
	}
	s.counters.AdjustAll(ctx, deltas)

	s.log.Info("application deleted", map[string]interface{}{"formNumber": id})
	return nil
}

// Apply runs a lifecycle event against an application. The transition table
// decides the new status and the counter deltas; illegal events fail with an
// invalid-transition error before anything is written.
func (s *Service) Apply(ctx context.Context, id string, event Event) (*models.LoanApplication, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, apperrors.NewRecordNotFoundError(id)
	}

	from := app.Status
	next, deltas, err := Transition(from, event)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	fields := map[string]interface{}{
		"status":                  string(next),
		"updatedAt":               now.Format(time.RFC3339Nano),
		"timestamps.lastModified": now.Format(time.RFC3339Nano),
		fmt.Sprintf("statusTimestamps.%s", next): now.Format(time.RFC3339Nano),
	}
	if event == EventSubmit {
		fields["submittedAt"] = now.Format(time.RFC3339Nano)
	}

	if err := s.store.Update(ctx, s.path(id), fields); err != nil {
		return nil, apperrors.NewStoreWriteFailedError(err)
	}

	app.Status = next
	app.UpdatedAt = now
	app.Timestamps.LastModified = now
	if app.StatusTimestamps == nil {
		app.StatusTimestamps = map[string]time.Time{}
	}
	app.StatusTimestamps[string(next)] = now
	if event == EventSubmit {
		app.SubmittedAt = &now
	}

	s.counters.AdjustAll(ctx, deltas)
	metrics.ApplicationTransitions.WithLabelValues(string(from), string(next)).Inc()

	if next.Terminal() && s.notifier != nil {
		s.notifier.NotifyDecision(ctx, app)
	}
	s.index(ctx, app)

	s.log.Info("application status changed", map[string]interface{}{
		"formNumber": id,
		"from":       string(from),
		"to":         string(next),
	})
	return app, nil
}

// ListByCreator returns the applications created by a user, newest first.
func (s *Service) ListByCreator(ctx context.Context, uid string) ([]models.LoanApplication, error) {
	docs, err := s.store.List(ctx, collection, database.Query{
		Filters:    []database.Filter{{Path: "createdBy", Value: uid}},
		OrderBy:    "createdAt",
		Descending: true,
	})
	if err != nil {
		return nil, apperrors.NewStoreReadFailedError(err)
	}
	return decodeAll(docs)
}

// Recent returns the n most recently created applications.
func (s *Service) Recent(ctx context.Context, n int) ([]models.LoanApplication, error) {
	docs, err := s.store.List(ctx, collection, database.Query{
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      n,
	})
	if err != nil {
		return nil, apperrors.NewStoreReadFailedError(err)
	}
	return decodeAll(docs)
}

// List returns a page of applications ordered by creation time descending.
// cursor is "<createdAt>|<formNumber>" of the last record of the previous
// page; the form number disambiguates records created in the same instant.
// The returned cursor is empty when the listing is exhausted.
func (s *Service) List(ctx context.Context, limit int, cursor string) ([]models.LoanApplication, string, error) {
	q := database.Query{
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      limit,
	}
	if cursor != "" {
		q.StartAfter = cursor
		if i := strings.IndexByte(cursor, '|'); i >= 0 {
			q.StartAfter = cursor[:i]
			q.StartAfterID = cursor[i+1:]
		}
	}

	docs, err := s.store.List(ctx, collection, q)
	if err != nil {
		return nil, "", apperrors.NewStoreReadFailedError(err)
	}

	apps, err := decodeAll(docs)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if limit > 0 && len(apps) == limit {
		last := apps[len(apps)-1]
		next = last.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + last.FormNumber
	}
	return apps, next, nil
}

func (s *Service) index(ctx context.Context, app *models.LoanApplication) {
	if s.indexer != nil {
		s.indexer.Index(ctx, app)
	}
}

func (s *Service) path(id string) string {
	return collection + "/" + id
}

func decodeAll(docs []database.Document) ([]models.LoanApplication, error) {
	apps := make([]models.LoanApplication, 0, len(docs))
	for _, doc := range docs {
		var app models.LoanApplication
		if err := database.FromMap(doc.Data, &app); err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}
