// internal/services/search/indexer_test.go
package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"loan-management-service/internal/common/config"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTripFunc fakes the Elasticsearch transport.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(t *testing.T, fn roundTripFunc) *elasticsearch.Client {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://localhost:9200"},
		Transport: fn,
	})
	require.NoError(t, err)
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}, "X-Elastic-Product": []string{"Elasticsearch"}},
	}
}

func sampleApp() *models.LoanApplication {
	return &models.LoanApplication{
		FormNumber: "LMS202509080001",
		Status:     models.StatusSubmitted,
		ApplicantDetails: models.ApplicantDetails{
			FirstName:    "Ramesh",
			LastName:     "Patil",
			MobileNo:     "9876543210",
			District:     "D01",
			IndustryName: "Handloom",
		},
		LoanDetails: models.LoanDetails{TotalAmount: 250000},
		CreatedBy:   "user-1",
		CreatedAt:   time.Date(2025, time.September, 8, 10, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, time.September, 8, 10, 0, 0, 0, time.UTC),
	}
}

func TestIndex_WritesProjection(t *testing.T) {
	var captured *http.Request
	var payload map[string]interface{}

	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		captured = r
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		return jsonResponse(201, `{"result":"created"}`), nil
	})

	svc := NewService(client, logger.NewNoOpLogger(), config.SearchConfig{Enabled: true, Index: "loan_applications"})
	svc.Index(context.Background(), sampleApp())

	require.NotNil(t, captured)
	assert.Contains(t, captured.URL.Path, "/loan_applications/_doc/LMS202509080001")
	assert.Equal(t, "Ramesh Patil", payload["applicantName"])
	assert.Equal(t, "submitted", payload["status"])
	assert.Equal(t, float64(250000), payload["totalAmount"])
}

func TestIndex_DisabledIsNoOp(t *testing.T) {
	called := false
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		called = true
		return jsonResponse(201, `{}`), nil
	})

	svc := NewService(client, logger.NewNoOpLogger(), config.SearchConfig{Enabled: false})
	svc.Index(context.Background(), sampleApp())
	assert.False(t, called)
}

func TestIndex_SwallowsTransportFailure(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, http.ErrHandlerTimeout
	})

	svc := NewService(client, logger.NewNoOpLogger(), config.SearchConfig{Enabled: true})
	// must not panic or propagate
	svc.Index(context.Background(), sampleApp())
}

func TestSearch_ReturnsRankedFormNumbers(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		assert.Contains(t, r.URL.Path, "/loan_applications/_search")
		return jsonResponse(200, `{
			"hits": {"hits": [
				{"_id": "LMS202509080002"},
				{"_id": "LMS202509080001"}
			]}
		}`), nil
	})

	svc := NewService(client, logger.NewNoOpLogger(), config.SearchConfig{Enabled: true, Index: "loan_applications"})
	ids, err := svc.Search(context.Background(), "ramesh", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"LMS202509080002", "LMS202509080001"}, ids)
}

func TestSearch_DisabledReturnsNothing(t *testing.T) {
	svc := NewService(nil, logger.NewNoOpLogger(), config.SearchConfig{Enabled: true})
	ids, err := svc.Search(context.Background(), "ramesh", 10)
	require.NoError(t, err)
	assert.Nil(t, ids)
}
