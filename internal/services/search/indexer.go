// internal/services/search/indexer.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"loan-management-service/internal/common/config"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// indexedApplication is the flattened projection stored in the search index.
type indexedApplication struct {
	FormNumber    string  `json:"formNumber"`
	Status        string  `json:"status"`
	ApplicantName string  `json:"applicantName"`
	MobileNo      string  `json:"mobileNo"`
	District      string  `json:"district"`
	Taluka        string  `json:"taluka"`
	IndustryName  string  `json:"industryName"`
	TotalAmount   float64 `json:"totalAmount"`
	CreatedBy     string  `json:"createdBy"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

// Service mirrors application records into Elasticsearch for dashboard
// search. Indexing is best-effort and tolerates drift: a failed write is
// logged and the store remains the source of truth.
type Service struct {
	client  *elasticsearch.Client
	log     logger.Logger
	index   string
	enabled bool
}

// NewService creates the search service. A disabled service is a no-op.
func NewService(client *elasticsearch.Client, log logger.Logger, cfg config.SearchConfig) *Service {
	index := cfg.Index
	if index == "" {
		index = "loan_applications"
	}
	return &Service{client: client, log: log, index: index, enabled: cfg.Enabled && client != nil}
}

// Index writes the searchable projection of an application. Failures are
// logged, never returned.
func (s *Service) Index(ctx context.Context, app *models.LoanApplication) {
	if !s.enabled {
		return
	}

	doc := indexedApplication{
		FormNumber:    app.FormNumber,
		Status:        string(app.Status),
		ApplicantName: strings.TrimSpace(app.ApplicantDetails.FirstName + " " + app.ApplicantDetails.LastName),
		MobileNo:      app.ApplicantDetails.MobileNo,
		District:      app.ApplicantDetails.District,
		Taluka:        app.ApplicantDetails.Taluka,
		IndustryName:  app.ApplicantDetails.IndustryName,
		TotalAmount:   app.LoanDetails.TotalAmount,
		CreatedBy:     app.CreatedBy,
		CreatedAt:     app.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:     app.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		s.log.WithError(err).Warn("failed to encode application for indexing", map[string]interface{}{
			"formNumber": app.FormNumber,
		})
		return
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: app.FormNumber,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		s.log.WithError(err).Warn("application index write failed", map[string]interface{}{
			"formNumber": app.FormNumber,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		s.log.Warn("application index write rejected", map[string]interface{}{
			"formNumber": app.FormNumber,
			"status":     res.Status(),
		})
	}
}

// Search runs a keyword query over applicant name, form number, mobile
// number and industry, returning matching form numbers ranked by relevance.
func (s *Service) Search(ctx context.Context, query string, size int) ([]string, error) {
	if !s.enabled {
		return nil, nil
	}
	if size <= 0 {
		size = 20
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"applicantName^3", "formNumber^2", "mobileNo", "industryName"},
				"type":   "best_fields",
			},
		},
	}
	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search request rejected: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
