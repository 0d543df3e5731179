// internal/services/documents/documents_test.go
package documents

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"loan-management-service/internal/common/config"
	apperrors "loan-management-service/internal/common/errors"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService(logger.NewNoOpLogger(), config.UploadsConfig{MaxFileSizeMB: 3})
}

func TestEncodeRoundTrip(t *testing.T) {
	svc := newTestService()
	content := []byte("%PDF-1.7 fake pdf body")

	doc, err := svc.Encode("statement.pdf", "application/pdf", content)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc.URL, "data:application/pdf;base64,"))
	assert.Equal(t, "statement.pdf", doc.FileName)
	assert.Equal(t, int64(len(content)), doc.FileSize)
	assert.True(t, doc.IsPDF)
	assert.False(t, doc.IsImage)
	assert.NotEmpty(t, doc.UploadedAt)

	// the encoder's own output must pass the validator
	assert.True(t, svc.Valid(*doc))

	mime, raw, err := svc.Decode(*doc)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mime)
	assert.True(t, bytes.Equal(content, raw))
}

func TestEncodeFlagsImages(t *testing.T) {
	svc := newTestService()
	doc, err := svc.Encode("photo.jpg", "image/jpeg", []byte{0xFF, 0xD8, 0xFF})
	require.NoError(t, err)
	assert.True(t, doc.IsImage)
	assert.False(t, doc.IsPDF)
}

func TestEncodeRejectsOversizedFile(t *testing.T) {
	svc := newTestService()
	_, err := svc.Encode("huge.pdf", "application/pdf", make([]byte, 3*1024*1024+1))
	require.Error(t, err)

	stdErr := apperrors.AsStandard(err)
	require.NotNil(t, stdErr)
	assert.Equal(t, apperrors.ErrCodeFileTooLarge, stdErr.Code)
}

func TestValid_RequiredFields(t *testing.T) {
	svc := newTestService()
	doc, err := svc.Encode("a.pdf", "application/pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*models.Document)
	}{
		{"missing url", func(d *models.Document) { d.URL = "" }},
		{"missing file name", func(d *models.Document) { d.FileName = "" }},
		{"zero size", func(d *models.Document) { d.FileSize = 0 }},
		{"missing file type", func(d *models.Document) { d.FileType = "" }},
		{"missing uploaded at", func(d *models.Document) { d.UploadedAt = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := *doc
			tt.mutate(&broken)
			assert.False(t, svc.Valid(broken))
		})
	}
}

func TestValid_TruncatedPayloadRejected(t *testing.T) {
	svc := newTestService()
	doc, err := svc.Encode("a.pdf", "application/pdf", []byte("%PDF-1.7 body"))
	require.NoError(t, err)

	// cut the URL before the base64 marker
	marker := strings.Index(doc.URL, "base64,")
	doc.URL = doc.URL[:marker]
	assert.False(t, svc.Valid(*doc))
}

func TestValidBase64URL(t *testing.T) {
	htmlPayload := base64.StdEncoding.EncodeToString([]byte("<!DOCTYPE html><html><body>error</body></html>"))
	htmlFragment := base64.StdEncoding.EncodeToString([]byte("oops <html lang=\"en\">"))

	tests := []struct {
		name  string
		url   string
		valid bool
	}{
		{"valid pdf", "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("%PDF-1.7")), true},
		{"not a data url", "https://example.com/file.pdf", false},
		{"no base64 marker", "data:application/pdf,plain", false},
		{"undecodable payload", "data:application/pdf;base64,!!!!", false},
		{"single character payload", "data:application/pdf;base64,!", false},
		{"sub-quantum payload", "data:application/pdf;base64,ab", false},
		{"html error page", "data:application/pdf;base64," + htmlPayload, false},
		{"embedded html tag", "data:application/pdf;base64," + htmlFragment, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidBase64URL(tt.url))
		})
	}
}

func TestSanitizeDropsInvalidSlots(t *testing.T) {
	svc := newTestService()

	good, err := svc.Encode("pan.jpg", "image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0})
	require.NoError(t, err)

	documents := map[string]models.Document{
		"applicantPan": *good,
		"bankStatement": {
			URL:        "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte("<!DOCTYPE html>")),
			FileName:   "statement.pdf",
			FileSize:   10,
			FileType:   "application/pdf",
			UploadedAt: "2025-09-08T10:00:00Z",
		},
		"suretyPhoto": {FileName: "photo.jpg"},
	}

	cleaned := svc.Sanitize(documents)
	require.Len(t, cleaned, 1)
	assert.Contains(t, cleaned, "applicantPan")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Applicant PAN Card", Label("applicantPan"))
	assert.Equal(t, "Some Custom Doc", Label("someCustomDoc"))
}
