// internal/services/documents/documents.go
package documents

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"loan-management-service/internal/common/config"
	apperrors "loan-management-service/internal/common/errors"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/models"
)

// dataURLPattern matches the embedded-binary shape "data:<mime>;base64,<payload>".
var dataURLPattern = regexp.MustCompile(`^data:([a-zA-Z0-9]+/[a-zA-Z0-9-.+]+);base64,(.+)$`)

// docTypeLabels maps upload slot keys to display labels.
var docTypeLabels = map[string]string{
	"applicantPan":      "Applicant PAN Card",
	"applicantAadhar":   "Applicant Aadhar Card",
	"applicantPhoto":    "Applicant Passport Photo",
	"incomeCertificate": "Income Certificate",
	"bankStatement":     "Bank Statement",
	"businessLicense":   "Business License",
	"propertyPapers":    "Property Papers",
	"suretyPan":         "Surety PAN Card",
	"suretyAadhar":      "Surety Aadhar Card",
	"suretyPhoto":       "Surety Passport Photo",
	"suretyIncome":      "Surety Income Proof",
}

// Service encodes uploaded files into inline data-URL documents and vets
// stored documents before they are persisted or rendered.
type Service struct {
	log      logger.Logger
	maxBytes int64

	now func() time.Time
}

// NewService creates a document service with the configured size cap.
func NewService(log logger.Logger, cfg config.UploadsConfig) *Service {
	maxMB := cfg.MaxFileSizeMB
	if maxMB <= 0 {
		maxMB = 3
	}
	return &Service{
		log:      log,
		maxBytes: int64(maxMB) * 1024 * 1024,
		now:      time.Now,
	}
}

// Encode converts raw file bytes into a stored document. Files over the size
// cap are rejected; base64 inflates them by a third, so the cap is tighter
// than the store's own document limit.
func (s *Service) Encode(fileName, mimeType string, content []byte) (*models.Document, error) {
	size := int64(len(content))
	if size > s.maxBytes {
		return nil, apperrors.NewFileTooLargeError(fileName, size, s.maxBytes)
	}

	url := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(content))

	return &models.Document{
		URL:        url,
		FileName:   fileName,
		FileSize:   size,
		FileType:   mimeType,
		UploadedAt: s.now().UTC().Format(time.RFC3339),
		IsImage:    strings.HasPrefix(mimeType, "image/"),
		IsPDF:      mimeType == "application/pdf",
	}, nil
}

// Valid reports whether doc has all required fields and a well-formed,
// uncorrupted payload.
func (s *Service) Valid(doc models.Document) bool {
	if doc.URL == "" || doc.FileName == "" || doc.FileSize <= 0 ||
		doc.FileType == "" || doc.UploadedAt == "" {
		return false
	}
	if !strings.HasPrefix(doc.URL, "data:") || !strings.Contains(doc.URL, "base64,") {
		return false
	}
	return ValidBase64URL(doc.URL)
}

// ValidBase64URL checks the data-URL shape and decodes the head of the
// payload. A payload that decodes to HTML is an error page captured in place
// of real binary data and is treated as corrupt.
func ValidBase64URL(url string) bool {
	matches := dataURLPattern.FindStringSubmatch(url)
	if matches == nil {
		return false
	}

	payload := matches[2]
	if len(payload) > 100 {
		payload = payload[:100]
	}
	// tolerate a mid-quantum cut from the truncation above
	payload = payload[:len(payload)-len(payload)%4]
	if payload == "" {
		// 1-3 characters is shorter than any base64 quantum
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return false
	}

	head := string(decoded)
	if strings.Contains(head, "<!DOCTYPE") || strings.Contains(head, "<html") {
		return false
	}
	return true
}

// Sanitize returns documents with every invalid slot removed. Dropped slots
// are logged as warnings; they never fail the surrounding record.
func (s *Service) Sanitize(documents map[string]models.Document) map[string]models.Document {
	cleaned := make(map[string]models.Document, len(documents))
	for key, doc := range documents {
		if s.Valid(doc) {
			cleaned[key] = doc
			continue
		}
		s.log.Warn("dropping invalid document slot", map[string]interface{}{
			"slot":     key,
			"fileName": doc.FileName,
		})
	}
	return cleaned
}

// Decode extracts the mime type and raw bytes from a stored document.
func (s *Service) Decode(doc models.Document) (string, []byte, error) {
	matches := dataURLPattern.FindStringSubmatch(doc.URL)
	if matches == nil {
		return "", nil, apperrors.NewCorruptedUploadError(doc.FileName, "payload is not a base64 data URL")
	}
	raw, err := base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		return "", nil, apperrors.NewCorruptedUploadError(doc.FileName, err.Error())
	}
	return matches[1], raw, nil
}

// Label returns the display label for an upload slot key. Unknown keys are
// split on camel-case boundaries.
func Label(docType string) string {
	if label, ok := docTypeLabels[docType]; ok {
		return label
	}
	var b strings.Builder
	for i, r := range docType {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
