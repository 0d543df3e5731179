// internal/services/validation/validator.go
package validation

import (
	_ "embed"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"loan-management-service/internal/common/database"
	"loan-management-service/internal/models"
	"loan-management-service/internal/utils"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var formSchemaJSON string

// MaxLoanAmount is the ceiling on the summed loan amount (one crore).
const MaxLoanAmount = 10000000

const (
	minApplicantAge = 18
	maxApplicantAge = 65
)

// ValidationError describes a single failed rule on a field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of validating an application payload.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Validator checks application payloads against the embedded form schema
// plus the business rules the schema cannot express.
type Validator struct {
	schema *gojsonschema.Schema

	now func() time.Time
}

// NewValidator compiles the embedded form schema.
func NewValidator() (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(formSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to compile form schema: %w", err)
	}
	return &Validator{schema: schema, now: time.Now}, nil
}

// Validate checks app against the form schema and business rules. The
// returned Result carries field-level messages; err is reserved for
// validator malfunction, not bad input.
func (v *Validator) Validate(app *models.LoanApplication) (*Result, error) {
	payload, err := database.ToMap(app)
	if err != nil {
		return nil, err
	}

	schemaResult, err := v.schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	result := &Result{Valid: true}
	for _, desc := range schemaResult.Errors() {
		result.Errors = append(result.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}

	v.checkBusinessRules(app, result)

	result.Valid = len(result.Errors) == 0
	return result, nil
}

func (v *Validator) checkBusinessRules(app *models.LoanApplication, result *Result) {
	var total float64
	for _, amount := range app.LoanDetails.SubAmounts() {
		total += amount
	}
	if total > MaxLoanAmount {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "loanDetails",
			Message: "total loan amount exceeds maximum allowed limit",
		})
	}

	birthYear, err := strconv.Atoi(strings.TrimSpace(app.ApplicantDetails.Year))
	if err != nil {
		birthYear = 0
	}
	age := v.now().Year() - birthYear
	if age < minApplicantAge || age > maxApplicantAge {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "applicantDetails.year",
			Message: fmt.Sprintf("applicant must be between %d and %d years old", minApplicantAge, maxApplicantAge),
		})
	}
}

// ApplyTotals recomputes TotalAmount as the exact sum of the sub-amounts and
// rerenders TotalInWords, which is empty when the total is zero.
func ApplyTotals(l *models.LoanDetails) {
	var total float64
	for _, amount := range l.SubAmounts() {
		total += amount
	}
	l.TotalAmount = total
	if total > 0 {
		l.TotalInWords = utils.NumberToWords(int64(math.Round(total)))
	} else {
		l.TotalInWords = ""
	}
}

// ============================================================================
// Input sanitisation
// ============================================================================

var (
	scriptTagPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	jsSchemePattern  = regexp.MustCompile(`(?i)javascript:`)
	eventAttrPattern = regexp.MustCompile(`(?i)on\w+\s*=`)
)

// SanitizeString strips script tags, javascript: URLs and inline event
// handler attributes, then trims surrounding whitespace.
func SanitizeString(s string) string {
	s = scriptTagPattern.ReplaceAllString(s, "")
	s = jsSchemePattern.ReplaceAllString(s, "")
	s = eventAttrPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Sanitize walks an arbitrary JSON-shaped value and sanitises every string
// in place, mirroring the shape of the input.
func Sanitize(value interface{}) interface{} {
	switch t := value.(type) {
	case string:
		return SanitizeString(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = Sanitize(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = Sanitize(e)
		}
		return out
	default:
		return value
	}
}

// SanitizeApplication sanitises every string field of an application via its
// stored representation.
func SanitizeApplication(app *models.LoanApplication) error {
	m, err := database.ToMap(app)
	if err != nil {
		return err
	}
	cleaned, ok := Sanitize(m).(map[string]interface{})
	if !ok {
		return fmt.Errorf("sanitized payload has unexpected shape")
	}
	return database.FromMap(cleaned, app)
}
