// internal/models/statistics.go
package models

import "time"

// Statistics counter field names as stored on the dashboard singleton.
const (
	CounterTotal     = "totalApplications"
	CounterDraft     = "draftApplications"
	CounterSubmitted = "submittedApplications"
	CounterApproved  = "approvedApplications"
	CounterRejected  = "rejectedApplications"
)

// Statistics is the dashboard counters singleton. Every field is clamped to
// zero on decrement; the document is created lazily on first adjustment.
type Statistics struct {
	TotalApplications     int64     `json:"totalApplications"`
	DraftApplications     int64     `json:"draftApplications"`
	SubmittedApplications int64     `json:"submittedApplications"`
	ApprovedApplications  int64     `json:"approvedApplications"`
	RejectedApplications  int64     `json:"rejectedApplications"`
	LastUpdated           time.Time `json:"lastUpdated"`
	CreatedAt             time.Time `json:"createdAt,omitempty"`
	UpdatedAt             time.Time `json:"updatedAt,omitempty"`
}

// CounterFor maps an application status to its statistics field. The empty
// string means the status has no dedicated counter (under_review).
func CounterFor(s Status) string {
	switch s {
	case StatusDraft:
		return CounterDraft
	case StatusSubmitted:
		return CounterSubmitted
	case StatusApproved:
		return CounterApproved
	case StatusRejected:
		return CounterRejected
	}
	return ""
}

// FormSequence is the per-day allocation counter document. LastNumber only
// ever grows, by exactly one per successful allocation.
type FormSequence struct {
	Date       string    `json:"date"` // YYYYMMDD, matches the document ID
	LastNumber int64     `json:"lastNumber"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
