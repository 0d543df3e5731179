// internal/services/application/transitions.go
package application

import (
	apperrors "loan-management-service/internal/common/errors"
	"loan-management-service/internal/models"
)

// Event is an action requested against an application's lifecycle.
type Event string

const (
	EventSubmit      Event = "submit"
	EventStartReview Event = "start_review"
	EventApprove     Event = "approve"
	EventReject      Event = "reject"
)

type transitionKey struct {
	from  models.Status
	event Event
}

type transitionResult struct {
	to     models.Status
	deltas map[string]int64
}

// transitionTable is the single source of truth for every legal status
// change and the counter adjustments it implies. under_review sits between
// submitted and the decision states: entering it moves no counters, the
// decision out of it debits submittedApplications.
var transitionTable = map[transitionKey]transitionResult{
	{models.StatusDraft, EventSubmit}: {
		to: models.StatusSubmitted,
		deltas: map[string]int64{
			models.CounterDraft:     -1,
			models.CounterSubmitted: 1,
		},
	},
	{models.StatusSubmitted, EventStartReview}: {
		to:     models.StatusUnderReview,
		deltas: nil,
	},
	{models.StatusSubmitted, EventApprove}: {
		to: models.StatusApproved,
		deltas: map[string]int64{
			models.CounterSubmitted: -1,
			models.CounterApproved:  1,
		},
	},
	{models.StatusSubmitted, EventReject}: {
		to: models.StatusRejected,
		deltas: map[string]int64{
			models.CounterSubmitted: -1,
			models.CounterRejected:  1,
		},
	},
	{models.StatusUnderReview, EventApprove}: {
		to: models.StatusApproved,
		deltas: map[string]int64{
			models.CounterSubmitted: -1,
			models.CounterApproved:  1,
		},
	},
	{models.StatusUnderReview, EventReject}: {
		to: models.StatusRejected,
		deltas: map[string]int64{
			models.CounterSubmitted: -1,
			models.CounterRejected:  1,
		},
	},
}

// Transition resolves the outcome of applying event to an application in
// state from. The returned delta map must not be mutated by callers.
func Transition(from models.Status, event Event) (models.Status, map[string]int64, error) {
	result, ok := transitionTable[transitionKey{from, event}]
	if !ok {
		return "", nil, apperrors.NewInvalidTransitionError(string(from), string(event))
	}
	return result.to, result.deltas, nil
}
