package services

// OutcomeKind classifies how one event's reconciliation ended. Only Failed
// represents an error; Flagged is a terminal business state awaiting a
// human, never retried.
type OutcomeKind string

const (
	OutcomeCreated  OutcomeKind = "created"
	OutcomeUpdated  OutcomeKind = "updated"
	OutcomeReplayed OutcomeKind = "replayed"
	OutcomeSkipped  OutcomeKind = "skipped"
	OutcomeFlagged  OutcomeKind = "flagged"
	OutcomeFailed   OutcomeKind = "failed"
)

type Outcome struct {
	Kind     OutcomeKind
	PersonID string
	// Reason carries the conflict or failure description for Flagged and
	// Failed outcomes.
	Reason string
	// CandidateIDs lists the ambiguous matches behind a Flagged outcome.
	CandidateIDs []string
	// CapacityWarning decorates a successful outcome when every follow-up
	// volunteer was at capacity and the assignment was left in place.
	CapacityWarning bool
}

func failed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}

func flagged(reason string, candidates ...string) Outcome {
	return Outcome{Kind: OutcomeFlagged, Reason: reason, CandidateIDs: candidates}
}
