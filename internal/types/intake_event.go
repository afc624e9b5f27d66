package types

import "time"

// IntakeEvent is one webhook delivery from an intake form, already validated
// and classified by channel. Consumed once; the engine keeps no copy beyond
// the outcome ledger.
type IntakeEvent struct {
	Channel        Channel
	SourceRecordID string

	Phone     string
	Email     string
	FirstName string
	LastName  string
	Address   string

	// ServiceID links the event to a service occurrence (first-timer and
	// returner forms). Empty for evangelism captures.
	ServiceID   string
	ServiceDate *time.Time
	SourceForm  string

	// CapturedBy is the volunteer who captured the soul (evangelism only).
	CapturedBy string
	CapturedAt time.Time

	// ProgramRecordID points at the member-program record whose session
	// flags changed (program_session channel only).
	ProgramRecordID string
}
