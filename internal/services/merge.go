package services

import (
	"time"

	"github.com/gracechapel/outreach-backend/internal/types"
)

type MergeAction string

const (
	MergeCreate   MergeAction = "create"
	MergeUpdate   MergeAction = "update"
	MergeConflict MergeAction = "conflict"
)

type MergeResult struct {
	Action MergeAction
	// Person is the record to persist (create or update). Nil on conflict.
	Person *types.Person
	Reason string
}

// Merge computes the canonical record an event produces against the
// currently stored one (nil when the matcher found nothing).
//
// The merge is field-level: an incoming value only ever fills an empty
// stored field, so a blank address on a later form cannot clobber a known
// one. Status moves by max(current, channel minimum) and never back.
// Source survives from first creation; DateFirstCaptured keeps the minimum.
func Merge(existing *types.Person, ev *types.IntakeEvent, now time.Time) MergeResult {
	capturedAt := ev.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}

	if existing == nil {
		if ev.Channel == types.ChannelReturner {
			// Returners must already exist; creating one here would
			// mint a duplicate identity the next evangelism or
			// first-timer event can never reach.
			return MergeResult{Action: MergeConflict, Reason: "returner event matched no existing member"}
		}
		implied, ok := ev.Channel.ImpliedStatus()
		if !ok {
			return MergeResult{Action: MergeConflict, Reason: "channel cannot create a member record"}
		}
		p := &types.Person{
			Phone:             NormalizePhone(ev.Phone),
			Email:             NormalizeEmail(ev.Email),
			FirstName:         ev.FirstName,
			LastName:          ev.LastName,
			Address:           ev.Address,
			Status:            implied,
			Source:            ev.Channel,
			DateFirstCaptured: capturedAt,
		}
		if ev.ServiceID != "" {
			p.FirstServiceAttended = ev.ServiceID
		}
		return MergeResult{Action: MergeCreate, Person: p}
	}

	merged := *existing

	fillEmpty(&merged.Phone, NormalizePhone(ev.Phone))
	fillEmpty(&merged.Email, NormalizeEmail(ev.Email))
	fillEmpty(&merged.FirstName, ev.FirstName)
	fillEmpty(&merged.LastName, ev.LastName)
	fillEmpty(&merged.Address, ev.Address)
	fillEmpty(&merged.FirstServiceAttended, ev.ServiceID)

	if implied, ok := ev.Channel.ImpliedStatus(); ok {
		merged.Status = types.MaxStatus(merged.Status, implied)
	}

	if merged.DateFirstCaptured.IsZero() || capturedAt.Before(merged.DateFirstCaptured) {
		merged.DateFirstCaptured = capturedAt
	}

	// merged.Source deliberately untouched.

	return MergeResult{Action: MergeUpdate, Person: &merged}
}

func fillEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}
