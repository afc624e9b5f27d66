package types

import "time"

// ProgramNewBelievers is the one program whose completion marks membership.
const ProgramNewBelievers = "New Believers"

// MemberProgram tracks one person's progress through a four-session program.
type MemberProgram struct {
	ID          string
	PersonID    string
	ProgramName string

	Session1Done bool
	Session2Done bool
	Session3Done bool
	Session4Done bool

	Session1Date *time.Time
	Session2Date *time.Time
	Session3Date *time.Time
	Session4Date *time.Time

	CompletionDate *time.Time
}

// AllSessionsDone reports whether every session flag is set.
func (m *MemberProgram) AllSessionsDone() bool {
	return m != nil && m.Session1Done && m.Session2Done && m.Session3Done && m.Session4Done
}

// LatestSessionDate returns the max of the recorded session dates.
func (m *MemberProgram) LatestSessionDate() *time.Time {
	var latest *time.Time
	for _, d := range []*time.Time{m.Session1Date, m.Session2Date, m.Session3Date, m.Session4Date} {
		if d == nil {
			continue
		}
		if latest == nil || d.After(*latest) {
			latest = d
		}
	}
	return latest
}
