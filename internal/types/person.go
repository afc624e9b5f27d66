package types

import "time"

// Person is the canonical member record held in the remote base. The engine
// owns every field here; the dashboard only reads them.
type Person struct {
	ID        string
	Phone     string
	Email     string
	FirstName string
	LastName  string
	Address   string

	Status Status
	// Source is the channel that first created this record. Set once,
	// never overwritten by later merges.
	Source Channel
	// DateFirstCaptured holds the minimum captured-at across every event
	// that contributed to this record.
	DateFirstCaptured    time.Time
	FollowUpOwnerID      string
	FirstServiceAttended string
	MembershipCompleted  *time.Time

	// Rollup fields, recomputed from attendance and assignment records
	// after every write. Never merged from events.
	FirstVisit     *time.Time
	LastVisit      *time.Time
	VisitCount     int
	FirstFollowUp  *time.Time
	LastFollowUp   *time.Time
}

// HasContact reports whether the record carries at least one identity field.
func (p *Person) HasContact() bool {
	return p != nil && (p.Phone != "" || p.Email != "")
}

// Rollups are the derived person timestamps, recomputed from attendance and
// assignment records rather than carried on events.
type Rollups struct {
	FirstVisit    *time.Time
	LastVisit     *time.Time
	VisitCount    int
	FirstFollowUp *time.Time
	LastFollowUp  *time.Time
}
