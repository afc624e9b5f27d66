package types

import "time"

// AttendanceRecord marks a person present at one service occurrence.
// Logically unique on (PersonID, ServiceID); the remote base cannot enforce
// that, so the attendance writer upserts by lookup.
type AttendanceRecord struct {
	ID          string
	PersonID    string
	ServiceID   string
	ServiceDate *time.Time
	Present     bool
	SourceForm  string
}
