package repos

import (
	"time"

	"github.com/gracechapel/outreach-backend/internal/clients/recordstore"
)

// Field names inside each remote table. Unlike table names these are fixed
// by the intake form templates, so they live in code.
const (
	fldPhone             = "Phone"
	fldEmail             = "Email"
	fldFirstName         = "First Name"
	fldLastName          = "Last Name"
	fldAddress           = "Address"
	fldStatus            = "Status"
	fldSource            = "Source"
	fldDateFirstCaptured = "Date First Captured"
	fldFollowUpOwner     = "Follow-up Owner"
	fldFirstService      = "First Service Attended"
	fldMembershipDone    = "Membership Completed"
	fldFirstVisit        = "First Visit"
	fldLastVisit         = "Last Visit"
	fldVisitCount        = "Visit Count"
	fldFirstFollowUp     = "First Follow-up"
	fldLastFollowUp      = "Last Follow-up"

	fldName   = "Name"
	fldRole   = "Role"
	fldActive = "Active"

	fldMember       = "Member"
	fldVolunteer    = "Volunteer"
	fldAssignedDate = "Assigned Date"
	fldDueDate      = "Due Date"

	// Lookup columns surfacing RECORD_ID() of the linked record. Filter
	// formulas resolve a link field to its primary-field value, so queries
	// by record ID must go through these instead of the link itself. The
	// base templates define them next to each link field.
	fldMemberRecID    = "Member Record ID"
	fldVolunteerRecID = "Volunteer Record ID"
	fldServiceRecID   = "Service Record ID"

	fldService     = "Service"
	fldServiceDate = "Service Date"
	fldPresent     = "Present"
	fldSourceForm  = "Source Form"

	fldProgramName    = "Program"
	fldSession1Done   = "Session 1 Completed"
	fldSession2Done   = "Session 2 Completed"
	fldSession3Done   = "Session 3 Completed"
	fldSession4Done   = "Session 4 Completed"
	fldSession1Date   = "Session 1 Date"
	fldSession2Date   = "Session 2 Date"
	fldSession3Date   = "Session 3 Date"
	fldSession4Date   = "Session 4 Date"
	fldCompletionDate = "Completion Date"
)

// ---------- field readers ----------

func fstr(f recordstore.Fields, key string) string {
	v, ok := f[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// flink reads the first ID out of a linked-record field, which the remote
// API returns as an array of record IDs.
func flink(f recordstore.Fields, key string) string {
	v, ok := f[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			s, _ := t[0].(string)
			return s
		}
	case []string:
		if len(t) > 0 {
			return t[0]
		}
	}
	return ""
}

func fbool(f recordstore.Fields, key string) bool {
	v, ok := f[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func fint(f recordstore.Fields, key string) int {
	v, ok := f[key]
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	}
	return 0
}

func ftime(f recordstore.Fields, key string) *time.Time {
	s := fstr(f, key)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ---------- field writers ----------

func setStr(f recordstore.Fields, key, v string) {
	if v != "" {
		f[key] = v
	}
}

func setLink(f recordstore.Fields, key, id string) {
	if id != "" {
		f[key] = []string{id}
	}
}

func setTime(f recordstore.Fields, key string, t *time.Time) {
	if t != nil && !t.IsZero() {
		f[key] = t.UTC().Format(time.RFC3339)
	}
}
