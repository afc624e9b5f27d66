package types

// Volunteer is a follow-up worker record in the remote base.
type Volunteer struct {
	ID     string
	Name   string
	Role   string
	Active bool
}

// RoleFollowUp marks volunteers eligible for follow-up reassignment.
const RoleFollowUp = "Follow-up"
