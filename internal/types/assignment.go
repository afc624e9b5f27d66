package types

import "time"

type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "Assigned"
	AssignmentInProgress AssignmentStatus = "In Progress"
	AssignmentCompleted  AssignmentStatus = "Completed"
	AssignmentReassigned AssignmentStatus = "Reassigned"
)

// Terminal reports whether the assignment can no longer be the person's
// current one.
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentCompleted || s == AssignmentReassigned
}

// Open reports whether the assignment counts toward its volunteer's load.
func (s AssignmentStatus) Open() bool {
	return s == AssignmentAssigned || s == AssignmentInProgress
}

// FollowUpAssignment links a person to the volunteer following them up.
// A person accumulates these over time; at most one is non-terminal.
type FollowUpAssignment struct {
	ID           string
	PersonID     string
	VolunteerID  string
	AssignedDate time.Time
	DueDate      time.Time
	Status       AssignmentStatus
}
