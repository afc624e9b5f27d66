package repos

import (
	"context"
	"fmt"

	"github.com/gracechapel/outreach-backend/internal/clients/recordstore"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/types"
)

type AssignmentRepo interface {
	ListForPerson(ctx context.Context, personID string) ([]*types.FollowUpAssignment, error)
	// CurrentForPerson returns the latest non-terminal assignment, or nil.
	CurrentForPerson(ctx context.Context, personID string) (*types.FollowUpAssignment, error)
	// CountOpenForVolunteer computes the volunteer's live load on demand.
	// There is deliberately no cached counter: assignment records are the
	// single source of truth.
	CountOpenForVolunteer(ctx context.Context, volunteerID string) (int, error)
	Create(ctx context.Context, a *types.FollowUpAssignment) (*types.FollowUpAssignment, error)
	SetStatus(ctx context.Context, id string, status types.AssignmentStatus) error
}

type assignmentRepo struct {
	store  recordstore.Client
	schema recordstore.Schema
	log    *logger.Logger
}

func NewAssignmentRepo(store recordstore.Client, schema recordstore.Schema, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{store: store, schema: schema, log: baseLog.With("repo", "AssignmentRepo")}
}

func (ar *assignmentRepo) ListForPerson(ctx context.Context, personID string) ([]*types.FollowUpAssignment, error) {
	recs, err := ar.store.List(ctx, ar.schema.Assignments, recordstore.ListOptions{
		FilterFormula: recordstore.LinkMatches(fldMemberRecID, personID),
	})
	if err != nil {
		return nil, err
	}
	out := make([]*types.FollowUpAssignment, 0, len(recs))
	for i := range recs {
		out = append(out, assignmentFromRecord(&recs[i]))
	}
	return out, nil
}

func (ar *assignmentRepo) CurrentForPerson(ctx context.Context, personID string) (*types.FollowUpAssignment, error) {
	all, err := ar.ListForPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	var current *types.FollowUpAssignment
	for _, a := range all {
		if a.Status.Terminal() {
			continue
		}
		if current == nil || a.AssignedDate.After(current.AssignedDate) {
			current = a
		}
	}
	return current, nil
}

func (ar *assignmentRepo) CountOpenForVolunteer(ctx context.Context, volunteerID string) (int, error) {
	recs, err := ar.store.List(ctx, ar.schema.Assignments, recordstore.ListOptions{
		FilterFormula: recordstore.And(
			recordstore.LinkMatches(fldVolunteerRecID, volunteerID),
			recordstore.Or(
				recordstore.FieldEquals(fldStatus, string(types.AssignmentAssigned)),
				recordstore.FieldEquals(fldStatus, string(types.AssignmentInProgress)),
			),
		),
		FieldNames: []string{fldStatus},
	})
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

func (ar *assignmentRepo) Create(ctx context.Context, a *types.FollowUpAssignment) (*types.FollowUpAssignment, error) {
	if a == nil || a.PersonID == "" || a.VolunteerID == "" {
		return nil, fmt.Errorf("assignment person and volunteer required")
	}
	f := recordstore.Fields{}
	setLink(f, fldMember, a.PersonID)
	setLink(f, fldVolunteer, a.VolunteerID)
	setStr(f, fldStatus, string(a.Status))
	if !a.AssignedDate.IsZero() {
		setTime(f, fldAssignedDate, &a.AssignedDate)
	}
	if !a.DueDate.IsZero() {
		setTime(f, fldDueDate, &a.DueDate)
	}
	rec, err := ar.store.Create(ctx, ar.schema.Assignments, f)
	if err != nil {
		return nil, err
	}
	return assignmentFromRecord(rec), nil
}

func (ar *assignmentRepo) SetStatus(ctx context.Context, id string, status types.AssignmentStatus) error {
	_, err := ar.store.Update(ctx, ar.schema.Assignments, id, recordstore.Fields{
		fldStatus: string(status),
	})
	return err
}

func assignmentFromRecord(rec *recordstore.Record) *types.FollowUpAssignment {
	a := &types.FollowUpAssignment{
		ID:          rec.ID,
		PersonID:    flink(rec.Fields, fldMember),
		VolunteerID: flink(rec.Fields, fldVolunteer),
		Status:      types.AssignmentStatus(fstr(rec.Fields, fldStatus)),
	}
	if t := ftime(rec.Fields, fldAssignedDate); t != nil {
		a.AssignedDate = *t
	}
	if t := ftime(rec.Fields, fldDueDate); t != nil {
		a.DueDate = *t
	}
	return a
}
