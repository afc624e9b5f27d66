package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/gracechapel/outreach-backend/internal/clients/recordstore"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/types"
)

type PersonRepo interface {
	// FindByContact returns every member whose phone or email equals the
	// given normalized values. Either argument may be empty; empty fields
	// are skipped, never matched.
	FindByContact(ctx context.Context, phone, email string) ([]*types.Person, error)
	GetByID(ctx context.Context, id string) (*types.Person, error)
	Create(ctx context.Context, p *types.Person) (*types.Person, error)
	// Update writes the mergeable fields (identity, profile, status,
	// source, capture date, first service). Rollups go through
	// UpdateRollups.
	Update(ctx context.Context, p *types.Person) (*types.Person, error)
	SetFollowUpOwner(ctx context.Context, id, volunteerID string) error
	SetMembershipCompleted(ctx context.Context, id string, at time.Time) error
	UpdateRollups(ctx context.Context, id string, r types.Rollups) error
}

type personRepo struct {
	store  recordstore.Client
	schema recordstore.Schema
	log    *logger.Logger
}

func NewPersonRepo(store recordstore.Client, schema recordstore.Schema, baseLog *logger.Logger) PersonRepo {
	return &personRepo{store: store, schema: schema, log: baseLog.With("repo", "PersonRepo")}
}

func (pr *personRepo) FindByContact(ctx context.Context, phone, email string) ([]*types.Person, error) {
	var clauses []string
	if phone != "" {
		clauses = append(clauses, recordstore.FieldEquals(fldPhone, phone))
	}
	if email != "" {
		clauses = append(clauses, recordstore.FieldEquals(fldEmail, email))
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	recs, err := pr.store.List(ctx, pr.schema.Members, recordstore.ListOptions{
		FilterFormula: recordstore.Or(clauses...),
	})
	if err != nil {
		return nil, err
	}

	out := make([]*types.Person, 0, len(recs))
	for i := range recs {
		out = append(out, personFromRecord(&recs[i]))
	}
	return out, nil
}

func (pr *personRepo) GetByID(ctx context.Context, id string) (*types.Person, error) {
	rec, err := getRecordByID(ctx, pr.store, pr.schema.Members, id)
	if err != nil {
		return nil, err
	}
	return personFromRecord(rec), nil
}

func (pr *personRepo) Create(ctx context.Context, p *types.Person) (*types.Person, error) {
	rec, err := pr.store.Create(ctx, pr.schema.Members, personToFields(p))
	if err != nil {
		return nil, err
	}
	return personFromRecord(rec), nil
}

func (pr *personRepo) Update(ctx context.Context, p *types.Person) (*types.Person, error) {
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("person id required")
	}
	rec, err := pr.store.Update(ctx, pr.schema.Members, p.ID, personToFields(p))
	if err != nil {
		return nil, err
	}
	return personFromRecord(rec), nil
}

func (pr *personRepo) SetFollowUpOwner(ctx context.Context, id, volunteerID string) error {
	f := recordstore.Fields{}
	setLink(f, fldFollowUpOwner, volunteerID)
	if len(f) == 0 {
		return nil
	}
	_, err := pr.store.Update(ctx, pr.schema.Members, id, f)
	return err
}

func (pr *personRepo) SetMembershipCompleted(ctx context.Context, id string, at time.Time) error {
	_, err := pr.store.Update(ctx, pr.schema.Members, id, recordstore.Fields{
		fldMembershipDone: at.UTC().Format(time.RFC3339),
	})
	return err
}

func (pr *personRepo) UpdateRollups(ctx context.Context, id string, r types.Rollups) error {
	f := recordstore.Fields{fldVisitCount: r.VisitCount}
	setTime(f, fldFirstVisit, r.FirstVisit)
	setTime(f, fldLastVisit, r.LastVisit)
	setTime(f, fldFirstFollowUp, r.FirstFollowUp)
	setTime(f, fldLastFollowUp, r.LastFollowUp)
	_, err := pr.store.Update(ctx, pr.schema.Members, id, f)
	return err
}

func personFromRecord(rec *recordstore.Record) *types.Person {
	p := &types.Person{
		ID:                   rec.ID,
		Phone:                fstr(rec.Fields, fldPhone),
		Email:                fstr(rec.Fields, fldEmail),
		FirstName:            fstr(rec.Fields, fldFirstName),
		LastName:             fstr(rec.Fields, fldLastName),
		Address:              fstr(rec.Fields, fldAddress),
		Status:               types.Status(fstr(rec.Fields, fldStatus)),
		Source:               types.Channel(fstr(rec.Fields, fldSource)),
		FollowUpOwnerID:      flink(rec.Fields, fldFollowUpOwner),
		FirstServiceAttended: flink(rec.Fields, fldFirstService),
		MembershipCompleted:  ftime(rec.Fields, fldMembershipDone),
		VisitCount:           fint(rec.Fields, fldVisitCount),
		FirstVisit:           ftime(rec.Fields, fldFirstVisit),
		LastVisit:            ftime(rec.Fields, fldLastVisit),
		FirstFollowUp:        ftime(rec.Fields, fldFirstFollowUp),
		LastFollowUp:         ftime(rec.Fields, fldLastFollowUp),
	}
	if t := ftime(rec.Fields, fldDateFirstCaptured); t != nil {
		p.DateFirstCaptured = *t
	}
	return p
}

func personToFields(p *types.Person) recordstore.Fields {
	f := recordstore.Fields{}
	setStr(f, fldPhone, p.Phone)
	setStr(f, fldEmail, p.Email)
	setStr(f, fldFirstName, p.FirstName)
	setStr(f, fldLastName, p.LastName)
	setStr(f, fldAddress, p.Address)
	setStr(f, fldStatus, string(p.Status))
	setStr(f, fldSource, string(p.Source))
	setLink(f, fldFollowUpOwner, p.FollowUpOwnerID)
	setLink(f, fldFirstService, p.FirstServiceAttended)
	if !p.DateFirstCaptured.IsZero() {
		f[fldDateFirstCaptured] = p.DateFirstCaptured.UTC().Format(time.RFC3339)
	}
	setTime(f, fldMembershipDone, p.MembershipCompleted)
	return f
}

// getRecordByID fetches a single record via a RECORD_ID() filter, the
// lookup form shared by every repo here.
func getRecordByID(ctx context.Context, store recordstore.Client, table, id string) (*recordstore.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("record id required")
	}
	recs, err := store.List(ctx, table, recordstore.ListOptions{
		FilterFormula: fmt.Sprintf("RECORD_ID()=%s", recordstore.EscapeFormulaString(id)),
		MaxRecords:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return &recs[0], nil
}
