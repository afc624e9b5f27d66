package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/gracechapel/outreach-backend/internal/clients/recordstore"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/types"
)

type AttendanceRepo interface {
	// FindByPersonService looks up the one record for the logical
	// (person, service) key. ErrNotFound when absent.
	FindByPersonService(ctx context.Context, personID, serviceID string) (*types.AttendanceRecord, error)
	ListForPerson(ctx context.Context, personID string) ([]*types.AttendanceRecord, error)
	Create(ctx context.Context, a *types.AttendanceRecord) (*types.AttendanceRecord, error)
	SetPresent(ctx context.Context, id string) error
}

type attendanceRepo struct {
	store  recordstore.Client
	schema recordstore.Schema
	log    *logger.Logger
}

func NewAttendanceRepo(store recordstore.Client, schema recordstore.Schema, baseLog *logger.Logger) AttendanceRepo {
	return &attendanceRepo{store: store, schema: schema, log: baseLog.With("repo", "AttendanceRepo")}
}

func (atr *attendanceRepo) FindByPersonService(ctx context.Context, personID, serviceID string) (*types.AttendanceRecord, error) {
	if personID == "" || serviceID == "" {
		return nil, fmt.Errorf("person and service required")
	}
	recs, err := atr.store.List(ctx, atr.schema.Attendance, recordstore.ListOptions{
		FilterFormula: recordstore.And(
			recordstore.LinkMatches(fldMemberRecID, personID),
			recordstore.LinkMatches(fldServiceRecID, serviceID),
		),
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	// Duplicates can only come from writes outside the engine; the first
	// record wins and the rest are surfaced in logs.
	if len(recs) > 1 {
		atr.log.Warn("duplicate attendance records for composite key",
			"person_id", personID,
			"service_id", serviceID,
			"count", len(recs),
		)
	}
	return attendanceFromRecord(&recs[0]), nil
}

func (atr *attendanceRepo) ListForPerson(ctx context.Context, personID string) ([]*types.AttendanceRecord, error) {
	recs, err := atr.store.List(ctx, atr.schema.Attendance, recordstore.ListOptions{
		FilterFormula: recordstore.LinkMatches(fldMemberRecID, personID),
	})
	if err != nil {
		return nil, err
	}
	out := make([]*types.AttendanceRecord, 0, len(recs))
	for i := range recs {
		out = append(out, attendanceFromRecord(&recs[i]))
	}
	return out, nil
}

func (atr *attendanceRepo) Create(ctx context.Context, a *types.AttendanceRecord) (*types.AttendanceRecord, error) {
	if a == nil || a.PersonID == "" || a.ServiceID == "" {
		return nil, errors.New("attendance person and service required")
	}
	f := recordstore.Fields{fldPresent: a.Present}
	setLink(f, fldMember, a.PersonID)
	setLink(f, fldService, a.ServiceID)
	setStr(f, fldSourceForm, a.SourceForm)
	setTime(f, fldServiceDate, a.ServiceDate)
	rec, err := atr.store.Create(ctx, atr.schema.Attendance, f)
	if err != nil {
		return nil, err
	}
	return attendanceFromRecord(rec), nil
}

func (atr *attendanceRepo) SetPresent(ctx context.Context, id string) error {
	_, err := atr.store.Update(ctx, atr.schema.Attendance, id, recordstore.Fields{
		fldPresent: true,
	})
	return err
}

func attendanceFromRecord(rec *recordstore.Record) *types.AttendanceRecord {
	return &types.AttendanceRecord{
		ID:          rec.ID,
		PersonID:    flink(rec.Fields, fldMember),
		ServiceID:   flink(rec.Fields, fldService),
		ServiceDate: ftime(rec.Fields, fldServiceDate),
		Present:     fbool(rec.Fields, fldPresent),
		SourceForm:  fstr(rec.Fields, fldSourceForm),
	}
}
