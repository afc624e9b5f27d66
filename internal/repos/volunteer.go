package repos

import (
	"context"

	"github.com/gracechapel/outreach-backend/internal/clients/recordstore"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/types"
)

type VolunteerRepo interface {
	GetByID(ctx context.Context, id string) (*types.Volunteer, error)
	// ListActiveFollowUp returns active volunteers holding the follow-up
	// role, the reassignment candidate pool.
	ListActiveFollowUp(ctx context.Context) ([]*types.Volunteer, error)
}

type volunteerRepo struct {
	store  recordstore.Client
	schema recordstore.Schema
	log    *logger.Logger
}

func NewVolunteerRepo(store recordstore.Client, schema recordstore.Schema, baseLog *logger.Logger) VolunteerRepo {
	return &volunteerRepo{store: store, schema: schema, log: baseLog.With("repo", "VolunteerRepo")}
}

func (vr *volunteerRepo) GetByID(ctx context.Context, id string) (*types.Volunteer, error) {
	rec, err := getRecordByID(ctx, vr.store, vr.schema.Volunteers, id)
	if err != nil {
		return nil, err
	}
	return volunteerFromRecord(rec), nil
}

func (vr *volunteerRepo) ListActiveFollowUp(ctx context.Context) ([]*types.Volunteer, error) {
	recs, err := vr.store.List(ctx, vr.schema.Volunteers, recordstore.ListOptions{
		FilterFormula: recordstore.And(
			recordstore.FieldEquals(fldRole, types.RoleFollowUp),
			"{"+fldActive+"}=TRUE()",
		),
	})
	if err != nil {
		return nil, err
	}
	out := make([]*types.Volunteer, 0, len(recs))
	for i := range recs {
		out = append(out, volunteerFromRecord(&recs[i]))
	}
	return out, nil
}

func volunteerFromRecord(rec *recordstore.Record) *types.Volunteer {
	return &types.Volunteer{
		ID:     rec.ID,
		Name:   fstr(rec.Fields, fldName),
		Role:   fstr(rec.Fields, fldRole),
		Active: fbool(rec.Fields, fldActive),
	}
}
