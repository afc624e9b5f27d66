package repos

import (
	"context"
	"time"

	"github.com/gracechapel/outreach-backend/internal/clients/recordstore"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/types"
)

type ProgramRepo interface {
	GetByID(ctx context.Context, id string) (*types.MemberProgram, error)
	SetCompletionDate(ctx context.Context, id string, at time.Time) error
}

type programRepo struct {
	store  recordstore.Client
	schema recordstore.Schema
	log    *logger.Logger
}

func NewProgramRepo(store recordstore.Client, schema recordstore.Schema, baseLog *logger.Logger) ProgramRepo {
	return &programRepo{store: store, schema: schema, log: baseLog.With("repo", "ProgramRepo")}
}

func (pr *programRepo) GetByID(ctx context.Context, id string) (*types.MemberProgram, error) {
	rec, err := getRecordByID(ctx, pr.store, pr.schema.Programs, id)
	if err != nil {
		return nil, err
	}
	return programFromRecord(rec), nil
}

func (pr *programRepo) SetCompletionDate(ctx context.Context, id string, at time.Time) error {
	_, err := pr.store.Update(ctx, pr.schema.Programs, id, recordstore.Fields{
		fldCompletionDate: at.UTC().Format(time.RFC3339),
	})
	return err
}

func programFromRecord(rec *recordstore.Record) *types.MemberProgram {
	return &types.MemberProgram{
		ID:             rec.ID,
		PersonID:       flink(rec.Fields, fldMember),
		ProgramName:    fstr(rec.Fields, fldProgramName),
		Session1Done:   fbool(rec.Fields, fldSession1Done),
		Session2Done:   fbool(rec.Fields, fldSession2Done),
		Session3Done:   fbool(rec.Fields, fldSession3Done),
		Session4Done:   fbool(rec.Fields, fldSession4Done),
		Session1Date:   ftime(rec.Fields, fldSession1Date),
		Session2Date:   ftime(rec.Fields, fldSession2Date),
		Session3Date:   ftime(rec.Fields, fldSession3Date),
		Session4Date:   ftime(rec.Fields, fldSession4Date),
		CompletionDate: ftime(rec.Fields, fldCompletionDate),
	}
}
