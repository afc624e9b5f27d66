package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/repos"
	"github.com/gracechapel/outreach-backend/internal/types"
)

// ProgramWriter propagates member-program session completion. When all four
// sessions are done the program gets a completion date, and finishing the
// New Believers program stamps the person's membership date. Both writes
// are first-wins, so redelivery changes nothing.
type ProgramWriter struct {
	programs repos.ProgramRepo
	persons  repos.PersonRepo
	now      func() time.Time
	log      *logger.Logger
}

func NewProgramWriter(programs repos.ProgramRepo, persons repos.PersonRepo, baseLog *logger.Logger) *ProgramWriter {
	return &ProgramWriter{
		programs: programs,
		persons:  persons,
		now:      time.Now,
		log:      baseLog.With("service", "ProgramWriter"),
	}
}

func (w *ProgramWriter) Get(ctx context.Context, programRecordID string) (*types.MemberProgram, error) {
	return w.programs.GetByID(ctx, programRecordID)
}

// Propagate applies completion side effects for one program record.
// Returns false when the program is not yet complete or everything was
// already stamped.
func (w *ProgramWriter) Propagate(ctx context.Context, prog *types.MemberProgram) (bool, error) {
	if !prog.AllSessionsDone() {
		return false, nil
	}

	completion := prog.LatestSessionDate()
	if completion == nil {
		n := w.now()
		completion = &n
	}

	changed := false
	if prog.CompletionDate == nil {
		if err := w.programs.SetCompletionDate(ctx, prog.ID, *completion); err != nil {
			return changed, fmt.Errorf("set completion date: %w", err)
		}
		changed = true
	}

	if prog.ProgramName != types.ProgramNewBelievers || prog.PersonID == "" {
		return changed, nil
	}

	person, err := w.persons.GetByID(ctx, prog.PersonID)
	if err != nil {
		return changed, fmt.Errorf("load program member: %w", err)
	}
	if person.MembershipCompleted == nil {
		if err := w.persons.SetMembershipCompleted(ctx, person.ID, *completion); err != nil {
			return changed, fmt.Errorf("set membership completed: %w", err)
		}
		changed = true
	}
	return changed, nil
}
