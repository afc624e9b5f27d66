package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/repos"
	"github.com/gracechapel/outreach-backend/internal/types"
)

// RollupWriter recomputes the person's derived timestamps from attendance
// and assignment records. Rollups are always recomputed from source records
// rather than incremented, so replays and out-of-order events converge on
// the same values.
type RollupWriter struct {
	persons     repos.PersonRepo
	attendance  repos.AttendanceRepo
	assignments repos.AssignmentRepo
	log         *logger.Logger
}

func NewRollupWriter(
	persons repos.PersonRepo,
	attendance repos.AttendanceRepo,
	assignments repos.AssignmentRepo,
	baseLog *logger.Logger,
) *RollupWriter {
	return &RollupWriter{
		persons:     persons,
		attendance:  attendance,
		assignments: assignments,
		log:         baseLog.With("service", "RollupWriter"),
	}
}

func (w *RollupWriter) Recompute(ctx context.Context, personID string) error {
	visits, err := w.attendance.ListForPerson(ctx, personID)
	if err != nil {
		return fmt.Errorf("list attendance: %w", err)
	}
	assigns, err := w.assignments.ListForPerson(ctx, personID)
	if err != nil {
		return fmt.Errorf("list assignments: %w", err)
	}

	var r types.Rollups
	for _, v := range visits {
		if !v.Present {
			continue
		}
		r.VisitCount++
		if v.ServiceDate == nil {
			continue
		}
		r.FirstVisit = minTime(r.FirstVisit, v.ServiceDate)
		r.LastVisit = maxTime(r.LastVisit, v.ServiceDate)
	}
	for _, a := range assigns {
		if a.AssignedDate.IsZero() {
			continue
		}
		d := a.AssignedDate
		r.FirstFollowUp = minTime(r.FirstFollowUp, &d)
		r.LastFollowUp = maxTime(r.LastFollowUp, &d)
	}

	if err := w.persons.UpdateRollups(ctx, personID, r); err != nil {
		return fmt.Errorf("write rollups: %w", err)
	}
	return nil
}

func minTime(cur, next *time.Time) *time.Time {
	if next == nil {
		return cur
	}
	if cur == nil || next.Before(*cur) {
		return next
	}
	return cur
}

func maxTime(cur, next *time.Time) *time.Time {
	if next == nil {
		return cur
	}
	if cur == nil || next.After(*cur) {
		return next
	}
	return cur
}
