package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/repos"
	"github.com/gracechapel/outreach-backend/internal/types"
)

// AttendanceWriter upserts attendance by the (person, service) composite
// key. The remote base has no unique constraint to lean on, so the writer
// owns the look-then-write sequence; re-running it is always safe.
type AttendanceWriter struct {
	attendance repos.AttendanceRepo
	log        *logger.Logger
}

func NewAttendanceWriter(attendance repos.AttendanceRepo, baseLog *logger.Logger) *AttendanceWriter {
	return &AttendanceWriter{attendance: attendance, log: baseLog.With("service", "AttendanceWriter")}
}

// Upsert marks the person present at the service. An existing record is
// never downgraded: present stays true regardless of what is redelivered.
func (w *AttendanceWriter) Upsert(ctx context.Context, personID, serviceID string, ev *types.IntakeEvent) (*types.AttendanceRecord, error) {
	existing, err := w.attendance.FindByPersonService(ctx, personID, serviceID)
	switch {
	case err == nil:
		if !existing.Present {
			if err := w.attendance.SetPresent(ctx, existing.ID); err != nil {
				return nil, fmt.Errorf("mark attendance present: %w", err)
			}
			existing.Present = true
		}
		return existing, nil
	case errors.Is(err, repos.ErrNotFound):
		rec, err := w.attendance.Create(ctx, &types.AttendanceRecord{
			PersonID:    personID,
			ServiceID:   serviceID,
			ServiceDate: ev.ServiceDate,
			Present:     true,
			SourceForm:  ev.SourceForm,
		})
		if err != nil {
			return nil, fmt.Errorf("create attendance: %w", err)
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("lookup attendance: %w", err)
	}
}
