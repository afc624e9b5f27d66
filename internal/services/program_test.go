package services

import (
	"context"
	"testing"
	"time"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/types"
)

func newTestProgramWriter(programs *fakeProgramRepo, persons *fakePersonRepo) *ProgramWriter {
	w := NewProgramWriter(programs, persons, logger.NewNop())
	w.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return w
}

func TestProgramPropagateIncompleteNoop(t *testing.T) {
	programs := newFakeProgramRepo()
	persons := newFakePersonRepo()
	w := newTestProgramWriter(programs, persons)

	p := persons.seed(&types.Person{Phone: "0801", Status: types.StatusReturner})
	programs.seed(&types.MemberProgram{
		ID: "prg1", PersonID: p.ID, ProgramName: types.ProgramNewBelievers,
		Session1Done: true, Session2Done: true, Session3Done: true,
	})

	prog, _ := programs.GetByID(context.Background(), "prg1")
	changed, err := w.Propagate(context.Background(), prog)
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if changed {
		t.Fatalf("three sessions must not complete a program")
	}
	stored, _ := programs.GetByID(context.Background(), "prg1")
	if stored.CompletionDate != nil {
		t.Fatalf("completion date stamped early")
	}
}

func TestProgramPropagateCompletionAndMembership(t *testing.T) {
	programs := newFakeProgramRepo()
	persons := newFakePersonRepo()
	w := newTestProgramWriter(programs, persons)

	p := persons.seed(&types.Person{Phone: "0801", Status: types.StatusReturner})
	s4 := time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)
	s2 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	programs.seed(&types.MemberProgram{
		ID: "prg1", PersonID: p.ID, ProgramName: types.ProgramNewBelievers,
		Session1Done: true, Session2Done: true, Session3Done: true, Session4Done: true,
		Session2Date: &s2, Session4Date: &s4,
	})

	prog, _ := programs.GetByID(context.Background(), "prg1")
	changed, err := w.Propagate(context.Background(), prog)
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if !changed {
		t.Fatalf("expected changes")
	}

	stored, _ := programs.GetByID(context.Background(), "prg1")
	if stored.CompletionDate == nil || !stored.CompletionDate.Equal(s4) {
		t.Fatalf("completion date = %v, want latest session date %v", stored.CompletionDate, s4)
	}
	member, _ := persons.GetByID(context.Background(), p.ID)
	if member.MembershipCompleted == nil || !member.MembershipCompleted.Equal(s4) {
		t.Fatalf("membership date = %v, want %v", member.MembershipCompleted, s4)
	}
}

func TestProgramPropagateFirstWins(t *testing.T) {
	programs := newFakeProgramRepo()
	persons := newFakePersonRepo()
	w := newTestProgramWriter(programs, persons)

	earlier := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	p := persons.seed(&types.Person{Phone: "0801", Status: types.StatusReturner, MembershipCompleted: &earlier})
	programs.seed(&types.MemberProgram{
		ID: "prg1", PersonID: p.ID, ProgramName: types.ProgramNewBelievers,
		Session1Done: true, Session2Done: true, Session3Done: true, Session4Done: true,
		CompletionDate: &earlier,
	})

	prog, _ := programs.GetByID(context.Background(), "prg1")
	changed, err := w.Propagate(context.Background(), prog)
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if changed {
		t.Fatalf("already stamped dates must not change")
	}
	member, _ := persons.GetByID(context.Background(), p.ID)
	if !member.MembershipCompleted.Equal(earlier) {
		t.Fatalf("membership date moved: %v", member.MembershipCompleted)
	}
}

func TestProgramPropagateOtherProgramSkipsMembership(t *testing.T) {
	programs := newFakeProgramRepo()
	persons := newFakePersonRepo()
	w := newTestProgramWriter(programs, persons)

	p := persons.seed(&types.Person{Phone: "0801", Status: types.StatusReturner})
	programs.seed(&types.MemberProgram{
		ID: "prg1", PersonID: p.ID, ProgramName: "Workers Training",
		Session1Done: true, Session2Done: true, Session3Done: true, Session4Done: true,
	})

	prog, _ := programs.GetByID(context.Background(), "prg1")
	changed, err := w.Propagate(context.Background(), prog)
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if !changed {
		t.Fatalf("completion date should still be stamped")
	}
	member, _ := persons.GetByID(context.Background(), p.ID)
	if member.MembershipCompleted != nil {
		t.Fatalf("non new-believers program must not mark membership")
	}
}
