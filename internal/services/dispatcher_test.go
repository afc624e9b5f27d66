package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/types"
)

func newTestDispatcher(e *testEngine, eventLog *fakeEventLogRepo, flags *fakeReviewFlagRepo, workers, queueSize int) *Dispatcher {
	log := logger.NewNop()
	notifier := NewAdminNotifier(nil, "", log)
	return NewDispatcher(e.reconciler, eventLog, flags, notifier, workers, queueSize, time.Minute, log)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func TestDispatcherProcessesAndRecords(t *testing.T) {
	e := newTestEngine()
	e.volunteers.seed("volA", true)
	eventLog := &fakeEventLogRepo{}
	flags := &fakeReviewFlagRepo{}
	d := newTestDispatcher(e, eventLog, flags, 2, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	const n = 5
	for i := 0; i < n; i++ {
		e.sources.addRecord(types.ChannelEvangelism, fmt.Sprintf("rec%d", i))
		err := d.Enqueue(&types.IntakeEvent{
			Channel:        types.ChannelEvangelism,
			SourceRecordID: fmt.Sprintf("rec%d", i),
			Phone:          fmt.Sprintf("080123456%02d", i),
			CapturedBy:     "volA",
		})
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	waitFor(t, func() bool { return eventLog.count() == n })
	d.Stop()

	if e.persons.count() != n {
		t.Fatalf("persons = %d, want %d", e.persons.count(), n)
	}
	entries, _ := eventLog.ListRecent(context.Background(), nil, n)
	for _, entry := range entries {
		if entry.Outcome != string(OutcomeCreated) {
			t.Fatalf("outcome = %s, want created", entry.Outcome)
		}
		if entry.PersonID == "" {
			t.Fatalf("ledger entry missing person id")
		}
	}
	if flags.count() != 0 {
		t.Fatalf("unexpected review flags: %d", flags.count())
	}
}

func TestDispatcherFlagsConflicts(t *testing.T) {
	e := newTestEngine()
	eventLog := &fakeEventLogRepo{}
	flags := &fakeReviewFlagRepo{}
	d := newTestDispatcher(e, eventLog, flags, 1, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	e.sources.addRecord(types.ChannelReturner, "recR1")
	if err := d.Enqueue(&types.IntakeEvent{
		Channel:        types.ChannelReturner,
		SourceRecordID: "recR1",
		Phone:          "08012345678",
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, func() bool { return flags.count() == 1 })
	d.Stop()

	open, _ := flags.ListOpen(context.Background(), nil)
	if len(open) != 1 {
		t.Fatalf("open flags = %d", len(open))
	}
	if open[0].Channel != string(types.ChannelReturner) || open[0].SourceRecordID != "recR1" {
		t.Fatalf("flag fields wrong: %+v", open[0])
	}
	if open[0].Reason == "" {
		t.Fatalf("flag without reason")
	}

	entries, _ := eventLog.ListBySource(context.Background(), nil, "recR1")
	if len(entries) != 1 || entries[0].Outcome != string(OutcomeFlagged) {
		t.Fatalf("ledger entry wrong: %+v", entries)
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	e := newTestEngine()
	d := newTestDispatcher(e, &fakeEventLogRepo{}, &fakeReviewFlagRepo{}, 1, 1)

	// Not started: the queue only drains when workers run.
	ev := &types.IntakeEvent{Channel: types.ChannelFirstTimer, SourceRecordID: "rec1", Phone: "0801"}
	if err := d.Enqueue(ev); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	err := d.Enqueue(&types.IntakeEvent{Channel: types.ChannelFirstTimer, SourceRecordID: "rec2", Phone: "0802"})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
}

func TestDispatcherEnqueueDuringStop(t *testing.T) {
	e := newTestEngine()
	e.volunteers.seed("volA", true)

	// Stop closes the queue while senders race it. Every Enqueue must
	// return cleanly; a send on the closed queue would panic the sender.
	for round := 0; round < 50; round++ {
		d := newTestDispatcher(e, &fakeEventLogRepo{}, &fakeReviewFlagRepo{}, 2, 4)
		ctx, cancel := context.WithCancel(context.Background())
		d.Start(ctx)

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					err := d.Enqueue(&types.IntakeEvent{
						Channel:        types.ChannelEvangelism,
						SourceRecordID: fmt.Sprintf("rec%d-%d", i, j),
						Phone:          fmt.Sprintf("08012%03d%03d", i, j),
						CapturedBy:     "volA",
					})
					if err != nil && !errors.Is(err, ErrQueueFull) && err.Error() != "dispatcher stopped" {
						t.Errorf("enqueue: %v", err)
					}
				}
			}(i)
		}
		d.Stop()
		wg.Wait()
		cancel()
	}
}

func TestDispatcherEnqueueAfterStop(t *testing.T) {
	e := newTestEngine()
	d := newTestDispatcher(e, &fakeEventLogRepo{}, &fakeReviewFlagRepo{}, 1, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	d.Stop()

	err := d.Enqueue(&types.IntakeEvent{Channel: types.ChannelFirstTimer, SourceRecordID: "rec1", Phone: "0801"})
	if err == nil {
		t.Fatalf("enqueue after stop should fail")
	}
}
