package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/repos"
	"github.com/gracechapel/outreach-backend/internal/types"
)

// ErrQueueFull is returned by Enqueue when the intake buffer is saturated;
// the webhook endpoint turns it into a 503 so the sender retries later.
var ErrQueueFull = errors.New("intake queue full")

// Dispatcher decouples webhook acknowledgment from reconciliation: events
// land in a bounded queue and a fixed worker pool drains it. One event's
// permanent failure only ever affects that event.
type Dispatcher struct {
	reconciler *Reconciler
	eventLog   repos.EventLogRepo
	flags      repos.ReviewFlagRepo
	notifier   *AdminNotifier
	timeout    time.Duration
	workers    int
	log        *logger.Logger

	queue chan *types.IntakeEvent

	mu      sync.Mutex
	group   *errgroup.Group
	started bool
	stopped bool
}

func NewDispatcher(
	reconciler *Reconciler,
	eventLog repos.EventLogRepo,
	flags repos.ReviewFlagRepo,
	notifier *AdminNotifier,
	workers, queueSize int,
	timeout time.Duration,
	baseLog *logger.Logger,
) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Dispatcher{
		reconciler: reconciler,
		eventLog:   eventLog,
		flags:      flags,
		notifier:   notifier,
		timeout:    timeout,
		workers:    workers,
		log:        baseLog.With("service", "Dispatcher"),
		queue:      make(chan *types.IntakeEvent, queueSize),
	}
}

// Enqueue hands an event to the worker pool without blocking the webhook
// response. The mutex is held across the send so Stop cannot close the
// queue between the stopped check and the send; the send itself never
// blocks, so the lock is held only briefly.
func (d *Dispatcher) Enqueue(ev *types.IntakeEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return errors.New("dispatcher stopped")
	}

	select {
	case d.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	g, gctx := errgroup.WithContext(ctx)
	d.group = g
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			return d.worker(gctx)
		})
	}
	d.log.Info("dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
}

// Stop closes the queue and waits for in-flight reconciliations to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started || d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	g := d.group
	d.mu.Unlock()

	if g != nil {
		_ = g.Wait()
	}
	d.log.Info("dispatcher drained")
}

func (d *Dispatcher) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-d.queue:
			if !ok {
				return nil
			}
			d.process(ctx, ev)
		}
	}
}

func (d *Dispatcher) process(parent context.Context, ev *types.IntakeEvent) {
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	outcome := d.reconciler.Reconcile(ctx, ev)

	d.log.Info("event reconciled",
		"channel", ev.Channel,
		"source_record_id", ev.SourceRecordID,
		"outcome", outcome.Kind,
		"person_id", outcome.PersonID,
		"capacity_warning", outcome.CapacityWarning,
		"reason", outcome.Reason,
	)

	d.record(ctx, ev, outcome)

	if outcome.Kind == OutcomeFlagged {
		d.flag(ctx, ev, outcome)
	}
	if d.notifier != nil {
		d.notifier.Notify(ctx, ev, outcome)
	}
}

// record and flag use a background context when the event's own deadline is
// already spent: losing the audit trail because the store was slow would
// hide exactly the events worth investigating.

func (d *Dispatcher) record(ctx context.Context, ev *types.IntakeEvent, outcome Outcome) {
	if d.eventLog == nil {
		return
	}
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	_, err := d.eventLog.Record(ctx, nil, &types.EventLog{
		Channel:         string(ev.Channel),
		SourceRecordID:  ev.SourceRecordID,
		Outcome:         string(outcome.Kind),
		PersonID:        outcome.PersonID,
		Error:           outcome.Reason,
		CapacityWarning: outcome.CapacityWarning,
	})
	if err != nil {
		d.log.Warn("event log write failed", "source_record_id", ev.SourceRecordID, "error", err)
	}
}

func (d *Dispatcher) flag(ctx context.Context, ev *types.IntakeEvent, outcome Outcome) {
	if d.flags == nil {
		return
	}
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		payload = nil
	}
	_, err = d.flags.Create(ctx, nil, &types.ReviewFlag{
		Channel:        string(ev.Channel),
		SourceRecordID: ev.SourceRecordID,
		Phone:          NormalizePhone(ev.Phone),
		Email:          NormalizeEmail(ev.Email),
		Reason:         outcome.Reason,
		CandidateIDs:   strings.Join(outcome.CandidateIDs, ","),
		Payload:        datatypes.JSON(payload),
	})
	if err != nil {
		d.log.Warn("review flag write failed", "source_record_id", ev.SourceRecordID, "error", err)
	}
}
