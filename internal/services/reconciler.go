package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/repos"
	"github.com/gracechapel/outreach-backend/internal/types"
)

// Reconciler runs one intake event end to end: lock, match, merge, persist,
// back-link, side effects. The per-identity lease lock is what turns the
// match-then-write sequence from a check-then-act race into a serial one;
// it is held from before the match until after the back-link.
type Reconciler struct {
	matcher    *Matcher
	persons    repos.PersonRepo
	sources    repos.SourceRepo
	balancer   *AssignmentBalancer
	attendance *AttendanceWriter
	rollups    *RollupWriter
	programs   *ProgramWriter
	locker     Locker
	lockTTL    time.Duration
	now        func() time.Time
	log        *logger.Logger
}

func NewReconciler(
	matcher *Matcher,
	persons repos.PersonRepo,
	sources repos.SourceRepo,
	balancer *AssignmentBalancer,
	attendance *AttendanceWriter,
	rollups *RollupWriter,
	programs *ProgramWriter,
	locker Locker,
	lockTTL time.Duration,
	baseLog *logger.Logger,
) *Reconciler {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &Reconciler{
		matcher:    matcher,
		persons:    persons,
		sources:    sources,
		balancer:   balancer,
		attendance: attendance,
		rollups:    rollups,
		programs:   programs,
		locker:     locker,
		lockTTL:    lockTTL,
		now:        time.Now,
		log:        baseLog.With("service", "Reconciler"),
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, ev *types.IntakeEvent) Outcome {
	if ev == nil || !ev.Channel.Valid() {
		return failed("invalid intake event")
	}
	if ev.Channel == types.ChannelProgramSession {
		return r.reconcileProgram(ctx, ev)
	}

	phone := NormalizePhone(ev.Phone)
	email := NormalizeEmail(ev.Email)
	if phone == "" && email == "" {
		return flagged("event carries no contact identity")
	}

	// Lock every identity key before the match runs; two concurrent
	// events for the same person must serialize even when one carries
	// only a subset of the contact fields.
	leases, err := r.acquireAll(ctx, LockKeys(phone, email))
	if err != nil {
		return failed(fmt.Sprintf("acquire identity lock: %v", err))
	}
	defer r.releaseAll(leases)

	// Redelivery check: an already back-linked source record means this
	// event was fully processed before. Re-run only the idempotent parts.
	linkedID, linkKnown := r.lookupLink(ctx, ev)
	if linkedID != "" {
		return r.refresh(ctx, ev, linkedID)
	}

	person, candidates, err := r.matcher.Find(ctx, phone, email)
	if err != nil {
		return r.failWithContext(ev, "identity match", err)
	}
	if len(candidates) > 0 {
		ids := make([]string, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.ID)
		}
		return flagged("contact fields match multiple members", ids...)
	}

	priorStatus := types.Status("")
	if person != nil {
		priorStatus = person.Status
	}

	res := Merge(person, ev, r.now())
	if res.Action == MergeConflict {
		return flagged(res.Reason)
	}

	created := res.Action == MergeCreate
	var persisted *types.Person
	if created {
		persisted, err = r.persons.Create(ctx, res.Person)
	} else {
		persisted, err = r.persons.Update(ctx, res.Person)
	}
	if err != nil {
		return r.failWithContext(ev, "persist member", err)
	}

	if linkKnown {
		if err := r.sources.SetLink(ctx, ev.Channel, ev.SourceRecordID, persisted.ID); err != nil {
			// The member write stuck; a webhook retry will find it by
			// contact match and link then.
			return r.failWithContext(ev, "back-link source record", err)
		}
	}

	outcome := Outcome{Kind: OutcomeUpdated, PersonID: persisted.ID}
	if created {
		outcome.Kind = OutcomeCreated
	}

	if warn, err := r.sideEffects(ctx, ev, persisted, priorStatus, created); err != nil {
		return r.failWithContext(ev, "side effects", err)
	} else if warn {
		outcome.CapacityWarning = true
	}

	return outcome
}

// refresh is the replay path: merge and upserts are idempotent, so re-run
// them against the already linked member and report a no-op.
func (r *Reconciler) refresh(ctx context.Context, ev *types.IntakeEvent, personID string) Outcome {
	person, err := r.persons.GetByID(ctx, personID)
	if err != nil {
		return r.failWithContext(ev, "load linked member", err)
	}

	res := Merge(person, ev, r.now())
	if res.Action == MergeUpdate {
		if _, err := r.persons.Update(ctx, res.Person); err != nil {
			return r.failWithContext(ev, "refresh member", err)
		}
	}

	if ev.ServiceID != "" {
		if _, err := r.attendance.Upsert(ctx, personID, ev.ServiceID, ev); err != nil {
			return r.failWithContext(ev, "refresh attendance", err)
		}
	}
	if err := r.rollups.Recompute(ctx, personID); err != nil {
		return r.failWithContext(ev, "refresh rollups", err)
	}

	return Outcome{Kind: OutcomeReplayed, PersonID: personID}
}

func (r *Reconciler) sideEffects(ctx context.Context, ev *types.IntakeEvent, person *types.Person, priorStatus types.Status, created bool) (capacityWarning bool, err error) {
	if ev.ServiceID != "" {
		if _, err := r.attendance.Upsert(ctx, person.ID, ev.ServiceID, ev); err != nil {
			return false, err
		}
	}

	decision, err := r.balancer.Assign(ctx, person, ev, priorStatus, created)
	if err != nil {
		return false, err
	}
	if decision.OwnerID != "" && decision.OwnerID != person.FollowUpOwnerID {
		if err := r.persons.SetFollowUpOwner(ctx, person.ID, decision.OwnerID); err != nil {
			return decision.CapacityWarning, err
		}
	}

	if err := r.rollups.Recompute(ctx, person.ID); err != nil {
		return decision.CapacityWarning, err
	}
	return decision.CapacityWarning, nil
}

func (r *Reconciler) reconcileProgram(ctx context.Context, ev *types.IntakeEvent) Outcome {
	if ev.ProgramRecordID == "" {
		return failed("program event without program record id")
	}

	prog, err := r.programs.Get(ctx, ev.ProgramRecordID)
	if err != nil {
		return r.failWithContext(ev, "load program record", err)
	}
	if prog.PersonID == "" {
		return flagged("program record not linked to a member")
	}

	lease, err := r.locker.Acquire(ctx, "person:"+prog.PersonID, r.lockTTL)
	if err != nil {
		return failed(fmt.Sprintf("acquire person lock: %v", err))
	}
	defer r.releaseAll([]Lease{lease})

	changed, err := r.programs.Propagate(ctx, prog)
	if err != nil {
		return r.failWithContext(ev, "propagate program completion", err)
	}
	if !changed {
		return Outcome{Kind: OutcomeSkipped, PersonID: prog.PersonID}
	}
	return Outcome{Kind: OutcomeUpdated, PersonID: prog.PersonID}
}

func (r *Reconciler) acquireAll(ctx context.Context, keys []string) ([]Lease, error) {
	leases := make([]Lease, 0, len(keys))
	for _, key := range keys {
		lease, err := r.locker.Acquire(ctx, key, r.lockTTL)
		if err != nil {
			r.releaseAll(leases)
			return nil, err
		}
		leases = append(leases, lease)
	}
	return leases, nil
}

func (r *Reconciler) releaseAll(leases []Lease) {
	// Release outside the request's own deadline: a timed-out
	// reconciliation must still free its locks promptly.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(leases) - 1; i >= 0; i-- {
		if err := leases[i].Release(ctx); err != nil {
			r.log.Warn("lease release failed (will expire by TTL)", "error", err)
		}
	}
}

// lookupLink reads the source record's back-link. linkKnown is false when
// the source record itself is missing; processing continues without a
// back-link rather than dropping the event.
func (r *Reconciler) lookupLink(ctx context.Context, ev *types.IntakeEvent) (string, bool) {
	personID, err := r.sources.GetLink(ctx, ev.Channel, ev.SourceRecordID)
	if err == nil {
		return personID, true
	}
	if errors.Is(err, repos.ErrNotFound) {
		// Source record gone; process the event but skip linking.
		return "", false
	}
	r.log.Warn("back-link lookup failed, assuming unlinked",
		"channel", ev.Channel,
		"source_record_id", ev.SourceRecordID,
		"error", err,
	)
	return "", true
}

func (r *Reconciler) failWithContext(ev *types.IntakeEvent, stage string, err error) Outcome {
	r.log.Error("reconciliation failed",
		"stage", stage,
		"channel", ev.Channel,
		"source_record_id", ev.SourceRecordID,
		"phone", NormalizePhone(ev.Phone),
		"email", NormalizeEmail(ev.Email),
		"error", err,
	)
	reason := fmt.Sprintf("%s: %v", stage, err)
	if strings.TrimSpace(reason) == "" {
		reason = stage
	}
	return failed(reason)
}
