package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/repos"
	"github.com/gracechapel/outreach-backend/internal/types"
)

type AssignmentDecision struct {
	// Assigned is the newly created assignment, nil when nothing changed.
	Assigned *types.FollowUpAssignment
	// PriorReassigned is the previous current assignment after being
	// marked Reassigned, nil unless a handover happened.
	PriorReassigned *types.FollowUpAssignment
	// OwnerID is the person's follow-up owner after the decision.
	OwnerID string
	// CapacityWarning is set when every eligible volunteer was full and
	// the existing assignment was deliberately left in place.
	CapacityWarning bool
}

// AssignmentBalancer decides who follows a person up. Volunteer load is
// always computed from live assignment records, never cached.
type AssignmentBalancer struct {
	assignments repos.AssignmentRepo
	volunteers  repos.VolunteerRepo
	capacity    int
	dueOffset   time.Duration
	now         func() time.Time
	log         *logger.Logger
}

func NewAssignmentBalancer(
	assignments repos.AssignmentRepo,
	volunteers repos.VolunteerRepo,
	capacity int,
	dueOffset time.Duration,
	baseLog *logger.Logger,
) *AssignmentBalancer {
	if capacity <= 0 {
		capacity = 20
	}
	if dueOffset <= 0 {
		dueOffset = 72 * time.Hour
	}
	return &AssignmentBalancer{
		assignments: assignments,
		volunteers:  volunteers,
		capacity:    capacity,
		dueOffset:   dueOffset,
		now:         time.Now,
		log:         baseLog.With("service", "AssignmentBalancer"),
	}
}

// Assign runs the follow-up policy for one reconciled event.
// priorStatus is the person's status before this event's merge.
func (b *AssignmentBalancer) Assign(ctx context.Context, person *types.Person, ev *types.IntakeEvent, priorStatus types.Status, created bool) (AssignmentDecision, error) {
	current, err := b.assignments.CurrentForPerson(ctx, person.ID)
	if err != nil {
		return AssignmentDecision{}, fmt.Errorf("load current assignment: %w", err)
	}

	decision := AssignmentDecision{}
	if current != nil {
		decision.OwnerID = current.VolunteerID
	}

	switch ev.Channel {
	case types.ChannelEvangelism:
		// The capturer owns their soul. No capacity check on a first
		// assignment, even at load 20+.
		if current == nil && ev.CapturedBy != "" {
			a, err := b.create(ctx, person.ID, ev.CapturedBy)
			if err != nil {
				return decision, err
			}
			decision.Assigned = a
			decision.OwnerID = a.VolunteerID
		}
		return decision, nil

	case types.ChannelFirstTimer:
		// Only a first-timer arriving over an evangelism contact
		// triggers the capacity check.
		if created || priorStatus != types.StatusEvangelismContact || current == nil {
			return decision, nil
		}
		load, err := b.assignments.CountOpenForVolunteer(ctx, current.VolunteerID)
		if err != nil {
			return decision, fmt.Errorf("count owner load: %w", err)
		}
		if load < b.capacity {
			return decision, nil
		}

		replacement, err := b.pickReplacement(ctx, current.VolunteerID)
		if err != nil {
			return decision, err
		}
		if replacement == "" {
			b.log.Warn("all follow-up volunteers at capacity, keeping assignment",
				"person_id", person.ID,
				"owner_id", current.VolunteerID,
				"capacity", b.capacity,
			)
			decision.CapacityWarning = true
			return decision, nil
		}

		if err := b.assignments.SetStatus(ctx, current.ID, types.AssignmentReassigned); err != nil {
			return decision, fmt.Errorf("mark prior assignment reassigned: %w", err)
		}
		prior := *current
		prior.Status = types.AssignmentReassigned
		decision.PriorReassigned = &prior

		a, err := b.create(ctx, person.ID, replacement)
		if err != nil {
			return decision, err
		}
		decision.Assigned = a
		decision.OwnerID = a.VolunteerID
		return decision, nil

	default:
		return decision, nil
	}
}

func (b *AssignmentBalancer) create(ctx context.Context, personID, volunteerID string) (*types.FollowUpAssignment, error) {
	now := b.now()
	a, err := b.assignments.Create(ctx, &types.FollowUpAssignment{
		PersonID:     personID,
		VolunteerID:  volunteerID,
		AssignedDate: now,
		DueDate:      now.Add(b.dueOffset),
		Status:       types.AssignmentAssigned,
	})
	if err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}
	return a, nil
}

// pickReplacement returns the active follow-up volunteer with the lowest
// live load under capacity, excluding the overloaded owner. Ties break on
// the smallest volunteer ID so reassignment is reproducible.
func (b *AssignmentBalancer) pickReplacement(ctx context.Context, excludeID string) (string, error) {
	vols, err := b.volunteers.ListActiveFollowUp(ctx)
	if err != nil {
		return "", fmt.Errorf("list follow-up volunteers: %w", err)
	}

	type candidate struct {
		id   string
		load int
	}
	var candidates []candidate
	for _, v := range vols {
		if v.ID == excludeID {
			continue
		}
		load, err := b.assignments.CountOpenForVolunteer(ctx, v.ID)
		if err != nil {
			return "", fmt.Errorf("count load for %s: %w", v.ID, err)
		}
		if load < b.capacity {
			candidates = append(candidates, candidate{id: v.ID, load: load})
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].load != candidates[j].load {
			return candidates[i].load < candidates[j].load
		}
		return candidates[i].id < candidates[j].id
	})
	return candidates[0].id, nil
}
