package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gracechapel/outreach-backend/internal/repos"
	"github.com/gracechapel/outreach-backend/internal/types"
)

// In-memory repo fakes shared by the service tests. All of them are
// mutex-guarded so the concurrency tests can hammer them directly.

type fakePersonRepo struct {
	mu      sync.Mutex
	nextID  int
	persons map[string]*types.Person
}

func newFakePersonRepo() *fakePersonRepo {
	return &fakePersonRepo{persons: map[string]*types.Person{}}
}

func (f *fakePersonRepo) FindByContact(ctx context.Context, phone, email string) ([]*types.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Person
	for _, p := range f.persons {
		if (phone != "" && p.Phone == phone) || (email != "" && p.Email == email) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePersonRepo) GetByID(ctx context.Context, id string) (*types.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.persons[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePersonRepo) Create(ctx context.Context, p *types.Person) (*types.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *p
	cp.ID = fmt.Sprintf("per%03d", f.nextID)
	f.persons[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakePersonRepo) Update(ctx context.Context, p *types.Person) (*types.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.persons[p.ID]
	if !ok {
		return nil, repos.ErrNotFound
	}
	stored.Phone = p.Phone
	stored.Email = p.Email
	stored.FirstName = p.FirstName
	stored.LastName = p.LastName
	stored.Address = p.Address
	stored.Status = p.Status
	stored.DateFirstCaptured = p.DateFirstCaptured
	stored.FirstServiceAttended = p.FirstServiceAttended
	cp := *stored
	return &cp, nil
}

func (f *fakePersonRepo) SetFollowUpOwner(ctx context.Context, id, volunteerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.persons[id]
	if !ok {
		return repos.ErrNotFound
	}
	p.FollowUpOwnerID = volunteerID
	return nil
}

func (f *fakePersonRepo) SetMembershipCompleted(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.persons[id]
	if !ok {
		return repos.ErrNotFound
	}
	p.MembershipCompleted = &at
	return nil
}

func (f *fakePersonRepo) UpdateRollups(ctx context.Context, id string, r types.Rollups) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.persons[id]
	if !ok {
		return repos.ErrNotFound
	}
	p.FirstVisit = r.FirstVisit
	p.LastVisit = r.LastVisit
	p.VisitCount = r.VisitCount
	p.FirstFollowUp = r.FirstFollowUp
	p.LastFollowUp = r.LastFollowUp
	return nil
}

func (f *fakePersonRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.persons)
}

func (f *fakePersonRepo) seed(p *types.Person) *types.Person {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *p
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("per%03d", f.nextID)
	}
	f.persons[cp.ID] = &cp
	out := cp
	return &out
}

type fakeVolunteerRepo struct {
	mu         sync.Mutex
	volunteers map[string]*types.Volunteer
}

func newFakeVolunteerRepo() *fakeVolunteerRepo {
	return &fakeVolunteerRepo{volunteers: map[string]*types.Volunteer{}}
}

func (f *fakeVolunteerRepo) seed(id string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volunteers[id] = &types.Volunteer{ID: id, Name: id, Role: types.RoleFollowUp, Active: active}
}

func (f *fakeVolunteerRepo) GetByID(ctx context.Context, id string) (*types.Volunteer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.volunteers[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVolunteerRepo) ListActiveFollowUp(ctx context.Context) ([]*types.Volunteer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Volunteer
	for _, v := range f.volunteers {
		if v.Active && v.Role == types.RoleFollowUp {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	nextID      int
	assignments []*types.FollowUpAssignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{}
}

func (f *fakeAssignmentRepo) seed(personID, volunteerID string, status types.AssignmentStatus) *types.FollowUpAssignment {
	a, _ := f.Create(context.Background(), &types.FollowUpAssignment{
		PersonID:     personID,
		VolunteerID:  volunteerID,
		AssignedDate: time.Now(),
		Status:       status,
	})
	return a
}

func (f *fakeAssignmentRepo) ListForPerson(ctx context.Context, personID string) ([]*types.FollowUpAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.FollowUpAssignment
	for _, a := range f.assignments {
		if a.PersonID == personID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) CurrentForPerson(ctx context.Context, personID string) (*types.FollowUpAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.assignments) - 1; i >= 0; i-- {
		a := f.assignments[i]
		if a.PersonID == personID && !a.Status.Terminal() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAssignmentRepo) CountOpenForVolunteer(ctx context.Context, volunteerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.assignments {
		if a.VolunteerID == volunteerID && a.Status.Open() {
			n++
		}
	}
	return n, nil
}

func (f *fakeAssignmentRepo) Create(ctx context.Context, a *types.FollowUpAssignment) (*types.FollowUpAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *a
	cp.ID = fmt.Sprintf("asg%03d", f.nextID)
	f.assignments = append(f.assignments, &cp)
	out := cp
	return &out, nil
}

func (f *fakeAssignmentRepo) SetStatus(ctx context.Context, id string, status types.AssignmentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assignments {
		if a.ID == id {
			a.Status = status
			return nil
		}
	}
	return repos.ErrNotFound
}

type fakeAttendanceRepo struct {
	mu      sync.Mutex
	nextID  int
	records []*types.AttendanceRecord
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{}
}

func (f *fakeAttendanceRepo) FindByPersonService(ctx context.Context, personID, serviceID string) (*types.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.PersonID == personID && r.ServiceID == serviceID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repos.ErrNotFound
}

func (f *fakeAttendanceRepo) ListForPerson(ctx context.Context, personID string) ([]*types.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.AttendanceRecord
	for _, r := range f.records {
		if r.PersonID == personID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAttendanceRepo) Create(ctx context.Context, a *types.AttendanceRecord) (*types.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *a
	cp.ID = fmt.Sprintf("att%03d", f.nextID)
	f.records = append(f.records, &cp)
	out := cp
	return &out, nil
}

func (f *fakeAttendanceRepo) SetPresent(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id {
			r.Present = true
			return nil
		}
	}
	return repos.ErrNotFound
}

func (f *fakeAttendanceRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeProgramRepo struct {
	mu       sync.Mutex
	programs map[string]*types.MemberProgram
}

func newFakeProgramRepo() *fakeProgramRepo {
	return &fakeProgramRepo{programs: map[string]*types.MemberProgram{}}
}

func (f *fakeProgramRepo) seed(p *types.MemberProgram) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.programs[cp.ID] = &cp
}

func (f *fakeProgramRepo) GetByID(ctx context.Context, id string) (*types.MemberProgram, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.programs[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProgramRepo) SetCompletionDate(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.programs[id]
	if !ok {
		return repos.ErrNotFound
	}
	p.CompletionDate = &at
	return nil
}

// fakeSourceRepo distinguishes a known-but-unlinked source record ("" link)
// from a missing one (ErrNotFound), matching the real repo's contract.
type fakeSourceRepo struct {
	mu    sync.Mutex
	known map[string]bool
	links map[string]string
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{known: map[string]bool{}, links: map[string]string{}}
}

func sourceKey(ch types.Channel, recordID string) string {
	return string(ch) + "/" + recordID
}

func (f *fakeSourceRepo) addRecord(ch types.Channel, recordID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.known[sourceKey(ch, recordID)] = true
}

func (f *fakeSourceRepo) GetLink(ctx context.Context, ch types.Channel, recordID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := sourceKey(ch, recordID)
	if !f.known[key] {
		return "", repos.ErrNotFound
	}
	return f.links[key], nil
}

func (f *fakeSourceRepo) SetLink(ctx context.Context, ch types.Channel, recordID, personID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := sourceKey(ch, recordID)
	if !f.known[key] {
		return repos.ErrNotFound
	}
	f.links[key] = personID
	return nil
}

type fakeEventLogRepo struct {
	mu      sync.Mutex
	entries []*types.EventLog
}

func (f *fakeEventLogRepo) Record(ctx context.Context, tx *gorm.DB, entry *types.EventLog) (*types.EventLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	cp := *entry
	f.entries = append(f.entries, &cp)
	return entry, nil
}

func (f *fakeEventLogRepo) ListBySource(ctx context.Context, tx *gorm.DB, sourceRecordID string) ([]*types.EventLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.EventLog
	for _, e := range f.entries {
		if e.SourceRecordID == sourceRecordID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeEventLogRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.EventLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.EventLog
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *f.entries[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeEventLogRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeReviewFlagRepo struct {
	mu    sync.Mutex
	flags []*types.ReviewFlag
}

func (f *fakeReviewFlagRepo) Create(ctx context.Context, tx *gorm.DB, flag *types.ReviewFlag) (*types.ReviewFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if flag.ID == uuid.Nil {
		flag.ID = uuid.New()
	}
	cp := *flag
	f.flags = append(f.flags, &cp)
	return flag, nil
}

func (f *fakeReviewFlagRepo) ListOpen(ctx context.Context, tx *gorm.DB) ([]*types.ReviewFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.ReviewFlag
	for _, fl := range f.flags {
		if !fl.Resolved {
			cp := *fl
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeReviewFlagRepo) Resolve(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fl := range f.flags {
		if fl.ID == id {
			fl.Resolved = true
			return nil
		}
	}
	return repos.ErrNotFound
}

func (f *fakeReviewFlagRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.flags)
}
