package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"steeple/internal/models"
)

// Entity type fixtures shared by the dispatch tests
const (
	etPerson int64 = 1
	etGroup  int64 = 2
	etPledge int64 = 3
	etCampus int64 = 4
)

var testEntityTypes = []models.EntityType{
	{ID: etPerson, Name: models.EntityTypePerson, FriendlyName: "Person"},
	{ID: etGroup, Name: models.EntityTypeGroup, FriendlyName: "Group"},
	{ID: etPledge, Name: "FinancialPledge", FriendlyName: "Pledge"},
	{ID: etCampus, Name: "Campus", FriendlyName: "Campus"},
}

// memoryStore is an in-memory ReminderStore for tests
type memoryStore struct {
	mu        sync.Mutex
	reminders map[int64]*models.Reminder
	persons   map[int64]*models.Person
	logs      []models.DispatchLog

	activeErr   error
	completeErr map[int64]error
	zeroCalls   int
	setCalls    []int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		reminders:   make(map[int64]*models.Reminder),
		persons:     make(map[int64]*models.Person),
		completeErr: make(map[int64]error),
	}
}

func (s *memoryStore) ActiveReminders(ctx context.Context, asOf time.Time) ([]models.Reminder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeErr != nil {
		return nil, s.activeErr
	}
	var out []models.Reminder
	for _, r := range s.reminders {
		if r.IsActive(asOf) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) ActiveRemindersForPerson(ctx context.Context, personID int64, asOf time.Time) ([]models.Reminder, error) {
	all, err := s.ActiveReminders(ctx, asOf)
	if err != nil {
		return nil, err
	}
	var out []models.Reminder
	for _, r := range all {
		if r.PersonID() == personID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memoryStore) MarkComplete(ctx context.Context, reminderID int64, completedAt time.Time) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.completeErr[reminderID]; err != nil {
		return err
	}
	r, ok := s.reminders[reminderID]
	if !ok {
		return fmt.Errorf("reminder %d not found", reminderID)
	}
	r.IsComplete = true
	r.CompletedDate = &completedAt
	return nil
}

func (s *memoryStore) ZeroReminderCounts(ctx context.Context, exceptPersonIDs []int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zeroCalls++
	except := make(map[int64]bool, len(exceptPersonIDs))
	for _, id := range exceptPersonIDs {
		except[id] = true
	}
	for _, p := range s.persons {
		if p.ReminderCount > 0 && !except[p.ID] {
			p.ReminderCount = 0
		}
	}
	return nil
}

func (s *memoryStore) SetReminderCount(ctx context.Context, personID int64, count int) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls = append(s.setCalls, personID)
	p, ok := s.persons[personID]
	if !ok {
		return fmt.Errorf("person %d not found", personID)
	}
	p.ReminderCount = count
	return nil
}

func (s *memoryStore) ReminderCounts(ctx context.Context, personIDs []int64) (map[int64]int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[int64]int)
	for _, id := range personIDs {
		if p, ok := s.persons[id]; ok {
			counts[id] = p.ReminderCount
		}
	}
	return counts, nil
}

func (s *memoryStore) EntityTypes(ctx context.Context) ([]models.EntityType, error) {
	_ = ctx
	return testEntityTypes, nil
}

func (s *memoryStore) LogDispatch(ctx context.Context, entry models.DispatchLog) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	return nil
}

type launchCall struct {
	workflowTypeID int64
	name           string
	attributes     map[string]string
}

// fakeLauncher records workflow launches, failing the ones told to fail
type fakeLauncher struct {
	launches []launchCall
	errFor   map[string]error // keyed by the Reminder attribute
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{errFor: make(map[string]error)}
}

func (f *fakeLauncher) Launch(ctx context.Context, workflowTypeID int64, name string, attributes map[string]string) error {
	_ = ctx
	if err := f.errFor[attributes["Reminder"]]; err != nil {
		return err
	}
	f.launches = append(f.launches, launchCall{workflowTypeID, name, attributes})
	return nil
}

// fakeSender records digests, with per-person results and errors
type fakeSender struct {
	sends   []ReminderDigest
	results map[int64]SendResult
	errs    map[int64]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		results: make(map[int64]SendResult),
		errs:    make(map[int64]error),
	}
}

func (f *fakeSender) Send(ctx context.Context, person models.Person, templateID int64, digest ReminderDigest) (SendResult, error) {
	_ = ctx
	_ = templateID
	if err := f.errs[person.ID]; err != nil {
		return SendResult{}, err
	}
	f.sends = append(f.sends, digest)
	if result, ok := f.results[person.ID]; ok {
		return result, nil
	}
	return SendResult{MessagesSent: 1}, nil
}

func (f *fakeSender) digestFor(personID int64) (ReminderDigest, bool) {
	for _, d := range f.sends {
		if d.Person.ID == personID {
			return d, true
		}
	}
	return ReminderDigest{}, false
}

// fakeResolver resolves every entity deterministically
type fakeResolver struct {
	errFor map[[2]int64]error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{errFor: make(map[[2]int64]error)}
}

func (f *fakeResolver) Resolve(ctx context.Context, entityTypeID int64, entityID int64) (ResolvedEntity, error) {
	_ = ctx
	if err := f.errFor[[2]int64{entityTypeID, entityID}]; err != nil {
		return ResolvedEntity{}, err
	}
	return ResolvedEntity{
		Description: fmt.Sprintf("entity %d/%d", entityTypeID, entityID),
		URL:         fmt.Sprintf("/e/%d/%d", entityTypeID, entityID),
		PhotoURL:    fmt.Sprintf("photo-%d", entityID),
	}, nil
}

// harness bundles the engine with its fakes
type harness struct {
	store    *memoryStore
	launcher *fakeLauncher
	sender   *fakeSender
	resolver *fakeResolver
	engine   *DispatchEngine
}

func newHarness() *harness {
	h := &harness{
		store:    newMemoryStore(),
		launcher: newFakeLauncher(),
		sender:   newFakeSender(),
		resolver: newFakeResolver(),
	}
	h.engine = NewDispatchEngine(h.store, h.launcher, h.sender, h.resolver)
	return h
}

func (h *harness) addPerson(id int64, nickName string, reminderCount int) *models.Person {
	p := &models.Person{
		ID:            id,
		NickName:      nickName,
		LastName:      "Tester",
		Email:         fmt.Sprintf("%s@example.org", nickName),
		ReminderCount: reminderCount,
	}
	h.store.persons[id] = p
	return p
}

func (h *harness) addReminder(id int64, owner *models.Person, reminderType models.ReminderType, entityTypeID, entityID int64, due time.Time) *models.Reminder {
	r := &models.Reminder{
		ID:             id,
		ReminderTypeID: reminderType.ID,
		ReminderType:   reminderType,
		PersonAliasID:  owner.ID + 1000,
		PersonAlias: models.PersonAlias{
			ID:       owner.ID + 1000,
			PersonID: owner.ID,
			Person:   *owner,
		},
		EntityTypeID: entityTypeID,
		EntityID:     entityID,
		ReminderDate: due,
	}
	h.store.reminders[id] = r
	return r
}

func communicationType(id int64, autoComplete bool) models.ReminderType {
	return models.ReminderType{
		ID:                             id,
		Name:                           fmt.Sprintf("comm-type-%d", id),
		NotificationMode:               models.NotificationModeCommunication,
		ShouldAutoCompleteWhenNotified: autoComplete,
		HighlightColor:                 "#3b5998",
	}
}

func workflowType(id int64, workflowTypeID *int64, autoComplete bool) models.ReminderType {
	return models.ReminderType{
		ID:                             id,
		Name:                           fmt.Sprintf("workflow-type-%d", id),
		NotificationMode:               models.NotificationModeWorkflow,
		NotificationWorkflowTypeID:     workflowTypeID,
		ShouldAutoCompleteWhenNotified: autoComplete,
	}
}

func templateRef(id int64) *int64 {
	return &id
}

func int64Ptr(v int64) *int64 {
	return &v
}
