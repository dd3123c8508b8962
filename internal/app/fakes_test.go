package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ai-meal-coach/internal/mealplan"
	"ai-meal-coach/internal/planner"
	"ai-meal-coach/internal/prompt"
	"ai-meal-coach/internal/shared"
)

// memData is an in-memory DataAccess.
type memData struct {
	mu       sync.Mutex
	users    map[string]mealplan.User
	sessions map[string]mealplan.Session
	plans    map[string]mealplan.StoredMealPlan
	seq      int
	writes   int

	// failPlanWrites makes ReplaceMealPlans fail without touching any plan.
	failPlanWrites error

	prefsUpdated chan mealplan.LearnedPreferences
}

func newMemData() *memData {
	return &memData{
		users:        make(map[string]mealplan.User),
		sessions:     make(map[string]mealplan.Session),
		plans:        make(map[string]mealplan.StoredMealPlan),
		prefsUpdated: make(chan mealplan.LearnedPreferences, 10),
	}
}

func (m *memData) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memData) CreateUser(_ context.Context, u *mealplan.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.users[u.ID] = *u
	return nil
}

func (m *memData) GetUser(_ context.Context, id string) (*mealplan.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memData) UpdateUser(_ context.Context, u *mealplan.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.users[u.ID] = *u
	return nil
}

func (m *memData) UpdateLearnedPreferences(_ context.Context, userID string, prefs mealplan.LearnedPreferences) error {
	m.mu.Lock()
	u, ok := m.users[userID]
	if !ok {
		m.mu.Unlock()
		return errors.New("no such user")
	}
	m.writes++
	u.LearnedPreferences = prefs
	m.users[userID] = u
	m.mu.Unlock()
	m.prefsUpdated <- prefs
	return nil
}

func (m *memData) CreateSession(_ context.Context, userID string, plan *mealplan.MealPlan) (*mealplan.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	now := time.Now().UTC()
	s := mealplan.Session{
		ID:                   m.nextID("session"),
		UserID:               userID,
		CreatedAt:            now,
		UpdatedAt:            now,
		ExpiresAt:            now.Add(mealplan.SessionTTL),
		CurrentMealPlan:      plan,
		Modifications:        []mealplan.Modification{},
		TemporaryConstraints: []string{},
		Status:               mealplan.SessionActive,
	}
	m.sessions[s.ID] = s
	return &s, nil
}

func (m *memData) GetSession(_ context.Context, id string) (*mealplan.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	s.Modifications = append([]mealplan.Modification(nil), s.Modifications...)
	s.TemporaryConstraints = append([]string(nil), s.TemporaryConstraints...)
	return &s, nil
}

func (m *memData) AddSessionModification(_ context.Context, id string, mod mealplan.Modification, plan *mealplan.MealPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return errors.New("no such session")
	}
	m.writes++
	s.Modifications = append(s.Modifications, mod)
	s.CurrentMealPlan = plan
	s.UpdatedAt = time.Now().UTC()
	m.sessions[id] = s
	return nil
}

func (m *memData) AddTemporaryConstraint(_ context.Context, id, c string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[id]
	m.writes++
	s.TemporaryConstraints = append(s.TemporaryConstraints, c)
	m.sessions[id] = s
	return nil
}

func (m *memData) UpdateSessionStatus(_ context.Context, id string, status mealplan.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[id]
	m.writes++
	s.Status = status
	m.sessions[id] = s
	return nil
}

func (m *memData) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	delete(m.sessions, id)
	return nil
}

func (m *memData) ListConfirmedSessions(_ context.Context, userID string) ([]mealplan.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mealplan.Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.Status == mealplan.SessionConfirmed {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memData) ExpireSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.Status == mealplan.SessionActive && now.After(s.ExpiresAt) {
			s.Status = mealplan.SessionExpired
			m.sessions[id] = s
			n++
		}
	}
	return n, nil
}

func (m *memData) CreateMealPlan(_ context.Context, p *mealplan.StoredMealPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	p.ID = m.nextID("plan")
	p.CreatedAt = time.Now().UTC()
	m.plans[p.ID] = *p
	return nil
}

func (m *memData) ReplaceMealPlans(ctx context.Context, p *mealplan.StoredMealPlan, replaceIDs []string) error {
	m.mu.Lock()
	if m.failPlanWrites != nil {
		m.mu.Unlock()
		return m.failPlanWrites
	}
	for _, id := range replaceIDs {
		m.writes++
		delete(m.plans, id)
	}
	m.mu.Unlock()
	return m.CreateMealPlan(ctx, p)
}

func (m *memData) GetMealPlan(_ context.Context, id string) (*mealplan.StoredMealPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memData) ListMealPlans(_ context.Context, userID string) ([]mealplan.StoredMealPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mealplan.StoredMealPlan
	for _, p := range m.plans {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memData) DeleteMealPlan(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	delete(m.plans, id)
	return nil
}

func (m *memData) FindMealPlansByDateRange(_ context.Context, userID string, from, to mealplan.Date) ([]mealplan.StoredMealPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mealplan.StoredMealPlan
	for _, p := range m.plans {
		if p.UserID == userID && p.Status == mealplan.PlanActive && p.Scheduled() &&
			mealplan.Overlaps(*p.StartDate, *p.EndDate, from, to) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memData) HasOverlappingMealPlan(ctx context.Context, userID string, start, end mealplan.Date) (bool, error) {
	plans, err := m.FindMealPlansByDateRange(ctx, userID, start, end)
	return len(plans) > 0, err
}

func (m *memData) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// fakeGenerator returns canned results or errors and counts calls.
type fakeGenerator struct {
	mu     sync.Mutex
	result *planner.Result
	err    error
	calls  int
	// onCall runs inside the generator, e.g. to cancel the caller's context.
	onCall func()
	lastFC prompt.FullContext
}

func (f *fakeGenerator) call(fc prompt.FullContext) (*planner.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastFC = fc
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeGenerator) Generate(_ context.Context, fc prompt.FullContext, _ planner.Options) (*planner.Result, error) {
	return f.call(fc)
}

func (f *fakeGenerator) RegenerateSingleMeal(_ context.Context, fc prompt.FullContext, _, _ string, _ planner.Options) (*planner.Result, error) {
	return f.call(fc)
}

func (f *fakeGenerator) RegenerateFullPlan(_ context.Context, fc prompt.FullContext, _ string, _ planner.Options) (*planner.Result, error) {
	return f.call(fc)
}

type recordedUsage struct {
	mu    sync.Mutex
	metas []shared.AgentMeta
}

func (r *recordedUsage) RecordMeta(meta shared.AgentMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metas = append(r.metas, meta)
	return nil
}
