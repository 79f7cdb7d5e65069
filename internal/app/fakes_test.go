package app

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evanschultz/shortlist/internal/domain"
)

type fakeRepo struct {
	mu         sync.Mutex
	applicants map[string]domain.Applicant
	decisions  []domain.Decision
	listCalls  atomic.Int32
	listGate   chan struct{}
	applyErr   error
}

func newFakeRepo(items ...domain.Applicant) *fakeRepo {
	f := &fakeRepo{applicants: map[string]domain.Applicant{}}
	for _, item := range items {
		f.applicants[item.ID] = item
	}
	return f
}

func (f *fakeRepo) UpsertApplicant(_ context.Context, a domain.Applicant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applicants[a.ID] = a
	return nil
}

func (f *fakeRepo) GetApplicant(_ context.Context, id string) (domain.Applicant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applicants[id]
	if !ok {
		return domain.Applicant{}, ErrNotFound
	}
	return a, nil
}

func (f *fakeRepo) ListApplicants(_ context.Context, roleID string) ([]domain.Applicant, error) {
	f.listCalls.Add(1)
	if f.listGate != nil {
		<-f.listGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Applicant, 0, len(f.applicants))
	for _, a := range f.applicants {
		if a.RoleID == roleID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b domain.Applicant) int { return a.Position - b.Position })
	return out, nil
}

func (f *fakeRepo) ListRoles(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, a := range f.applicants {
		if !slices.Contains(out, a.RoleID) {
			out = append(out, a.RoleID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (f *fakeRepo) ApplyDecision(_ context.Context, a domain.Applicant, d domain.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applicants[a.ID] = a
	f.decisions = append(f.decisions, d)
	return nil
}

func (f *fakeRepo) ListDecisions(_ context.Context, roleID string, limit int) ([]domain.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Decision{}
	for i := len(f.decisions) - 1; i >= 0 && len(out) < limit; i-- {
		if f.decisions[i].RoleID == roleID {
			out = append(out, f.decisions[i])
		}
	}
	return out, nil
}

// execCall records one mutation executor invocation.
type execCall struct {
	ApplicantID string
	ActionKey   string
	Transition  domain.Transition
}

type fakeExecutor struct {
	mu      sync.Mutex
	calls   []execCall
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeExecutor) ExecuteDecision(ctx context.Context, applicantID, actionKey string, t domain.Transition) (domain.Decision, error) {
	f.mu.Lock()
	f.calls = append(f.calls, execCall{ApplicantID: applicantID, ActionKey: actionKey, Transition: t})
	err := f.err
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return domain.Decision{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.Decision{}, err
	}
	return domain.Decision{ID: "d-" + applicantID, ApplicantID: applicantID, ActionKey: actionKey, ToState: t.ProcessState, StatusTag: t.StatusTag}, nil
}

func (f *fakeExecutor) Calls() []execCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

type fakeInvalidator struct {
	mu    sync.Mutex
	roles []string
}

func (f *fakeInvalidator) Invalidate(roleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = append(f.roles, roleID)
}

func (f *fakeInvalidator) Roles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.roles)
}

type staticSource struct {
	mu    sync.Mutex
	items []domain.Applicant
	calls int
}

func (s *staticSource) ListApplicants(context.Context, string) ([]domain.Applicant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return slices.Clone(s.items), nil
}

func (s *staticSource) Set(items []domain.Applicant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

// recordingSleeper captures grace waits without sleeping.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func (r *recordingSleeper) Waits() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.waits)
}

func mustApplicant(id string, state domain.ProcessState, position int) domain.Applicant {
	a, err := domain.NewApplicant(domain.ApplicantInput{
		ID:           id,
		RoleID:       "lead",
		ProcessState: state,
		Position:     position,
		Profile:      domain.Profile{Name: "Applicant " + id},
	}, time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC))
	if err != nil {
		panic(err)
	}
	return a
}

func ids(items []domain.Applicant) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
