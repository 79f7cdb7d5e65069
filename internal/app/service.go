package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/evanschultz/shortlist/internal/domain"
)

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	Resolver       domain.Resolver
	DefaultActorID string
	Logger         Logger
}

// Service implements the data source, mutation executor and cache invalidator over a Repository.
type Service struct {
	repo     Repository
	idGen    IDGenerator
	clock    Clock
	resolver domain.Resolver
	actorID  string
	log      Logger

	group     singleflight.Group
	mu        sync.RWMutex
	cache     map[string][]domain.Applicant
	versions  map[string]uint64
	refreshes sync.WaitGroup
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.Resolver.Policy.InitialState == "" {
		cfg.Resolver = domain.NewResolver(domain.DefaultPolicy(), cfg.Resolver.Stages)
	}
	if strings.TrimSpace(cfg.DefaultActorID) == "" {
		cfg.DefaultActorID = "shortlist-user"
	}
	var log Logger = nopLogger{}
	if cfg.Logger != nil {
		log = cfg.Logger
	}
	return &Service{
		repo:     repo,
		idGen:    idGen,
		clock:    clock,
		resolver: cfg.Resolver,
		actorID:  strings.TrimSpace(cfg.DefaultActorID),
		log:      log,
		cache:    map[string][]domain.Applicant{},
		versions: map[string]uint64{},
	}
}

// Resolver returns the action resolver used for validation.
func (s *Service) Resolver() domain.Resolver {
	return s.resolver
}

// ListApplicants returns a role's applicants, serving from cache when warm.
// Concurrent misses for one role share a single repository read.
func (s *Service) ListApplicants(ctx context.Context, roleID string) ([]domain.Applicant, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, domain.ErrInvalidRoleID
	}
	s.mu.RLock()
	cached, ok := s.cache[roleID]
	s.mu.RUnlock()
	if ok {
		return slices.Clone(cached), nil
	}
	items, err := s.fetch(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(items), nil
}

// Refresh re-reads a role from the repository and replaces the cache entry.
func (s *Service) Refresh(ctx context.Context, roleID string) ([]domain.Applicant, error) {
	roleID = strings.TrimSpace(roleID)
	s.drop(roleID)
	items, err := s.fetch(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(items), nil
}

func (s *Service) fetch(ctx context.Context, roleID string) ([]domain.Applicant, error) {
	v, err, _ := s.group.Do(roleID, func() (any, error) {
		s.mu.RLock()
		version := s.versions[roleID]
		s.mu.RUnlock()
		items, err := s.repo.ListApplicants(ctx, roleID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		// A read that raced an invalidation must not repopulate the cache.
		if s.versions[roleID] == version {
			s.cache[roleID] = items
		}
		s.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Applicant), nil
}

// Invalidate drops a role's cache entry and refetches it in the background.
func (s *Service) Invalidate(roleID string) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return
	}
	s.drop(roleID)
	s.refreshes.Add(1)
	go func() {
		defer s.refreshes.Done()
		if _, err := s.fetch(context.Background(), roleID); err != nil {
			s.log.Warn("background refetch failed", "role_id", roleID, "err", err)
		}
	}()
}

func (s *Service) drop(roleID string) {
	s.mu.Lock()
	delete(s.cache, roleID)
	s.versions[roleID]++
	s.mu.Unlock()
	s.group.Forget(roleID)
}

// WaitIdle blocks until background refetches finish.
func (s *Service) WaitIdle() {
	s.refreshes.Wait()
}

// GetApplicant returns one applicant.
func (s *Service) GetApplicant(ctx context.Context, applicantID string) (domain.Applicant, error) {
	applicantID = strings.TrimSpace(applicantID)
	if applicantID == "" {
		return domain.Applicant{}, domain.ErrInvalidID
	}
	return s.repo.GetApplicant(ctx, applicantID)
}

// AvailableActions returns an applicant and the zones it can currently move through.
func (s *Service) AvailableActions(ctx context.Context, applicantID string) (domain.Applicant, domain.ZoneSet, error) {
	applicant, err := s.GetApplicant(ctx, applicantID)
	if err != nil {
		return domain.Applicant{}, domain.ZoneSet{}, err
	}
	return applicant, s.resolver.Zones(applicant.ProcessState), nil
}

// ExecuteDecision persists one transition against the stored state.
// The action is re-validated so a stale client cannot move an applicant backward.
func (s *Service) ExecuteDecision(ctx context.Context, applicantID, actionKey string, t domain.Transition) (domain.Decision, error) {
	applicant, err := s.GetApplicant(ctx, applicantID)
	if err != nil {
		return domain.Decision{}, err
	}
	if err := s.resolver.Allowed(applicant.ProcessState, actionKey); err != nil {
		return domain.Decision{}, err
	}
	expected, err := s.resolver.Transition(actionKey)
	if err != nil {
		return domain.Decision{}, err
	}
	if domain.NormalizeProcessState(t.ProcessState) == "" {
		t = expected
	}
	if domain.NormalizeProcessState(t.ProcessState) != expected.ProcessState {
		return domain.Decision{}, fmt.Errorf("%w: %q does not move to %q", domain.ErrActionNotAllowed, actionKey, t.ProcessState)
	}
	if strings.TrimSpace(t.StatusTag) == "" {
		t.StatusTag = expected.StatusTag
	}

	actorID, actorType := s.actorID, domain.ActorTypeUser
	if actor, ok := MutationActorFromContext(ctx); ok {
		actorID, actorType = actor.ActorID, actor.ActorType
	}
	now := s.clock()
	decision, err := domain.NewDecision(s.idGen(), applicant, actionKey, t, actorID, actorType, now)
	if err != nil {
		return domain.Decision{}, err
	}
	if err := s.repo.ApplyDecision(ctx, applicant.WithTransition(t, now), decision); err != nil {
		return domain.Decision{}, err
	}
	s.log.Debug("decision recorded", "applicant_id", applicant.ID, "action", decision.ActionKey, "from", decision.FromState, "to", decision.ToState, "actor", actorID)
	return decision, nil
}

// Decide records a decision for a remote caller and signals the cache right away.
func (s *Service) Decide(ctx context.Context, applicantID, actionKey string) (domain.Decision, error) {
	transition, err := s.resolver.Transition(actionKey)
	if err != nil {
		return domain.Decision{}, err
	}
	decision, err := s.ExecuteDecision(ctx, applicantID, actionKey, transition)
	if err != nil {
		return domain.Decision{}, err
	}
	s.Invalidate(decision.RoleID)
	return decision, nil
}

// ListDecisions lists recent decisions for a role, newest first.
func (s *Service) ListDecisions(ctx context.Context, roleID string, limit int) ([]domain.Decision, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, domain.ErrInvalidRoleID
	}
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListDecisions(ctx, roleID, limit)
}

// ListRoles lists roles that have applicants.
func (s *Service) ListRoles(ctx context.Context) ([]string, error) {
	return s.repo.ListRoles(ctx)
}

// ImportApplicants validates and upserts applicants, assigning ids and positions where missing.
func (s *Service) ImportApplicants(ctx context.Context, in []domain.ApplicantInput) ([]domain.Applicant, error) {
	now := s.clock()
	out := make([]domain.Applicant, 0, len(in))
	roles := map[string]struct{}{}
	for idx, row := range in {
		if strings.TrimSpace(row.ID) == "" {
			row.ID = s.idGen()
		}
		if row.Position == 0 {
			row.Position = idx
		}
		applicant, err := domain.NewApplicant(row, now)
		if err != nil {
			return out, fmt.Errorf("applicant %d (%s): %w", idx, row.Profile.Name, err)
		}
		if err := s.repo.UpsertApplicant(ctx, applicant); err != nil {
			return out, err
		}
		roles[applicant.RoleID] = struct{}{}
		out = append(out, applicant)
	}
	for role := range roles {
		s.Invalidate(role)
	}
	return out, nil
}
