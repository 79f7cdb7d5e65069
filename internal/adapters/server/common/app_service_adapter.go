package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanschultz/shortlist/internal/app"
	"github.com/evanschultz/shortlist/internal/domain"
)

// maxDecisionLimit caps list_decisions page size.
const maxDecisionLimit = 500

// AppServiceAdapter maps transport contracts onto app.Service.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// ListRoles lists roles that have applicants.
func (a *AppServiceAdapter) ListRoles(ctx context.Context) ([]string, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	roles, err := a.service.ListRoles(ctx)
	if err != nil {
		return nil, mapAppError("list roles", err)
	}
	return roles, nil
}

// ListApplicants lists a role's queue in review order, narrowed by an optional filter.
func (a *AppServiceAdapter) ListApplicants(ctx context.Context, in ListApplicantsRequest) ([]ApplicantRecord, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	roleID := strings.TrimSpace(in.RoleID)
	if roleID == "" {
		return nil, fmt.Errorf("role_id is required: %w", ErrInvalidRequest)
	}
	rows, err := a.service.ListApplicants(ctx, roleID)
	if err != nil {
		return nil, mapAppError("list applicants", err)
	}
	filter := app.NewFilter(in.Filter...)
	out := make([]ApplicantRecord, 0, len(rows))
	for _, row := range rows {
		if !filter.Allows(row) {
			continue
		}
		out = append(out, mapApplicant(row))
	}
	return out, nil
}

// AvailableActions returns the zones an applicant can currently move through.
func (a *AppServiceAdapter) AvailableActions(ctx context.Context, applicantID string) (AvailableActions, error) {
	if err := a.ready(); err != nil {
		return AvailableActions{}, err
	}
	applicant, zones, err := a.service.AvailableActions(ctx, applicantID)
	if err != nil {
		return AvailableActions{}, mapAppError("available actions", err)
	}
	out := AvailableActions{
		Applicant: mapApplicant(applicant),
		CanReject: zones.CanReject,
		Actions:   make([]ActionZoneRecord, 0, len(zones.Right)+1),
	}
	if zones.CanReject {
		out.Actions = append(out.Actions, mapZone(zones.Reject))
	}
	for _, zone := range zones.Right {
		out.Actions = append(out.Actions, mapZone(zone))
	}
	return out, nil
}

// RecordDecision commits one action, attributing it to the caller when identified.
func (a *AppServiceAdapter) RecordDecision(ctx context.Context, in RecordDecisionRequest) (DecisionRecord, error) {
	if err := a.ready(); err != nil {
		return DecisionRecord{}, err
	}
	applicantID := strings.TrimSpace(in.ApplicantID)
	action := strings.TrimSpace(in.Action)
	if applicantID == "" {
		return DecisionRecord{}, fmt.Errorf("applicant_id is required: %w", ErrInvalidRequest)
	}
	if action == "" {
		return DecisionRecord{}, fmt.Errorf("action is required: %w", ErrInvalidRequest)
	}
	if actorID := strings.TrimSpace(in.ActorID); actorID != "" {
		ctx = app.WithMutationActor(ctx, app.MutationActor{
			ActorID:   actorID,
			ActorType: domain.ActorType(in.ActorType),
		})
	}
	decision, err := a.service.Decide(ctx, applicantID, action)
	if err != nil {
		return DecisionRecord{}, mapAppError("record decision", err)
	}
	return mapDecision(decision), nil
}

// ListDecisions lists recent decisions for a role, newest first.
func (a *AppServiceAdapter) ListDecisions(ctx context.Context, in ListDecisionsRequest) ([]DecisionRecord, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.RoleID) == "" {
		return nil, fmt.Errorf("role_id is required: %w", ErrInvalidRequest)
	}
	if in.Limit < 0 || in.Limit > maxDecisionLimit {
		return nil, fmt.Errorf("limit must be between 0 and %d: %w", maxDecisionLimit, ErrInvalidRequest)
	}
	rows, err := a.service.ListDecisions(ctx, in.RoleID, in.Limit)
	if err != nil {
		return nil, mapAppError("list decisions", err)
	}
	out := make([]DecisionRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapDecision(row))
	}
	return out, nil
}

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	return nil
}

// mapAppError folds app and domain errors onto transport sentinels.
func mapAppError(op string, err error) error {
	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrConflict):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrConflict, err))
	case errors.Is(err, domain.ErrActionNotAllowed):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrActionRejected, err))
	case errors.Is(err, domain.ErrUnknownAction),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidRoleID):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func mapApplicant(a domain.Applicant) ApplicantRecord {
	return ApplicantRecord{
		ID:           a.ID,
		RoleID:       a.RoleID,
		Name:         a.DisplayName(),
		Headline:     a.Profile.Headline,
		Notes:        a.Profile.Notes,
		Tags:         append([]string(nil), a.Profile.Tags...),
		ProcessState: string(a.ProcessState),
		StatusTag:    a.StatusTag,
		Position:     a.Position,
		UpdatedAt:    a.UpdatedAt,
	}
}

func mapZone(z domain.ActionZone) ActionZoneRecord {
	return ActionZoneRecord{Key: z.Key, Label: z.Label, Direction: z.Direction.String()}
}

func mapDecision(d domain.Decision) DecisionRecord {
	return DecisionRecord{
		ID:          d.ID,
		ApplicantID: d.ApplicantID,
		RoleID:      d.RoleID,
		ActionKey:   d.ActionKey,
		FromState:   string(d.FromState),
		ToState:     string(d.ToState),
		StatusTag:   d.StatusTag,
		ActorID:     d.ActorID,
		ActorType:   string(d.ActorType),
		DecidedAt:   d.DecidedAt,
	}
}
