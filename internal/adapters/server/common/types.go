// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrActionRejected reports an action that is not committable from the applicant's current stage.
var ErrActionRejected = errors.New("action not allowed")

// ErrConflict reports a decision that lost a race with another writer.
var ErrConflict = errors.New("conflict")

// ApplicantRecord is the wire shape of one applicant card.
type ApplicantRecord struct {
	ID           string    `json:"id"`
	RoleID       string    `json:"role_id"`
	Name         string    `json:"name"`
	Headline     string    `json:"headline,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	ProcessState string    `json:"process_state"`
	StatusTag    string    `json:"status_tag"`
	Position     int       `json:"position"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ActionZoneRecord describes one committable action.
type ActionZoneRecord struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Direction string `json:"direction"`
}

// AvailableActions lists what an applicant can move to next.
type AvailableActions struct {
	Applicant ApplicantRecord    `json:"applicant"`
	CanReject bool               `json:"can_reject"`
	Actions   []ActionZoneRecord `json:"actions"`
}

// DecisionRecord is the wire shape of one ledger entry.
type DecisionRecord struct {
	ID          string    `json:"id"`
	ApplicantID string    `json:"applicant_id"`
	RoleID      string    `json:"role_id"`
	ActionKey   string    `json:"action"`
	FromState   string    `json:"from_state"`
	ToState     string    `json:"to_state"`
	StatusTag   string    `json:"status_tag"`
	ActorID     string    `json:"actor_id"`
	ActorType   string    `json:"actor_type"`
	DecidedAt   time.Time `json:"decided_at"`
}

// ListApplicantsRequest selects a role queue with an optional filter.
type ListApplicantsRequest struct {
	RoleID string
	Filter []string
}

// ListDecisionsRequest selects recent decisions for a role.
type ListDecisionsRequest struct {
	RoleID string
	Limit  int
}

// RecordDecisionRequest commits one action for one applicant.
type RecordDecisionRequest struct {
	ApplicantID string `json:"applicant_id,omitempty"`
	Action      string `json:"action"`
	ActorID     string `json:"actor_id,omitempty"`
	ActorType   string `json:"actor_type,omitempty"`
}

// ReviewService is the read/write surface shared by the HTTP and MCP transports.
type ReviewService interface {
	ListRoles(context.Context) ([]string, error)
	ListApplicants(context.Context, ListApplicantsRequest) ([]ApplicantRecord, error)
	AvailableActions(context.Context, string) (AvailableActions, error)
	RecordDecision(context.Context, RecordDecisionRequest) (DecisionRecord, error)
	ListDecisions(context.Context, ListDecisionsRequest) ([]DecisionRecord, error)
}
