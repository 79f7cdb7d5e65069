package domain

import (
	"strings"
	"time"
)

// ActorType describes the actor class that recorded a decision.
type ActorType string

// ActorType values.
const (
	ActorTypeUser   ActorType = "user"
	ActorTypeAgent  ActorType = "agent"
	ActorTypeSystem ActorType = "system"
)

// Decision is one ledger entry for an executed review action.
type Decision struct {
	ID          string
	ApplicantID string
	RoleID      string
	ActionKey   string
	FromState   ProcessState
	ToState     ProcessState
	StatusTag   string
	ActorID     string
	ActorType   ActorType
	DecidedAt   time.Time
}

// NewDecision records the move of an applicant from its current state through a transition.
func NewDecision(id string, applicant Applicant, actionKey string, t Transition, actorID string, actorType ActorType, now time.Time) (Decision, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Decision{}, ErrInvalidID
	}
	if strings.TrimSpace(applicant.ID) == "" {
		return Decision{}, ErrInvalidID
	}
	actionKey = normalizeKey(actionKey)
	if actionKey == "" {
		return Decision{}, ErrUnknownAction
	}
	if NormalizeProcessState(t.ProcessState) == "" {
		return Decision{}, ErrInvalidProcessState
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		actorID = "shortlist-user"
	}
	switch actorType {
	case ActorTypeUser, ActorTypeAgent, ActorTypeSystem:
	default:
		actorType = ActorTypeUser
	}
	return Decision{
		ID:          id,
		ApplicantID: applicant.ID,
		RoleID:      applicant.RoleID,
		ActionKey:   actionKey,
		FromState:   applicant.ProcessState,
		ToState:     t.ProcessState,
		StatusTag:   t.StatusTag,
		ActorID:     actorID,
		ActorType:   actorType,
		DecidedAt:   now.UTC(),
	}, nil
}
