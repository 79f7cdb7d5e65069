package app

import (
	"context"

	"github.com/evanschultz/shortlist/internal/domain"
)

// Repository represents repository data used by this package.
type Repository interface {
	UpsertApplicant(context.Context, domain.Applicant) error
	GetApplicant(context.Context, string) (domain.Applicant, error)
	ListApplicants(context.Context, string) ([]domain.Applicant, error)
	ListRoles(context.Context) ([]string, error)

	// ApplyDecision persists the applicant transition and the ledger row atomically.
	ApplyDecision(context.Context, domain.Applicant, domain.Decision) error
	ListDecisions(context.Context, string, int) ([]domain.Decision, error)
}

// DataSource supplies the applicants for one role's review session.
type DataSource interface {
	ListApplicants(ctx context.Context, roleID string) ([]domain.Applicant, error)
}

// MutationExecutor executes one committed review action.
type MutationExecutor interface {
	ExecuteDecision(ctx context.Context, applicantID, actionKey string, t domain.Transition) (domain.Decision, error)
}

// CacheInvalidator receives the fire-and-forget refresh signal after a commit.
type CacheInvalidator interface {
	Invalidate(roleID string)
}

// Logger is the subset of a structured logger the engine writes to.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
