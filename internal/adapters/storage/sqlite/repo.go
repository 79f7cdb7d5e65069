package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/shortlist/internal/app"
	"github.com/evanschultz/shortlist/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Shared-cache memory databases vanish when the last connection closes.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS applicants (
			id TEXT PRIMARY KEY,
			role_id TEXT NOT NULL,
			name TEXT NOT NULL,
			headline TEXT NOT NULL DEFAULT '',
			notes_markdown TEXT NOT NULL DEFAULT '',
			tags_json TEXT NOT NULL DEFAULT '[]',
			process_state TEXT NOT NULL DEFAULT 'applied',
			position INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			applicant_id TEXT NOT NULL,
			role_id TEXT NOT NULL,
			action_key TEXT NOT NULL,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			status_tag TEXT NOT NULL DEFAULT '',
			actor_id TEXT NOT NULL DEFAULT 'shortlist-user',
			actor_type TEXT NOT NULL DEFAULT 'user',
			decided_at TEXT NOT NULL,
			FOREIGN KEY(applicant_id) REFERENCES applicants(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_applicants_role_position ON applicants(role_id, position, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_role_decided_at ON decisions(role_id, decided_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_applicant ON decisions(applicant_id, decided_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	// status_tag arrived after the first schema; older databases get it with the state as default.
	if _, err := r.db.ExecContext(ctx, `ALTER TABLE applicants ADD COLUMN status_tag TEXT NOT NULL DEFAULT ''`); err != nil && !isDuplicateColumnErr(err) {
		return fmt.Errorf("migrate sqlite add applicants.status_tag: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE applicants SET status_tag = process_state WHERE status_tag = ''`); err != nil {
		return fmt.Errorf("migrate sqlite backfill applicants.status_tag: %w", err)
	}
	return nil
}

// UpsertApplicant inserts or replaces an applicant, keeping its original created_at.
func (r *Repository) UpsertApplicant(ctx context.Context, a domain.Applicant) error {
	tagsJSON, err := json.Marshal(a.Profile.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO applicants(id, role_id, name, headline, notes_markdown, tags_json, process_state, status_tag, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			role_id = excluded.role_id,
			name = excluded.name,
			headline = excluded.headline,
			notes_markdown = excluded.notes_markdown,
			tags_json = excluded.tags_json,
			process_state = excluded.process_state,
			status_tag = excluded.status_tag,
			position = excluded.position,
			updated_at = excluded.updated_at
	`,
		a.ID,
		a.RoleID,
		a.Profile.Name,
		a.Profile.Headline,
		a.Profile.Notes,
		string(tagsJSON),
		string(a.ProcessState),
		a.StatusTag,
		a.Position,
		ts(a.CreatedAt),
		ts(a.UpdatedAt),
	)
	return err
}

// GetApplicant returns one applicant.
func (r *Repository) GetApplicant(ctx context.Context, id string) (domain.Applicant, error) {
	return getApplicantByID(ctx, r.db, id)
}

// ListApplicants lists a role's applicants in review order.
func (r *Repository) ListApplicants(ctx context.Context, roleID string) ([]domain.Applicant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, role_id, name, headline, notes_markdown, tags_json, process_state, status_tag, position, created_at, updated_at
		FROM applicants
		WHERE role_id = ?
		ORDER BY position ASC, created_at ASC, id ASC
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Applicant, 0)
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListRoles lists distinct roles.
func (r *Repository) ListRoles(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT role_id FROM applicants ORDER BY role_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// ApplyDecision moves an applicant and appends the ledger row in one transaction.
// The update only lands when the stored state still equals the decision's from-state.
func (r *Repository) ApplyDecision(ctx context.Context, a domain.Applicant, d domain.Decision) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE applicants
		SET process_state = ?, status_tag = ?, updated_at = ?
		WHERE id = ? AND process_state = ?
	`,
		string(a.ProcessState),
		a.StatusTag,
		ts(a.UpdatedAt),
		a.ID,
		string(d.FromState),
	)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		if _, getErr := getApplicantByID(ctx, tx, a.ID); getErr == nil {
			err = fmt.Errorf("%w: %s is no longer %q", app.ErrConflict, a.ID, d.FromState)
		}
		return err
	}

	if err = insertDecision(ctx, tx, d); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// ListDecisions lists recent decisions for a role, newest first.
func (r *Repository) ListDecisions(ctx context.Context, roleID string, limit int) ([]domain.Decision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, applicant_id, role_id, action_key, from_state, to_state, status_tag, actor_id, actor_type, decided_at
		FROM decisions
		WHERE role_id = ?
		ORDER BY decided_at DESC, rowid DESC
		LIMIT ?
	`, roleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Decision, 0)
	for rows.Next() {
		var (
			d          domain.Decision
			fromState  string
			toState    string
			actorType  string
			decidedRaw string
		)
		if err := rows.Scan(&d.ID, &d.ApplicantID, &d.RoleID, &d.ActionKey, &fromState, &toState, &d.StatusTag, &d.ActorID, &actorType, &decidedRaw); err != nil {
			return nil, err
		}
		d.FromState = domain.ProcessState(fromState)
		d.ToState = domain.ProcessState(toState)
		d.ActorType = normalizeActorType(domain.ActorType(actorType))
		d.DecidedAt = parseTS(decidedRaw)
		out = append(out, d)
	}
	return out, rows.Err()
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// getApplicantByID returns one applicant row.
func getApplicantByID(ctx context.Context, q queryRower, id string) (domain.Applicant, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, role_id, name, headline, notes_markdown, tags_json, process_state, status_tag, position, created_at, updated_at
		FROM applicants
		WHERE id = ?
	`, id)
	return scanApplicant(row)
}

type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// insertDecision inserts a decision ledger record.
func insertDecision(ctx context.Context, execer execerContext, d domain.Decision) error {
	_, err := execer.ExecContext(ctx, `
		INSERT INTO decisions(id, applicant_id, role_id, action_key, from_state, to_state, status_tag, actor_id, actor_type, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.ID,
		d.ApplicantID,
		d.RoleID,
		d.ActionKey,
		string(d.FromState),
		string(d.ToState),
		d.StatusTag,
		chooseActorID(d.ActorID, "shortlist-user"),
		string(normalizeActorType(d.ActorType)),
		ts(normalizeEventTS(d.DecidedAt)),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// chooseActorID returns the first non-empty actor id.
func chooseActorID(candidates ...string) string {
	for _, candidate := range candidates {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return candidate
		}
	}
	return "shortlist-user"
}

// normalizeActorType folds unknown actor types onto user.
func normalizeActorType(actorType domain.ActorType) domain.ActorType {
	switch domain.ActorType(strings.TrimSpace(strings.ToLower(string(actorType)))) {
	case domain.ActorTypeAgent:
		return domain.ActorTypeAgent
	case domain.ActorTypeSystem:
		return domain.ActorTypeSystem
	default:
		return domain.ActorTypeUser
	}
}

func normalizeEventTS(in time.Time) time.Time {
	if in.IsZero() {
		return time.Now().UTC()
	}
	return in.UTC()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanApplicant handles scan applicant.
func scanApplicant(s scanner) (domain.Applicant, error) {
	var (
		a          domain.Applicant
		tagsRaw    string
		state      string
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&a.ID, &a.RoleID, &a.Profile.Name, &a.Profile.Headline, &a.Profile.Notes, &tagsRaw, &state, &a.StatusTag, &a.Position, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Applicant{}, app.ErrNotFound
		}
		return domain.Applicant{}, err
	}
	if strings.TrimSpace(tagsRaw) == "" {
		tagsRaw = "[]"
	}
	if err := json.Unmarshal([]byte(tagsRaw), &a.Profile.Tags); err != nil {
		return domain.Applicant{}, fmt.Errorf("decode applicants.tags_json: %w", err)
	}
	if a.Profile.Tags == nil {
		a.Profile.Tags = []string{}
	}
	a.ProcessState = domain.ProcessState(state)
	a.CreatedAt = parseTS(createdRaw)
	a.UpdatedAt = parseTS(updatedRaw)
	return a, nil
}

// translateNoRows maps a zero-row write onto ErrNotFound.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func isDuplicateColumnErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}
