package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/evanschultz/shortlist/internal/domain"
)

// DefaultGraceWindow is the wait between a successful mutation and the cursor advance.
const DefaultGraceWindow = 600 * time.Millisecond

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// CommitRequest describes one commit handed over by the interaction loop.
type CommitRequest struct {
	Generation uint64
	RoleID     string
	Item       domain.Applicant
	Zone       domain.ActionZone
	Transition domain.Transition
}

// CommitOutcome reports how a commit job finished. Err is recoverable and carried as data.
type CommitOutcome struct {
	Request  CommitRequest
	Decision domain.Decision
	Queue    QueueState
	Stale    bool
	Err      error
}

// AdvanceFunc advances the cursor past the committed item when it is still current in that generation.
type AdvanceFunc func(generation uint64, itemID string) (QueueState, error)

// Coordinator runs commits through the mutation executor with an at-most-one guard.
type Coordinator struct {
	guard       atomic.Bool
	exec        MutationExecutor
	invalidator CacheInvalidator
	advance     AdvanceFunc
	grace       time.Duration
	sleep       Sleeper
	log         Logger
}

// NewCoordinator constructs a coordinator. A nil invalidator skips the refresh signal.
func NewCoordinator(exec MutationExecutor, invalidator CacheInvalidator, advance AdvanceFunc, grace time.Duration) *Coordinator {
	if grace < 0 {
		grace = DefaultGraceWindow
	}
	return &Coordinator{
		exec:        exec,
		invalidator: invalidator,
		advance:     advance,
		grace:       grace,
		sleep:       sleepContext,
		log:         nopLogger{},
	}
}

// SetSleeper replaces the grace-window wait, mainly for tests.
func (c *Coordinator) SetSleeper(sleep Sleeper) {
	if sleep != nil {
		c.sleep = sleep
	}
}

// SetLogger attaches a logger.
func (c *Coordinator) SetLogger(log Logger) {
	if log != nil {
		c.log = log
	}
}

// Busy reports whether a commit is in flight.
func (c *Coordinator) Busy() bool {
	return c.guard.Load()
}

// Commit takes the guard synchronously and returns the async job to run.
// When the guard is already held it returns false and the request is dropped.
func (c *Coordinator) Commit(ctx context.Context, req CommitRequest) (func() CommitOutcome, bool) {
	if !c.guard.CompareAndSwap(false, true) {
		c.log.Debug("commit dropped; guard held", "applicant_id", req.Item.ID, "action", req.Zone.Key)
		return nil, false
	}
	return func() CommitOutcome {
		return c.run(ctx, req)
	}, true
}

// CommitAndWait runs a commit to completion on the calling goroutine.
func (c *Coordinator) CommitAndWait(ctx context.Context, req CommitRequest) (CommitOutcome, error) {
	job, ok := c.Commit(ctx, req)
	if !ok {
		return CommitOutcome{Request: req}, ErrCommitBusy
	}
	return job(), nil
}

func (c *Coordinator) run(ctx context.Context, req CommitRequest) CommitOutcome {
	out := CommitOutcome{Request: req}
	decision, err := c.exec.ExecuteDecision(ctx, req.Item.ID, req.Zone.Key, req.Transition)
	if err != nil {
		c.guard.Store(false)
		out.Err = fmt.Errorf("%w: %s %s: %w", ErrCommitFailed, req.Zone.Key, req.Item.ID, err)
		c.log.Warn("commit failed", "applicant_id", req.Item.ID, "action", req.Zone.Key, "err", err)
		return out
	}
	out.Decision = decision

	// The mutation already landed, so a cancelled wait still advances.
	if c.grace > 0 {
		_ = c.sleep(ctx, c.grace)
	}
	if c.invalidator != nil {
		c.invalidator.Invalidate(req.RoleID)
	}
	if c.advance != nil {
		state, err := c.advance(req.Generation, req.Item.ID)
		out.Queue = state
		if errors.Is(err, ErrSessionStale) {
			out.Stale = true
			c.log.Debug("commit landed on stale session", "applicant_id", req.Item.ID, "generation", req.Generation)
		}
	}
	c.guard.Store(false)
	c.log.Info("commit applied", "applicant_id", req.Item.ID, "action", req.Zone.Key, "to", req.Transition.ProcessState)
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
