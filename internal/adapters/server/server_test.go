package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/evanschultz/shortlist/internal/adapters/server/common"
)

type stubReview struct{}

func (stubReview) ListRoles(context.Context) ([]string, error) { return []string{"lead"}, nil }

func (stubReview) ListApplicants(context.Context, common.ListApplicantsRequest) ([]common.ApplicantRecord, error) {
	return nil, nil
}

func (stubReview) AvailableActions(context.Context, string) (common.AvailableActions, error) {
	return common.AvailableActions{}, nil
}

func (stubReview) RecordDecision(context.Context, common.RecordDecisionRequest) (common.DecisionRecord, error) {
	return common.DecisionRecord{}, nil
}

func (stubReview) ListDecisions(context.Context, common.ListDecisionsRequest) ([]common.DecisionRecord, error) {
	return nil, nil
}

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, msg)
}

func (l *captureLogger) Debug(msg string, _ ...any) {
	l.Info(msg)
}

// TestNewHandlerRoutes verifies health, api mounting, and request logging.
func TestNewHandlerRoutes(t *testing.T) {
	logger := &captureLogger{}
	handler, cfg, err := NewHandler(Config{APIEndpoint: "api/v1/"}, Dependencies{Review: stubReview{}, Logger: logger})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" || cfg.HTTPBind != defaultBindAddress {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}

	for _, path := range []string{"/healthz", "/readyz", "/api/v1/roles"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, rec.Code)
		}
	}
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.lines) != 3 {
		t.Fatalf("expected 3 request logs, got %v", logger.lines)
	}
}

// TestNewHandlerValidation verifies dependency and endpoint checks.
func TestNewHandlerValidation(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("expected error without review dependency")
	}
	if _, _, err := NewHandler(Config{APIEndpoint: "/x", MCPEndpoint: "x/"}, Dependencies{Review: stubReview{}}); err == nil {
		t.Fatal("expected error for colliding endpoints")
	}
}

// TestRunStopsOnCancel verifies graceful shutdown.
func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{HTTPBind: "127.0.0.1:0"}, Dependencies{Review: stubReview{}})
	}()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
