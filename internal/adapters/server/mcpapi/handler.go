// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/evanschultz/shortlist/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the review tools.
func NewHandler(cfg Config, review common.ReviewService) (*Handler, error) {
	if review == nil {
		return nil, fmt.Errorf("review service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerReadTools(mcpSrv, review)
	registerDecisionTool(mcpSrv, review)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "shortlist"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerReadTools registers role, queue, action, and history lookups.
func registerReadTools(srv *mcpserver.MCPServer, review common.ReviewService) {
	srv.AddTool(
		mcp.NewTool(
			"shortlist.list_roles",
			mcp.WithDescription("List roles that have applicants."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			roles, err := review.ListRoles(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"roles": roles})
			if err != nil {
				return nil, fmt.Errorf("encode list_roles result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"shortlist.list_applicants",
			mcp.WithDescription("List one role's review queue in order."),
			mcp.WithString("role_id", mcp.Required(), mcp.Description("Role identifier")),
			mcp.WithString("filter", mcp.Description("Comma-separated stage or tag values")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			roleID, err := req.RequireString("role_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			var filter []string
			if raw := strings.TrimSpace(req.GetString("filter", "")); raw != "" {
				filter = strings.Split(raw, ",")
			}
			rows, err := review.ListApplicants(ctx, common.ListApplicantsRequest{RoleID: roleID, Filter: filter})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"applicants": rows})
			if err != nil {
				return nil, fmt.Errorf("encode list_applicants result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"shortlist.available_actions",
			mcp.WithDescription("Return the actions one applicant can move through from its current stage."),
			mcp.WithString("applicant_id", mcp.Required(), mcp.Description("Applicant identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			applicantID, err := req.RequireString("applicant_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			out, err := review.AvailableActions(ctx, applicantID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode available_actions result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"shortlist.list_decisions",
			mcp.WithDescription("List recent decisions for one role, newest first."),
			mcp.WithString("role_id", mcp.Required(), mcp.Description("Role identifier")),
			mcp.WithNumber("limit", mcp.Description("Maximum rows (default 50)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				RoleID string `json:"role_id"`
				Limit  int    `json:"limit"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			rows, err := review.ListDecisions(ctx, common.ListDecisionsRequest{RoleID: args.RoleID, Limit: args.Limit})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"decisions": rows})
			if err != nil {
				return nil, fmt.Errorf("encode list_decisions result: %w", err)
			}
			return result, nil
		},
	)
}

// registerDecisionTool registers the one mutating tool.
func registerDecisionTool(srv *mcpserver.MCPServer, review common.ReviewService) {
	srv.AddTool(
		mcp.NewTool(
			"shortlist.record_decision",
			mcp.WithDescription("Move one applicant forward, shortlist it, or reject it."),
			mcp.WithString("applicant_id", mcp.Required(), mcp.Description("Applicant identifier")),
			mcp.WithString("action", mcp.Required(), mcp.Description("Action key from available_actions")),
			mcp.WithString("actor_id", mcp.Description("Who is deciding")),
			mcp.WithString("actor_type", mcp.Description("user|agent|system"), mcp.Enum("user", "agent", "system")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.RecordDecisionRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.ActorType) == "" && strings.TrimSpace(args.ActorID) != "" {
				args.ActorType = "agent"
			}
			decision, err := review.RecordDecision(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(decision)
			if err != nil {
				return nil, fmt.Errorf("encode record_decision result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrActionRejected):
		return mcp.NewToolResultError("action_not_allowed: " + err.Error())
	case errors.Is(err, common.ErrConflict):
		return mcp.NewToolResultError("conflict: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}

func invalidRequestToolResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError("invalid_request: " + err.Error())
}
