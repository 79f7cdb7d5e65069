package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	serveradapter "github.com/evanschultz/shortlist/internal/adapters/server"
	servercommon "github.com/evanschultz/shortlist/internal/adapters/server/common"
	"github.com/evanschultz/shortlist/internal/app"
	"github.com/evanschultz/shortlist/internal/platform"
	"github.com/evanschultz/shortlist/internal/tui"
)

// errNoRoles reports an empty store.
var errNoRoles = errors.New("no roles found; run `shortlist import` first")

// reviewFlags selects the role, starting applicant, and filter for a review session.
type reviewFlags struct {
	role   string
	focus  string
	filter []string
}

// runTUI runs the interactive review flow.
func runTUI(ctx context.Context, opts *globalOptions, flags reviewFlags) error {
	env, err := opts.open("tui")
	if err != nil {
		return err
	}
	defer env.Close()
	logger := env.logger
	logger.Info("command flow start", "command", "tui")

	roleID, err := resolveRole(ctx, env, flags.role)
	if err != nil {
		logger.Error("role resolution failed", "err", err)
		return err
	}
	grace, err := env.cfg.Commit.Grace()
	if err != nil {
		return err
	}
	strategy, err := app.ParseSlotStrategy(env.cfg.Slots.Strategy)
	if err != nil {
		return err
	}
	filterValues := flags.filter
	if len(filterValues) == 0 {
		filterValues = env.cfg.Review.DefaultFilter
	}

	engine := app.NewEngine(app.EngineConfig{
		RoleID:       roleID,
		Resolver:     env.svc.Resolver(),
		Gesture:      gestureFromConfig(env.cfg.Gesture),
		GraceWindow:  grace,
		SlotStrategy: strategy,
		Filter:       app.NewFilter(filterValues...),
		InitialOrder: app.InitialOrder{FocusID: strings.TrimSpace(flags.focus)},
	}, env.svc, env.svc, env.svc, app.WithEngineLogger(logger))
	defer engine.Close()
	logger.Info("review engine ready", "role", roleID, "grace", grace, "slots", strategy, "filter", strings.Join(filterValues, ","))

	m := tui.NewModel(engine, tuiOptions(env)...)
	logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	logger.Info("command flow complete", "command", "tui")
	return nil
}

// tuiOptions maps config onto TUI options.
func tuiOptions(env *runtimeEnv) []tui.Option {
	presets := make([]tui.FilterPreset, 0, len(env.cfg.Review.Filters))
	for _, preset := range env.cfg.Review.Filters {
		presets = append(presets, tui.FilterPreset{Name: preset.Name, Values: append([]string(nil), preset.Values...)})
	}
	keys := env.cfg.Keys
	return []tui.Option{
		tui.WithKeyConfig(tui.KeyConfig{
			Reject:      keys.Reject,
			Advance:     keys.Advance,
			CycleFilter: keys.CycleFilter,
			Reset:       keys.Reset,
			CopyID:      keys.CopyID,
		}),
		tui.WithFilterPresets(presets),
		tui.WithCellSize(env.cfg.Gesture.CellWidth, env.cfg.Gesture.CellHeight),
		tui.WithWatchPath(env.cfg.Database.Path),
		tui.WithInvalidator(env.svc.Invalidate),
	}
}

// resolveRole picks the flag value, then review.role, then the first stored role.
func resolveRole(ctx context.Context, env *runtimeEnv, flagRole string) (string, error) {
	if role := strings.TrimSpace(flagRole); role != "" {
		return role, nil
	}
	if role := strings.TrimSpace(env.cfg.Review.Role); role != "" {
		return role, nil
	}
	roles, err := env.svc.ListRoles(ctx)
	if err != nil {
		return "", fmt.Errorf("list roles: %w", err)
	}
	if len(roles) == 0 {
		return "", errNoRoles
	}
	return roles[0], nil
}

// newPathsCommand prints resolved runtime paths.
func newPathsCommand(opts *globalOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data, and seed paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{
				AppName: opts.appName,
				DevMode: opts.devMode,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(stdout, "seed: %s\n", paths.SeedPath)
			return nil
		},
	}
}

// newServeCommand exposes the review service over HTTP and MCP.
func newServeCommand(opts *globalOptions) *cobra.Command {
	var httpBind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the review HTTP API and MCP tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.open("serve")
			if err != nil {
				return err
			}
			defer env.Close()
			env.logger.Info("command flow start", "command", "serve")
			serveCfg := serveradapter.Config{
				HTTPBind:      firstNonBlank(httpBind, env.cfg.Server.Bind),
				APIEndpoint:   firstNonBlank(apiEndpoint, env.cfg.Server.APIEndpoint),
				MCPEndpoint:   firstNonBlank(mcpEndpoint, env.cfg.Server.MCPEndpoint),
				ServerName:    env.appName,
				ServerVersion: version,
			}
			err = serveCommandRunner(cmd.Context(), serveCfg, serveradapter.Dependencies{
				Review: servercommon.NewAppServiceAdapter(env.svc),
				Logger: env.logger,
			})
			if err != nil {
				env.logger.Error("command flow failed", "command", "serve", "err", err)
				return fmt.Errorf("run serve command: %w", err)
			}
			env.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP listen address (defaults to server.bind)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "HTTP API base endpoint (defaults to server.api_endpoint)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint (defaults to server.mcp_endpoint)")
	return cmd
}

// newImportCommand loads applicants from a YAML seed file.
func newImportCommand(opts *globalOptions, stdout io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import applicants from a YAML seed file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.open("import")
			if err != nil {
				return err
			}
			defer env.Close()
			path, err := env.paths.FindSeed(inPath)
			if err != nil {
				env.logger.Error("command flow failed", "command", "import", "err", err)
				return err
			}
			env.logger.Info("command flow start", "command", "import", "in", path)
			seed, err := readSeedFile(path)
			if err != nil {
				env.logger.Error("command flow failed", "command", "import", "err", err)
				return err
			}
			imported, err := env.svc.ImportApplicants(cmd.Context(), seed.inputs(env.cfg.Review.Role))
			if err != nil {
				env.logger.Error("command flow failed", "command", "import", "imported", len(imported), "err", err)
				return fmt.Errorf("import applicants: %w", err)
			}
			_, _ = fmt.Fprintf(stdout, "imported %d applicants\n", len(imported))
			env.logger.Info("command flow complete", "command", "import", "imported", len(imported))
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "seed YAML file (defaults to applicants.yaml or applicants.yml in the config dir)")
	return cmd
}

// newListCommand prints a role's applicants as a table.
func newListCommand(opts *globalOptions, stdout io.Writer) *cobra.Command {
	var (
		role   string
		filter []string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applicants for a role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.open("list")
			if err != nil {
				return err
			}
			defer env.Close()
			roleID, err := resolveRole(cmd.Context(), env, role)
			if err != nil {
				return err
			}
			items, err := env.svc.ListApplicants(cmd.Context(), roleID)
			if err != nil {
				return fmt.Errorf("list applicants: %w", err)
			}
			allow := app.NewFilter(filter...)
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				if !allow.Allows(item) {
					continue
				}
				rows = append(rows, []string{
					item.ID,
					item.DisplayName(),
					string(item.ProcessState),
					item.StatusTag,
					strings.Join(item.Profile.Tags, ","),
				})
			}
			_, _ = fmt.Fprintf(stdout, "role: %s\n", roleID)
			_, _ = fmt.Fprintln(stdout, renderTable([]string{"ID", "NAME", "STATE", "STATUS", "TAGS"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role to list")
	cmd.Flags().StringSliceVar(&filter, "filter", nil, "process states or status tags to show")
	return cmd
}

// newDecisionsCommand prints the decision ledger for a role.
func newDecisionsCommand(opts *globalOptions, stdout io.Writer) *cobra.Command {
	var (
		role  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "List recorded decisions for a role, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.open("decisions")
			if err != nil {
				return err
			}
			defer env.Close()
			roleID, err := resolveRole(cmd.Context(), env, role)
			if err != nil {
				return err
			}
			decisions, err := env.svc.ListDecisions(cmd.Context(), roleID, limit)
			if err != nil {
				return fmt.Errorf("list decisions: %w", err)
			}
			rows := make([][]string, 0, len(decisions))
			for _, d := range decisions {
				rows = append(rows, []string{
					d.DecidedAt.Format("2006-01-02 15:04:05"),
					d.ApplicantID,
					d.ActionKey,
					string(d.FromState) + " → " + string(d.ToState),
					d.ActorID + " (" + string(d.ActorType) + ")",
				})
			}
			_, _ = fmt.Fprintf(stdout, "role: %s\n", roleID)
			_, _ = fmt.Fprintln(stdout, renderTable([]string{"DECIDED", "APPLICANT", "ACTION", "MOVE", "ACTOR"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role to list")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum decisions to show")
	return cmd
}

// renderTable formats rows with a rounded border and a bold header.
func renderTable(headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.Render()
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
