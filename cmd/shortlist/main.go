package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	serveradapter "github.com/evanschultz/shortlist/internal/adapters/server"
	"github.com/evanschultz/shortlist/internal/adapters/storage/sqlite"
	"github.com/evanschultz/shortlist/internal/app"
	"github.com/evanschultz/shortlist/internal/config"
	"github.com/evanschultz/shortlist/internal/domain"
	"github.com/evanschultz/shortlist/internal/platform"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run builds the command tree and executes it with the given arguments.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version), fang.WithoutManpage())
}

// globalOptions holds persistent flags shared by every command.
type globalOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	stderr     io.Writer
}

// newRootCommand wires the review TUI and its subcommands.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{stderr: stderr, appName: "shortlist", devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("SHORTLIST_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("SHORTLIST_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	var tuiFlags reviewFlags
	root := &cobra.Command{
		Use:           "shortlist",
		Short:         "Swipe through applicants for a role",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, tuiFlags)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to config TOML")
	pf.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	pf.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	pf.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.Flags().StringVar(&tuiFlags.role, "role", "", "role to review (defaults to review.role or the first role found)")
	root.Flags().StringVar(&tuiFlags.focus, "focus", "", "applicant id to start the session from")
	root.Flags().StringSliceVar(&tuiFlags.filter, "filter", nil, "process states or status tags to show")

	root.AddCommand(
		newPathsCommand(opts, stdout),
		newServeCommand(opts),
		newImportCommand(opts, stdout),
		newListCommand(opts, stdout),
		newDecisionsCommand(opts, stdout),
	)
	return root
}

// runtimeEnv holds everything a command needs once config and storage are resolved.
type runtimeEnv struct {
	appName string
	paths   platform.Paths
	cfg     config.Config
	logger  *runtimeLogger
	repo    *sqlite.Repository
	svc     *app.Service
}

// open resolves paths and config, then opens logging and storage for one command.
func (o *globalOptions) open(command string) (*runtimeEnv, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
	if err != nil {
		return nil, err
	}

	configPath := strings.TrimSpace(o.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("SHORTLIST_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(o.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("SHORTLIST_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(o.stderr, o.appName, o.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// The review screen owns the terminal; runtime logs go to the dev file only.
		logger.SetConsoleEnabled(false)
	}
	logger.Info("startup configuration resolved", "app", o.appName, "dev_mode", o.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	if err := config.EnsureConfigDir(cfg.Database.Path); err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}

	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		Resolver: resolverFromConfig(cfg.Review),
		Logger:   logger,
	})
	logger.Debug("application service initialized", "stages", len(cfg.Review.Stages))
	return &runtimeEnv{
		appName: o.appName,
		paths:   paths,
		cfg:     cfg,
		logger:  logger,
		repo:    repo,
		svc:     svc,
	}, nil
}

// Close waits for background refreshes, then closes storage and the log file.
func (e *runtimeEnv) Close() {
	if e == nil {
		return
	}
	e.svc.WaitIdle()
	if err := e.repo.Close(); err != nil {
		e.logger.Warn("sqlite close failed", "db_path", e.cfg.Database.Path, "err", err)
	}
	if err := e.logger.Close(); err != nil && e.logger.shouldLogToSink(e.logger.consoleSink) {
		_, _ = fmt.Fprintf(e.logger.stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// resolverFromConfig maps the review section onto the action resolver.
func resolverFromConfig(cfg config.ReviewConfig) domain.Resolver {
	stages := make([]domain.Stage, 0, len(cfg.Stages))
	for _, stage := range cfg.Stages {
		stages = append(stages, domain.Stage{Key: stage.Key, Label: stage.Label})
	}
	return domain.NewResolver(domain.Policy{
		InitialState:        domain.ProcessState(cfg.InitialState),
		TerminalStates:      toStates(cfg.TerminalStates),
		NonRejectableStates: toStates(cfg.NonRejectableStates),
		OfferEnabled:        cfg.OfferEnabled,
	}, stages)
}

func toStates(raw []string) []domain.ProcessState {
	out := make([]domain.ProcessState, 0, len(raw))
	for _, value := range raw {
		if state := domain.NormalizeProcessState(domain.ProcessState(value)); state != "" {
			out = append(out, state)
		}
	}
	return out
}

// gestureFromConfig maps gesture thresholds; the screen size arrives later from the host.
func gestureFromConfig(cfg config.GestureConfig) app.GestureConfig {
	out := app.DefaultGestureConfig()
	out.ActivationThreshold = cfg.ActivationThreshold
	out.ReleaseThreshold = cfg.ReleaseThreshold
	out.VelocityThreshold = cfg.VelocityThreshold
	out.HighlightThreshold = cfg.HighlightThreshold
	out.NeighborDim = cfg.NeighborDim
	out.Margin = cfg.Margin
	return out
}

// parseBoolEnv parses one boolean environment variable.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}
