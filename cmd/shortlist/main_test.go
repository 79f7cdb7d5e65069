package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	serveradapter "github.com/evanschultz/shortlist/internal/adapters/server"
	"github.com/evanschultz/shortlist/internal/config"
)

// TestMain sets deterministic environment defaults for CLI tests.
func TestMain(m *testing.M) {
	_ = os.Setenv("SHORTLIST_DEV_MODE", "false")
	os.Exit(m.Run())
}

// fakeProgram represents fake program data used by this package.
type fakeProgram struct {
	runErr error
}

// Run runs the requested command flow.
func (f fakeProgram) Run() (tea.Model, error) {
	return nil, f.runErr
}

// scriptedProgram drives a model through messages inside run() tests.
type scriptedProgram struct {
	model tea.Model
	runFn func(tea.Model) (tea.Model, error)
}

// Run runs scripted model interactions and returns the final state.
func (p scriptedProgram) Run() (tea.Model, error) {
	if p.runFn == nil {
		return p.model, nil
	}
	return p.runFn(p.model)
}

// applyModelMsg applies one message and any resulting command chain.
func applyModelMsg(t *testing.T, model tea.Model, msg tea.Msg) tea.Model {
	t.Helper()
	updated, cmd := model.Update(msg)
	out := updated
	for i := 0; i < 8 && cmd != nil; i++ {
		out, cmd = out.Update(cmd())
	}
	return out
}

// testEnv holds temp paths for one CLI run.
type testEnv struct {
	dir     string
	dbPath  string
	cfgPath string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:     dir,
		dbPath:  filepath.Join(dir, "shortlist.db"),
		cfgPath: filepath.Join(dir, "config.toml"),
	}
	writeFile(t, env.cfgPath, `
[commit]
grace_window = "1ms"

[logging]
level = "error"
`)
	return env
}

func (e testEnv) args(extra ...string) []string {
	return append([]string{"--db", e.dbPath, "--config", e.cfgPath}, extra...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

// seedTwoApplicants imports two applicants into the lead role.
func seedTwoApplicants(t *testing.T, env testEnv) {
	t.Helper()
	seedPath := filepath.Join(env.dir, "applicants.yaml")
	writeFile(t, seedPath, `
role: lead
applicants:
  - id: a1
    name: Ada Lovelace
    headline: Stage and screen
    tags: [Musical]
  - id: a2
    name: Grace Hopper
    state: callback
`)
	var out bytes.Buffer
	if err := run(context.Background(), env.args("import", "--in", seedPath), &out, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}
	if !strings.Contains(out.String(), "imported 2 applicants") {
		t.Fatalf("unexpected import output %q", out.String())
	}
}

// TestRunVersion verifies the version flag.
func TestRunVersion(t *testing.T) {
	var out strings.Builder
	if err := run(context.Background(), []string{"--version"}, &out, io.Discard); err != nil {
		t.Fatalf("run(version) error = %v", err)
	}
	if !strings.Contains(out.String(), version) {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

// TestRunPathsCommand verifies resolved paths are printed.
func TestRunPathsCommand(t *testing.T) {
	var out strings.Builder
	if err := run(context.Background(), []string{"--app", "shortlist-test", "paths"}, &out, io.Discard); err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	for _, want := range []string{"app: shortlist-test", "dev_mode: false", "config:", "db:", "seed:"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in paths output %q", want, out.String())
		}
	}
}

// TestRunUnknownCommand verifies unknown subcommands fail.
func TestRunUnknownCommand(t *testing.T) {
	if err := run(context.Background(), []string{"bogus"}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected unknown command error")
	}
}

// TestRunInvalidFlag verifies flag parse failures surface.
func TestRunInvalidFlag(t *testing.T) {
	if err := run(context.Background(), []string{"--definitely-not-a-flag"}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected flag parse error")
	}
}

// TestRunImportAndList verifies seeded applicants show up in the list table.
func TestRunImportAndList(t *testing.T) {
	env := newTestEnv(t)
	seedTwoApplicants(t, env)

	var out strings.Builder
	if err := run(context.Background(), env.args("list"), &out, io.Discard); err != nil {
		t.Fatalf("run(list) error = %v", err)
	}
	for _, want := range []string{"role: lead", "Ada Lovelace", "Grace Hopper", "callback", "musical"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in list output:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := run(context.Background(), env.args("list", "--filter", "callback"), &out, io.Discard); err != nil {
		t.Fatalf("run(list --filter) error = %v", err)
	}
	if strings.Contains(out.String(), "Ada Lovelace") || !strings.Contains(out.String(), "Grace Hopper") {
		t.Fatalf("expected filtered list, got:\n%s", out.String())
	}
}

// TestRunImportFindsConfigDirSeed verifies import without --in reads the seed beside the config.
func TestRunImportFindsConfigDirSeed(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on XDG overrides")
	}
	env := newTestEnv(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if err := run(context.Background(), env.args("--app", "casting", "import"), io.Discard, io.Discard); err == nil {
		t.Fatal("expected seed not found error")
	}

	seedDir := filepath.Join(xdg, "casting")
	if err := os.MkdirAll(seedDir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	writeFile(t, filepath.Join(seedDir, "applicants.yml"), "role: lead\napplicants:\n  - name: Ada Lovelace\n")
	var out strings.Builder
	if err := run(context.Background(), env.args("--app", "casting", "import"), &out, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}
	if !strings.Contains(out.String(), "imported 1 applicants") {
		t.Fatalf("unexpected import output %q", out.String())
	}
}

// TestRunImportErrors verifies missing and malformed seed files fail.
func TestRunImportErrors(t *testing.T) {
	env := newTestEnv(t)
	if err := run(context.Background(), env.args("import", "--in", filepath.Join(env.dir, "missing.yaml")), io.Discard, io.Discard); err == nil {
		t.Fatal("expected missing seed file error")
	}

	bad := filepath.Join(env.dir, "bad.yaml")
	writeFile(t, bad, "applicants:\n  - name: Ada\n    shoe_size: 9\n")
	if err := run(context.Background(), env.args("import", "--in", bad), io.Discard, io.Discard); err == nil {
		t.Fatal("expected unknown field error")
	}

	noRole := filepath.Join(env.dir, "norole.yaml")
	writeFile(t, noRole, "applicants:\n  - name: Ada\n")
	if err := run(context.Background(), env.args("import", "--in", noRole), io.Discard, io.Discard); err == nil {
		t.Fatal("expected missing role error")
	}
}

// TestRunTUICommitsDecision verifies the review screen commits through the real service.
func TestRunTUICommitsDecision(t *testing.T) {
	env := newTestEnv(t)
	seedTwoApplicants(t, env)

	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	var final tea.Model
	programFactory = func(m tea.Model) program {
		return scriptedProgram{model: m, runFn: func(model tea.Model) (tea.Model, error) {
			model = applyModelMsg(t, model, tea.WindowSizeMsg{Width: 100, Height: 40})
			model = applyModelMsg(t, model, tea.FocusMsg{})
			model = applyModelMsg(t, model, tea.KeyPressMsg{Code: 'l', Text: "l"})
			final = model
			return model, nil
		}}
	}

	if err := run(context.Background(), env.args("--role", "lead"), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(tui) error = %v", err)
	}
	if final == nil {
		t.Fatal("expected scripted program to run")
	}

	var out strings.Builder
	if err := run(context.Background(), env.args("decisions"), &out, io.Discard); err != nil {
		t.Fatalf("run(decisions) error = %v", err)
	}
	for _, want := range []string{"a1", "audition", "applied → audition"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in decisions output:\n%s", want, out.String())
		}
	}
}

// TestRunTUIRequiresRoles verifies an empty store reports how to seed it.
func TestRunTUIRequiresRoles(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(tea.Model) program { return fakeProgram{} }

	env := newTestEnv(t)
	err := run(context.Background(), env.args(), io.Discard, io.Discard)
	if !errors.Is(err, errNoRoles) {
		t.Fatalf("run() error = %v, want errNoRoles", err)
	}
}

// TestRunTUIProgramError verifies program failures propagate.
func TestRunTUIProgramError(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(tea.Model) program { return fakeProgram{runErr: errors.New("boom")} }

	env := newTestEnv(t)
	err := run(context.Background(), env.args("--role", "lead"), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("run() error = %v, want boom", err)
	}
}

// TestRunServeUsesConfigDefaults verifies serve wiring and flag overrides.
func TestRunServeUsesConfigDefaults(t *testing.T) {
	origRunner := serveCommandRunner
	t.Cleanup(func() { serveCommandRunner = origRunner })

	var got []serveradapter.Config
	serveCommandRunner = func(_ context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
		if deps.Review == nil || deps.Logger == nil {
			t.Fatalf("expected review and logger dependencies, got %#v", deps)
		}
		got = append(got, cfg)
		return nil
	}

	env := newTestEnv(t)
	if err := run(context.Background(), env.args("serve"), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(serve) error = %v", err)
	}
	if err := run(context.Background(), env.args("serve", "--http", "127.0.0.1:9999", "--api-endpoint", "/api/v2"), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(serve overrides) error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two serve runs, got %d", len(got))
	}
	if got[0].HTTPBind != "127.0.0.1:7878" || got[0].APIEndpoint != "/api/v1" || got[0].MCPEndpoint != "/mcp" {
		t.Fatalf("unexpected default serve config %#v", got[0])
	}
	if got[1].HTTPBind != "127.0.0.1:9999" || got[1].APIEndpoint != "/api/v2" || got[1].ServerName != "shortlist" {
		t.Fatalf("unexpected override serve config %#v", got[1])
	}
}

// TestRunConfigAndDBEnvOverrides verifies env paths are honored.
func TestRunConfigAndDBEnvOverrides(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("SHORTLIST_CONFIG", env.cfgPath)
	t.Setenv("SHORTLIST_DB_PATH", env.dbPath)
	seedTwoApplicants(t, env)

	var out strings.Builder
	if err := run(context.Background(), []string{"list", "--role", "lead"}, &out, io.Discard); err != nil {
		t.Fatalf("run(list) error = %v", err)
	}
	if !strings.Contains(out.String(), "Ada Lovelace") {
		t.Fatalf("expected env-selected database, got:\n%s", out.String())
	}
}

// TestRunRejectsInvalidLoggingLevelFromConfig verifies config validation surfaces.
func TestRunRejectsInvalidLoggingLevelFromConfig(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, env.cfgPath, "[logging]\nlevel = \"loud\"\n")
	err := run(context.Background(), env.args("list"), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("run() error = %v, want logging.level error", err)
	}
}

// TestRuntimeLoggerCanMuteConsoleSink verifies console muting.
func TestRuntimeLoggerCanMuteConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newRuntimeLogger(&buf, "shortlist", false, config.LoggingConfig{Level: "info"}, time.Now)
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	logger.Info("visible")
	logger.SetConsoleEnabled(false)
	logger.Info("hidden")
	if !strings.Contains(buf.String(), "visible") || strings.Contains(buf.String(), "hidden") {
		t.Fatalf("unexpected console output %q", buf.String())
	}
}

// TestRuntimeLoggerDevFile verifies dev mode writes logfmt to the workspace log dir.
func TestRuntimeLoggerDevFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	logger, err := newRuntimeLogger(io.Discard, "shortlist", true, config.LoggingConfig{
		Level:   "debug",
		DevFile: config.DevFileConfig{Enabled: true, Dir: dir},
	}, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	logger.SetConsoleEnabled(false)
	logger.Debug("commit finished", "applicant", "a1")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := filepath.Join(dir, "shortlist-20260301.log")
	if logger.DevLogPath() != want {
		t.Fatalf("DevLogPath() = %q, want %q", logger.DevLogPath(), want)
	}
	content, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "applicant=a1") {
		t.Fatalf("expected logfmt output, got %q", string(content))
	}
}

// TestWorkspaceRootFromUsesNearestMarker verifies log placement resolution.
func TestWorkspaceRootFromUsesNearestMarker(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module example.com/x\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if got := workspaceRootFrom(nested); got != root {
		t.Fatalf("workspaceRootFrom() = %q, want %q", got, root)
	}
}

// TestSanitizeLogFileStem verifies file-name cleanup.
func TestSanitizeLogFileStem(t *testing.T) {
	cases := map[string]string{
		"":               "shortlist",
		"  /  ":          "shortlist",
		"my app:dev":     "my-app-dev",
		"team/shortlist": "team-shortlist",
	}
	for in, want := range cases {
		if got := sanitizeLogFileStem(in); got != want {
			t.Fatalf("sanitizeLogFileStem(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestSeedInputsRoleFallback verifies row, file, and config role precedence.
func TestSeedInputsRoleFallback(t *testing.T) {
	seed := seedFile{Applicants: []seedApplicant{
		{Name: "Ada"},
		{Name: "Grace", Role: "understudy", State: "callback"},
	}}
	inputs := seed.inputs("lead")
	if inputs[0].RoleID != "lead" || inputs[1].RoleID != "understudy" {
		t.Fatalf("unexpected roles %#v", inputs)
	}
	seed.Role = "chorus"
	if got := seed.inputs("lead")[0].RoleID; got != "chorus" {
		t.Fatalf("file role = %q, want chorus", got)
	}
	if got := inputs[1].ProcessState; got != "callback" {
		t.Fatalf("ProcessState = %q, want callback", got)
	}
}
