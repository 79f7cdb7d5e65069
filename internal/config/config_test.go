package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/shortlist.db")
	if cfg.Database.Path != "/tmp/shortlist.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if len(cfg.Review.Stages) != 3 || cfg.Review.Stages[0].Key != "audition" {
		t.Fatalf("unexpected default stages %#v", cfg.Review.Stages)
	}
	if cfg.Gesture.ActivationThreshold != 30 || cfg.Gesture.ReleaseThreshold != 100 || cfg.Gesture.VelocityThreshold != 500 {
		t.Fatalf("unexpected gesture defaults %#v", cfg.Gesture)
	}
	grace, err := cfg.Commit.Grace()
	if err != nil || grace != 600*time.Millisecond {
		t.Fatalf("Grace() = %s, %v", grace, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/shortlist.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != defaults.Database.Path {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[database]
path = "/custom/shortlist.db"

[logging]
level = "debug"

[review]
role = "lead"
offer_enabled = true
default_filter = ["applied"]

[[review.stages]]
key = "interview"
label = "Interview"

[gesture]
release_threshold = 120

[commit]
grace_window = "250ms"

[slots]
strategy = "rolling"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/custom/shortlist.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" || cfg.Review.Role != "lead" || !cfg.Review.OfferEnabled {
		t.Fatalf("unexpected overrides %#v", cfg)
	}
	if len(cfg.Review.Stages) != 1 || cfg.Review.Stages[0].Key != "interview" {
		t.Fatalf("expected stages replaced, got %#v", cfg.Review.Stages)
	}
	if cfg.Gesture.ReleaseThreshold != 120 || cfg.Gesture.ActivationThreshold != 30 {
		t.Fatalf("expected partial gesture override, got %#v", cfg.Gesture)
	}
	if grace, _ := cfg.Commit.Grace(); grace != 250*time.Millisecond {
		t.Fatalf("unexpected grace %s", grace)
	}
	if cfg.Slots.Strategy != "rolling" {
		t.Fatalf("unexpected slot strategy %q", cfg.Slots.Strategy)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"reserved stage":    "[[review.stages]]\nkey = \"shortlist\"\n",
		"reserved state":    "[[review.stages]]\nkey = \" Rejected \"\n",
		"reserved offer":    "[[review.stages]]\nkey = \"offer\"\n",
		"duplicate stage":   "[[review.stages]]\nkey = \"a\"\n[[review.stages]]\nkey = \"A\"\n",
		"too many stages":   "[[review.stages]]\nkey = \"a\"\n[[review.stages]]\nkey = \"b\"\n[[review.stages]]\nkey = \"c\"\n[[review.stages]]\nkey = \"d\"\n[[review.stages]]\nkey = \"e\"\n",
		"bad grace":         "[commit]\ngrace_window = \"soon\"\n",
		"zero grace":        "[commit]\ngrace_window = \"0s\"\n",
		"bad strategy":      "[slots]\nstrategy = \"triple\"\n",
		"bad level":         "[logging]\nlevel = \"loud\"\n",
		"release below act": "[gesture]\nrelease_threshold = 10\n",
		"highlight range":   "[gesture]\nhighlight_threshold = 1.5\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := Load(path, Default("/tmp/default.db")); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[database\npath = 1"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	_, err := Load(path, Default("/tmp/default.db"))
	if err == nil || !strings.Contains(err.Error(), "decode toml") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	if err := EnsureConfigDir(target); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		t.Fatalf("expected dir to exist, stat error %v", err)
	}
}
