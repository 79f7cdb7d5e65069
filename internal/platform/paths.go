package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// defaultAppName names the config and data directories when no override is given.
const defaultAppName = "shortlist"

// devSuffix keeps a development build from touching the real review database.
const devSuffix = "-dev"

// File names inside the per-app directories. The database takes the app name
// so a dev database is never mistaken for the production one.
const (
	configFileName = "config.toml"
	seedFileName   = "applicants.yaml"
	dbFileExt      = ".db"
)

// seedAlternates are accepted next to the config when applicants.yaml is absent.
var seedAlternates = []string{"applicants.yml"}

// ErrSeedNotFound reports that no applicant seed file exists in the config dir.
var ErrSeedNotFound = errors.New("applicant seed file not found")

// Paths holds the resolved per-user locations.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	SeedPath   string
}

// Options defines optional settings for path resolution.
type Options struct {
	AppName string
	DevMode bool
}

// baseOverride names the env vars that relocate the config and data bases on one OS.
type baseOverride struct {
	configEnv string
	dataEnv   string
}

// baseOverrides lists the OSes that honor env overrides. macOS and others keep
// the os.UserConfigDir defaults.
var baseOverrides = map[string]baseOverride{
	"linux":   {configEnv: "XDG_CONFIG_HOME", dataEnv: "XDG_DATA_HOME"},
	"windows": {configEnv: "APPDATA", dataEnv: "LOCALAPPDATA"},
}

// DefaultPaths returns default paths.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: defaultAppName})
}

// DefaultPathsWithOptions resolves paths for the host from its user dirs and env.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataBase, err := hostDataBase(configBase)
	if err != nil {
		return Paths{}, err
	}
	env := map[string]string{}
	if o, ok := baseOverrides[runtime.GOOS]; ok {
		env[o.configEnv] = os.Getenv(o.configEnv)
		env[o.dataEnv] = os.Getenv(o.dataEnv)
	}
	return PathsFor(runtime.GOOS, env, configBase, dataBase, AppDirName(opts))
}

// hostDataBase picks where the review database lives when no env override applies.
func hostDataBase(configBase string) (string, error) {
	if runtime.GOOS != "linux" {
		return configBase, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("user home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share"), nil
}

// AppDirName returns the directory name used under the config and data bases.
func AppDirName(opts Options) string {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = defaultAppName
	}
	if opts.DevMode && !strings.HasSuffix(name, devSuffix) {
		name += devSuffix
	}
	return name
}

// PathsFor resolves paths for one OS from explicit base dirs and environment.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}
	configBase, dataBase := userConfigDir, userDataDir
	if o, ok := baseOverrides[goos]; ok {
		configBase = firstSet(env[o.configEnv], configBase)
		dataBase = firstSet(env[o.dataEnv], dataBase)
	}
	return layout(filepath.Join(configBase, appName), filepath.Join(dataBase, appName), appName), nil
}

// layout places the config and seed together so an operator edits both in one
// directory, while the database sits under the data dir.
func layout(configDir, dataDir, appName string) Paths {
	return Paths{
		ConfigPath: filepath.Join(configDir, configFileName),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+dbFileExt),
		SeedPath:   filepath.Join(configDir, seedFileName),
	}
}

// FindSeed returns the seed file to import. An explicit path is returned as
// given; otherwise the config dir is searched for applicants.yaml and then its
// alternates.
func (p Paths) FindSeed(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}
	candidates := []string{p.SeedPath}
	for _, name := range seedAlternates {
		candidates = append(candidates, filepath.Join(filepath.Dir(p.SeedPath), name))
	}
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: looked for %s", ErrSeedNotFound, strings.Join(candidates, ", "))
}

func firstSet(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
