package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"ownck/internal/trace"
)

// ManifestName is the per-project configuration file.
const ManifestName = "ownck.toml"

// Config mirrors ownck.toml.
type Config struct {
	Check CheckConfig `toml:"check"`
	Cache CacheConfig `toml:"cache"`
	Trace TraceConfig `toml:"trace"`
}

type CheckConfig struct {
	RequireMut     bool     `toml:"require_mut"`
	MaxDiagnostics int      `toml:"max_diagnostics"`
	Jobs           int      `toml:"jobs"`
	Include        []string `toml:"include"`
	Exclude        []string `toml:"exclude"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
}

// DefaultInclude matches every supported log format.
var DefaultInclude = []string{"**/*.own", "**/*.yaml", "**/*.yml", "**/*.json"}

// Default returns the configuration used when no manifest exists.
func Default() Config {
	return Config{
		Check: CheckConfig{
			MaxDiagnostics: 100,
			Include:        append([]string(nil), DefaultInclude...),
		},
		Cache: CacheConfig{Enabled: true},
		Trace: TraceConfig{Level: "off"},
	}
}

// Manifest is a loaded ownck.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Find walks up from startDir to locate ownck.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the manifest governing target. Without a
// manifest it returns the defaults rooted at target and ok=false.
func Discover(target string) (*Manifest, bool, error) {
	path, ok, err := Find(target)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		root, absErr := filepath.Abs(target)
		if absErr != nil {
			return nil, false, fmt.Errorf("failed to resolve %q: %w", target, absErr)
		}
		if info, statErr := os.Stat(root); statErr == nil && !info.IsDir() {
			root = filepath.Dir(root)
		}
		return &Manifest{Root: root, Config: Default()}, false, nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

// Load decodes a manifest on top of the defaults. Unknown keys are errors.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("check", "include") && len(cfg.Check.Include) == 0 {
		return Config{}, fmt.Errorf("%s: [check].include must not be empty", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Check.MaxDiagnostics < 0 {
		return fmt.Errorf("[check].max_diagnostics must be >= 0, got %d", c.Check.MaxDiagnostics)
	}
	if c.Check.Jobs < 0 {
		return fmt.Errorf("[check].jobs must be >= 0, got %d", c.Check.Jobs)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	for _, p := range append(append([]string(nil), c.Check.Include...), c.Check.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("[check]: invalid glob %q", p)
		}
	}
	return nil
}

// DefaultManifest is what `ownck init` writes.
const DefaultManifest = `# ownck project configuration

[check]
require_mut = false
max_diagnostics = 100
jobs = 0                       # 0 = one per CPU
include = ["**/*.own", "**/*.yaml", "**/*.yml", "**/*.json"]
exclude = []

[cache]
enabled = true
dir = ""                       # default: $XDG_CACHE_HOME/ownck

[trace]
level = "off"                  # off|phase|file|op
output = ""
`
