package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// WorkspaceDirName is the directory name for project-level propmon config.
	WorkspaceDirName = ".propmon"
	// WorkspaceConfigFile is the config file name inside the workspace directory.
	WorkspaceConfigFile = "config.yaml"
	// MaxSearchDepth limits how many parent directories to walk when discovering a workspace.
	MaxSearchDepth = 10
	// WorkspaceEnvVar pins the workspace root directly, skipping the walk-up
	// entirely. Useful for CI/agent runs that invoke propmon from a
	// subdirectory of the checkout rather than the workspace root itself.
	WorkspaceEnvVar = "PROPMON_WORKSPACE_DIR"
)

// SpecDiscoveryExtensions lists the extensions LoadWithWorkspace accepts
// when auto-discovering a lone specification file under the workspace's
// specs/ directory.
var SpecDiscoveryExtensions = []string{".ts", ".tsx", ".js", ".jsx"}

// WorkspaceOptions controls workspace discovery behavior.
type WorkspaceOptions struct {
	// Disable skips workspace discovery entirely (--no-workspace flag).
	Disable bool
	// ExplicitDir uses this directory as workspace root instead of walking up (--workspace-dir flag).
	ExplicitDir string
}

// Config captures all tunable settings for the propmon monitor.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Browser BrowserConfig `yaml:"browser"`
	MCP     MCPConfig     `yaml:"mcp"`
	Spec    SpecConfig    `yaml:"spec"`
	Walker  WalkerConfig  `yaml:"walker"`
	Trace   TraceConfig   `yaml:"trace"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	LogFile string `yaml:"log_file"`
}

// BrowserConfig configures how we attach to or launch Chrome for Rod.
type BrowserConfig struct {
	// Control endpoint for Rod (e.g., ws://localhost:9222). Required when launch is empty.
	DebuggerURL string `yaml:"debugger_url"`
	// Optional launch command to start Chrome in detached mode (e.g., ["chrome", "--remote-debugging-port=9222"]).
	Launch []string `yaml:"launch"`
	// AutoStart controls whether the monitor launches/attaches to Chrome at
	// startup (default: true). A *bool, like Headless, so a layer can
	// explicitly override the default to false — a plain bool field can't
	// be told apart from "this layer didn't mention it" during merging.
	AutoStart *bool `yaml:"auto_start"`
	// Headless controls whether Chrome runs in headless mode (default: true).
	Headless *bool `yaml:"headless"`
	// Default navigation timeout (e.g., "15s").
	DefaultNavigationTimeout string `yaml:"default_navigation_timeout"`
	// Viewport width for new sessions (default: 1920).
	ViewportWidth int `yaml:"viewport_width"`
	// Viewport height for new sessions (default: 1080).
	ViewportHeight int `yaml:"viewport_height"`
	// URL to navigate to once the page is attached, before the first tick.
	StartURL string `yaml:"start_url"`
}

type MCPConfig struct {
	// When set, starts an SSE server on this port instead of stdio-only.
	SSEPort int `yaml:"sse_port"`
}

// SpecConfig points at the specification source the scripting runtime loads.
type SpecConfig struct {
	// Path to the specification file (.js/.ts/.jsx/.tsx).
	Path string `yaml:"path"`
}

// WalkerConfig controls the random-walk action driver.
type WalkerConfig struct {
	// MaxTicks bounds a run; 0 means "until a property reaches a definite verdict".
	MaxTicks int `yaml:"max_ticks"`
	// TickInterval between snapshots (e.g., "250ms").
	TickInterval string `yaml:"tick_interval"`
	// Seed for the random action sampler; 0 means "seed from time".
	Seed int64 `yaml:"seed"`
}

// TraceConfig controls where recorded run traces are written.
type TraceConfig struct {
	// Dir is the directory rotating JSONL trace files are written under.
	Dir string `yaml:"dir"`
	// MaxFileBytes rotates to a new trace file once the current one exceeds this size.
	MaxFileBytes int64 `yaml:"max_file_bytes"`
}

// DefaultConfig provides reasonable defaults for local development.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "propmon",
			Version: "0.1.0",
			LogFile: "propmon.log",
		},
		Browser: BrowserConfig{
			AutoStart:                ptrBool(true),
			DefaultNavigationTimeout: "15s",
			ViewportWidth:            1920,
			ViewportHeight:           1080,
		},
		MCP: MCPConfig{
			SSEPort: 0,
		},
		Walker: WalkerConfig{
			MaxTicks:     0,
			TickInterval: "250ms",
		},
		Trace: TraceConfig{
			Dir:          "data/traces",
			MaxFileBytes: 10 * 1024 * 1024,
		},
	}
}

// Load reads YAML config from disk and overlays defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// DiscoverWorkspace finds the workspace root containing a
// .propmon/config.yaml. WorkspaceEnvVar, when set, is authoritative and
// skips the directory walk entirely; otherwise it walks up from startDir
// checking each ancestor in turn. Returns the workspace root (parent of
// .propmon/) or empty string if none was found.
func DiscoverWorkspace(startDir string) (string, error) {
	if pinned := os.Getenv(WorkspaceEnvVar); pinned != "" {
		candidate := filepath.Join(pinned, WorkspaceDirName, WorkspaceConfigFile)
		if _, err := os.Stat(candidate); err != nil {
			return "", fmt.Errorf("%s=%s has no %s", WorkspaceEnvVar, pinned, candidate)
		}
		return pinned, nil
	}

	start, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving start directory: %w", err)
	}

	for _, dir := range ancestorChain(start, MaxSearchDepth) {
		if _, err := os.Stat(filepath.Join(dir, WorkspaceDirName, WorkspaceConfigFile)); err == nil {
			return dir, nil
		}
	}
	return "", nil
}

// ancestorChain returns start followed by up to limit-1 parent directories,
// stopping once the filesystem root is reached. Separated from the stat
// check in DiscoverWorkspace so the search bound and the existence test
// are each independently inspectable/testable.
func ancestorChain(start string, limit int) []string {
	chain := make([]string, 0, limit)
	dir := start
	for len(chain) < limit {
		chain = append(chain, dir)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return chain
}

// LoadWithWorkspace builds the effective config by decoding each available
// layer into its own zero-valued Config and merging them field by field,
// most specific last:
//
//	DefaultConfig() <- .propmon/config.yaml <- explicit --config
//
// Unlike chaining yaml.Unmarshal calls onto one accumulating struct (which
// relies on yaml silently skipping keys a layer doesn't mention), each
// layer is decoded in isolation and mergeConfig makes "a layer only wins
// where it actually set something" an explicit, field-by-field rule. The
// trade-off: a layer can no longer reset a plain scalar field to its zero
// value (e.g. explicitly writing "max_ticks: 0") — only override it with a
// non-zero value. Fields held as *bool (auto_start, headless) are the
// exception: an explicit false is kept. See DESIGN.md for why that's an
// acceptable trade for a single-operator monitor config.
//
// Once all layers are merged, a workspace with no spec.path configured
// falls back to the sole specification file under its specs/ directory,
// if exactly one exists; this is new relative to the teacher, which never
// had a monitor-specific artifact to default.
func LoadWithWorkspace(explicitConfig string, opts WorkspaceOptions) (Config, string, error) {
	cfg := DefaultConfig()
	wsDir := ""

	if !opts.Disable {
		dir, err := resolveWorkspaceDir(opts)
		if err != nil {
			return cfg, "", err
		}
		wsDir = dir

		if wsDir != "" {
			wsConfigPath := filepath.Join(wsDir, WorkspaceDirName, WorkspaceConfigFile)
			layer, err := decodeConfigLayer(wsConfigPath)
			if err != nil {
				return cfg, "", fmt.Errorf("reading workspace config %s: %w", wsConfigPath, err)
			}
			cfg = mergeConfig(cfg, resolveWorkspacePaths(layer, wsDir))
		}
	}

	if explicitConfig != "" {
		layer, err := decodeConfigLayer(explicitConfig)
		if err != nil {
			return cfg, wsDir, fmt.Errorf("reading explicit config %s: %w", explicitConfig, err)
		}
		cfg = mergeConfig(cfg, layer)
	}

	if cfg.Spec.Path == "" && wsDir != "" {
		if discovered, ok := discoverSpecFile(filepath.Join(wsDir, WorkspaceDirName, "specs")); ok {
			cfg.Spec.Path = discovered
		}
	}

	return cfg, wsDir, cfg.Validate()
}

// resolveWorkspaceDir picks the workspace root per WorkspaceOptions:
// opts.ExplicitDir is used verbatim if it has a config file, otherwise the
// current directory is walked up via DiscoverWorkspace.
func resolveWorkspaceDir(opts WorkspaceOptions) (string, error) {
	if opts.ExplicitDir != "" {
		candidate := filepath.Join(opts.ExplicitDir, WorkspaceDirName, WorkspaceConfigFile)
		if _, err := os.Stat(candidate); err != nil {
			return "", nil
		}
		return opts.ExplicitDir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	dir, err := DiscoverWorkspace(cwd)
	if err != nil {
		return "", fmt.Errorf("discovering workspace: %w", err)
	}
	return dir, nil
}

// decodeConfigLayer reads and YAML-decodes a single config layer into its
// own zero-valued Config, independent of any other layer.
func decodeConfigLayer(path string) (Config, error) {
	var layer Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return layer, err
	}
	if err := yaml.Unmarshal(raw, &layer); err != nil {
		return layer, err
	}
	return layer, nil
}

// mergeConfig overlays overlay onto base, field by field, leaving base's
// value untouched wherever overlay left that field at its zero value.
func mergeConfig(base, overlay Config) Config {
	base.Server = mergeServerConfig(base.Server, overlay.Server)
	base.Browser = mergeBrowserConfig(base.Browser, overlay.Browser)
	if overlay.MCP.SSEPort != 0 {
		base.MCP.SSEPort = overlay.MCP.SSEPort
	}
	if overlay.Spec.Path != "" {
		base.Spec.Path = overlay.Spec.Path
	}
	base.Walker = mergeWalkerConfig(base.Walker, overlay.Walker)
	base.Trace = mergeTraceConfig(base.Trace, overlay.Trace)
	return base
}

func mergeServerConfig(base, overlay ServerConfig) ServerConfig {
	if overlay.Name != "" {
		base.Name = overlay.Name
	}
	if overlay.Version != "" {
		base.Version = overlay.Version
	}
	if overlay.LogFile != "" {
		base.LogFile = overlay.LogFile
	}
	return base
}

func mergeBrowserConfig(base, overlay BrowserConfig) BrowserConfig {
	if overlay.DebuggerURL != "" {
		base.DebuggerURL = overlay.DebuggerURL
	}
	if len(overlay.Launch) > 0 {
		base.Launch = overlay.Launch
	}
	if overlay.AutoStart != nil {
		base.AutoStart = overlay.AutoStart
	}
	if overlay.Headless != nil {
		base.Headless = overlay.Headless
	}
	if overlay.DefaultNavigationTimeout != "" {
		base.DefaultNavigationTimeout = overlay.DefaultNavigationTimeout
	}
	if overlay.ViewportWidth != 0 {
		base.ViewportWidth = overlay.ViewportWidth
	}
	if overlay.ViewportHeight != 0 {
		base.ViewportHeight = overlay.ViewportHeight
	}
	if overlay.StartURL != "" {
		base.StartURL = overlay.StartURL
	}
	return base
}

func mergeWalkerConfig(base, overlay WalkerConfig) WalkerConfig {
	if overlay.MaxTicks != 0 {
		base.MaxTicks = overlay.MaxTicks
	}
	if overlay.TickInterval != "" {
		base.TickInterval = overlay.TickInterval
	}
	if overlay.Seed != 0 {
		base.Seed = overlay.Seed
	}
	return base
}

func mergeTraceConfig(base, overlay TraceConfig) TraceConfig {
	if overlay.Dir != "" {
		base.Dir = overlay.Dir
	}
	if overlay.MaxFileBytes != 0 {
		base.MaxFileBytes = overlay.MaxFileBytes
	}
	return base
}

// discoverSpecFile looks for exactly one recognizable specification file
// directly inside dir (a workspace's specs/ directory) so a simple
// single-spec workspace never needs to spell out spec.path. Returns
// ok=false when the directory is missing, empty, or ambiguous — guessing
// wrong among several candidates is worse than requiring spec.path.
func discoverSpecFile(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	candidate := ""
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		for _, want := range SpecDiscoveryExtensions {
			if ext != want {
				continue
			}
			if candidate != "" {
				return "", false
			}
			candidate = filepath.Join(dir, e.Name())
		}
	}
	if candidate == "" {
		return "", false
	}
	return candidate, true
}

// InitWorkspace creates a .propmon/ directory with template files at root.
func InitWorkspace(root string) error {
	wsDir := filepath.Join(root, WorkspaceDirName)

	// Check if already exists
	if _, err := os.Stat(wsDir); err == nil {
		return fmt.Errorf("workspace directory already exists: %s", wsDir)
	}

	// Create directory structure
	dirs := []string{
		wsDir,
		filepath.Join(wsDir, "specs"),
		filepath.Join(wsDir, "data"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write template config
	templateConfig := `# propmon project-level configuration
# Values here override defaults but are overridden by --config and CLI flags.

# spec:
#   path: ".propmon/specs/checkout.spec.ts"

# browser:
#   headless: false
#   viewport_width: 1280
#   viewport_height: 720

# walker:
#   max_ticks: 200
#   tick_interval: "250ms"
`
	configPath := filepath.Join(wsDir, WorkspaceConfigFile)
	if err := os.WriteFile(configPath, []byte(templateConfig), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	// Write .gitignore for data directory
	gitignoreContent := "# Runtime data (logs, traces) - do not version control\ndata/\n"
	gitignorePath := filepath.Join(wsDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}

// resolveWorkspacePaths resolves relative paths in the config against the workspace directory.
func resolveWorkspacePaths(cfg Config, wsDir string) Config {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(wsDir, p)
	}

	cfg.Server.LogFile = resolve(cfg.Server.LogFile)
	cfg.Spec.Path = resolve(cfg.Spec.Path)
	cfg.Trace.Dir = resolve(cfg.Trace.Dir)
	return cfg
}

// Validate ensures required fields exist so the monitor can start deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	if c.Browser.ShouldAutoStart() {
		if c.Browser.DebuggerURL == "" && len(c.Browser.Launch) == 0 {
			return errors.New("browser.debugger_url or browser.launch must be provided")
		}
	}
	return nil
}

// ptrBool is a small constructor so DefaultConfig can populate *bool fields
// without a package-level var.
func ptrBool(b bool) *bool { return &b }

// NavigationTimeout returns the parsed navigation timeout with a sane default.
func (b BrowserConfig) NavigationTimeout() time.Duration {
	if b.DefaultNavigationTimeout == "" {
		return 15 * time.Second
	}
	d, err := time.ParseDuration(b.DefaultNavigationTimeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// ShouldAutoStart returns whether the monitor should launch/attach to Chrome
// at startup (default: true).
func (b BrowserConfig) ShouldAutoStart() bool {
	if b.AutoStart == nil {
		return true
	}
	return *b.AutoStart
}

// IsHeadless returns whether Chrome should run in headless mode (default: true).
func (b BrowserConfig) IsHeadless() bool {
	if b.Headless == nil {
		return true // default to headless
	}
	return *b.Headless
}

// GetViewportWidth returns the viewport width with a sane default.
func (b BrowserConfig) GetViewportWidth() int {
	if b.ViewportWidth <= 0 {
		return 1920
	}
	return b.ViewportWidth
}

// GetViewportHeight returns the viewport height with a sane default.
func (b BrowserConfig) GetViewportHeight() int {
	if b.ViewportHeight <= 0 {
		return 1080
	}
	return b.ViewportHeight
}

// TickIntervalDuration returns the parsed tick interval with a sane default.
func (w WalkerConfig) TickIntervalDuration() time.Duration {
	if w.TickInterval == "" {
		return 250 * time.Millisecond
	}
	d, err := time.ParseDuration(w.TickInterval)
	if err != nil {
		return 250 * time.Millisecond
	}
	return d
}
