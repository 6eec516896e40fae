package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/example/lhgate/internal/audit"
)

const (
	DefaultConfigPath = "lhgate.config.yml"
	DefaultEnvFile    = ".env"

	DefaultDesktopRuns = 5
	DefaultMobileRuns  = 3
	DefaultTimeout     = 3 * time.Minute

	MaxRuns     = 20
	MaxParallel = 16

	envModes       = "LHGATE_MODES"
	envRuns        = "LHGATE_RUNS"
	envDesktopRuns = "LHGATE_DESKTOP_RUNS"
	envMobileRuns  = "LHGATE_MOBILE_RUNS"
	envBrands      = "LHGATE_BRANDS"
	envConfigDir   = "LHGATE_CONFIG_DIR"
	envWorkDir     = "LHGATE_WORK_DIR"
	envArchiveDir  = "LHGATE_ARCHIVE_DIR"
	envBinary      = "LHGATE_BINARY"
	envTimeout     = "LHGATE_TIMEOUT"
	envParallel    = "LHGATE_PARALLEL"
	envDryRun      = "LHGATE_DRY_RUN"
	envSummaryFile = "LHGATE_SUMMARY_FILE"
)

// Loader merges configuration coming from files, environment variables, and CLI flags.
type Loader struct {
	ConfigPath string
	// EnvFile is a dotenv file whose variables fill in anything not already set
	// in the process environment.
	EnvFile string
}

// RuntimeConfig contains the fully merged settings required by lhgate sub-commands.
type RuntimeConfig struct {
	Modes       []string
	DesktopRuns int
	MobileRuns  int
	Brands      []string
	ConfigDir   string
	WorkDir     string
	ArchiveDir  string
	Binary      string
	Timeout     time.Duration
	Parallel    int
	DryRun      bool
	SummaryFile string
}

// Overrides captures values coming from env vars or CLI flags.
type Overrides struct {
	Modes       []string
	Runs        int
	RunsSet     bool
	DesktopRuns int
	MobileRuns  int
	Brands      []string
	ConfigDir   string
	WorkDir     string
	ArchiveDir  string
	Binary      string
	Timeout     time.Duration
	Parallel    int
	ParallelSet bool
	DryRun      *bool
	SummaryFile string
}

// DefaultRuntimeConfig returns the baseline configuration when no overrides are provided.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Modes:       []string{string(audit.ModeDesktop), string(audit.ModeMobile)},
		DesktopRuns: DefaultDesktopRuns,
		MobileRuns:  DefaultMobileRuns,
		ConfigDir:   ".",
		WorkDir:     "reports",
		ArchiveDir:  ".",
		Binary:      "lighthouse",
		Timeout:     DefaultTimeout,
		Parallel:    1,
	}
}

// Load resolves the final runtime configuration.
func (l Loader) Load(override Overrides) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	path := l.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	if fileExists(path) {
		fileOv, err := loadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
		cfg.apply(fileOv)
	}

	envFile := l.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return cfg, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	envOv, err := overridesFromEnv()
	if err != nil {
		return cfg, err
	}
	cfg.apply(envOv)
	cfg.apply(override)

	return cfg, nil
}

// Validate ensures the config contains the minimum required data for audit/init commands.
func (c RuntimeConfig) Validate() error {
	if len(c.Modes) == 0 {
		return errors.New("no modes configured; provide --modes or set LHGATE_MODES")
	}
	if _, err := c.ParsedModes(); err != nil {
		return err
	}

	if c.DesktopRuns < 1 || c.DesktopRuns > MaxRuns {
		return fmt.Errorf("desktop runs must be between 1 and %d (got %d)", MaxRuns, c.DesktopRuns)
	}
	if c.MobileRuns < 1 || c.MobileRuns > MaxRuns {
		return fmt.Errorf("mobile runs must be between 1 and %d (got %d)", MaxRuns, c.MobileRuns)
	}

	if c.Parallel < 1 || c.Parallel > MaxParallel {
		return fmt.Errorf("parallel must be between 1 and %d (got %d)", MaxParallel, c.Parallel)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive (got %s)", c.Timeout)
	}

	if c.ConfigDir == "" {
		return errors.New("config directory cannot be empty")
	}

	if c.WorkDir == "" {
		return errors.New("work directory cannot be empty")
	}

	return nil
}

// ParsedModes returns Modes as audit modes, deduplicated in order.
func (c RuntimeConfig) ParsedModes() ([]audit.Mode, error) {
	var out []audit.Mode
	seen := map[audit.Mode]struct{}{}
	for _, raw := range c.Modes {
		m, err := audit.ParseMode(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}

// RunsFor returns the configured run count for mode.
func (c RuntimeConfig) RunsFor(mode audit.Mode) int {
	if mode == audit.ModeMobile {
		return c.MobileRuns
	}
	return c.DesktopRuns
}

func (c *RuntimeConfig) apply(src Overrides) {
	if len(src.Modes) > 0 {
		c.Modes = cleanList(src.Modes)
	}

	if src.RunsSet {
		c.DesktopRuns = src.Runs
		c.MobileRuns = src.Runs
	}

	if src.DesktopRuns != 0 {
		c.DesktopRuns = src.DesktopRuns
	}

	if src.MobileRuns != 0 {
		c.MobileRuns = src.MobileRuns
	}

	if len(src.Brands) > 0 {
		c.Brands = lowerList(src.Brands)
	}

	if src.ConfigDir != "" {
		c.ConfigDir = src.ConfigDir
	}

	if src.WorkDir != "" {
		c.WorkDir = src.WorkDir
	}

	if src.ArchiveDir != "" {
		c.ArchiveDir = src.ArchiveDir
	}

	if src.Binary != "" {
		c.Binary = src.Binary
	}

	if src.Timeout != 0 {
		c.Timeout = src.Timeout
	}

	if src.ParallelSet {
		c.Parallel = src.Parallel
	}

	if src.DryRun != nil {
		c.DryRun = *src.DryRun
	}

	if src.SummaryFile != "" {
		c.SummaryFile = src.SummaryFile
	}
}

func loadFromFile(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, err
	}

	type rawConfig struct {
		Modes       stringList `yaml:"modes"`
		Runs        *int       `yaml:"runs"`
		DesktopRuns int        `yaml:"desktopRuns"`
		MobileRuns  int        `yaml:"mobileRuns"`
		Brands      stringList `yaml:"brands"`
		ConfigDir   string     `yaml:"configDir"`
		WorkDir     string     `yaml:"workDir"`
		ArchiveDir  string     `yaml:"archiveDir"`
		Binary      string     `yaml:"binary"`
		Timeout     string     `yaml:"timeout"`
		Parallel    *int       `yaml:"parallel"`
		DryRun      *bool      `yaml:"dryRun"`
		SummaryFile string     `yaml:"summaryFile"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Overrides{}, err
	}

	over := Overrides{
		Modes:       raw.Modes,
		DesktopRuns: raw.DesktopRuns,
		MobileRuns:  raw.MobileRuns,
		Brands:      raw.Brands,
		ConfigDir:   raw.ConfigDir,
		WorkDir:     raw.WorkDir,
		ArchiveDir:  raw.ArchiveDir,
		Binary:      raw.Binary,
		DryRun:      raw.DryRun,
		SummaryFile: raw.SummaryFile,
	}

	if raw.Runs != nil {
		over.Runs = *raw.Runs
		over.RunsSet = true
	}

	if raw.Parallel != nil {
		over.Parallel = *raw.Parallel
		over.ParallelSet = true
	}

	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return Overrides{}, fmt.Errorf("timeout: %w", err)
		}
		over.Timeout = d
	}

	return over, nil
}

func overridesFromEnv() (Overrides, error) {
	ov := Overrides{}

	if value := os.Getenv(envModes); value != "" {
		ov.Modes = ParseList(value)
	}

	if value := os.Getenv(envRuns); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.Runs = parsed
			ov.RunsSet = true
		}
	}

	if value := os.Getenv(envDesktopRuns); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.DesktopRuns = parsed
		}
	}

	if value := os.Getenv(envMobileRuns); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.MobileRuns = parsed
		}
	}

	if value := os.Getenv(envBrands); value != "" {
		ov.Brands = ParseList(value)
	}

	if value := os.Getenv(envConfigDir); value != "" {
		ov.ConfigDir = value
	}

	if value := os.Getenv(envWorkDir); value != "" {
		ov.WorkDir = value
	}

	if value := os.Getenv(envArchiveDir); value != "" {
		ov.ArchiveDir = value
	}

	if value := os.Getenv(envBinary); value != "" {
		ov.Binary = value
	}

	if value := os.Getenv(envTimeout); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return ov, fmt.Errorf("%s: %w", envTimeout, err)
		}
		ov.Timeout = d
	}

	if value := os.Getenv(envParallel); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.Parallel = parsed
			ov.ParallelSet = true
		}
	}

	if value := os.Getenv(envDryRun); value != "" {
		parsed := strings.EqualFold(value, "true") || value == "1"
		ov.DryRun = &parsed
	}

	if value := os.Getenv(envSummaryFile); value != "" {
		ov.SummaryFile = value
	}

	return ov, nil
}

// ParseList splits comma, space or newline separated input into trimmed values.
func ParseList(input string) []string {
	return splitOnDelimiters(input, []rune{',', '\n', '\r', ' '})
}

func splitOnDelimiters(input string, delims []rune) []string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	separator := func(r rune) bool {
		for _, d := range delims {
			if r == d {
				return true
			}
		}
		return false
	}

	return cleanList(strings.FieldsFunc(trimmed, separator))
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		candidate := strings.TrimSpace(v)
		if candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

func lowerList(values []string) []string {
	out := cleanList(values)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// stringList enables YAML fields that can be specified as a scalar or sequence.
type stringList []string

func (s *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var out []string
		for _, node := range value.Content {
			out = append(out, strings.TrimSpace(node.Value))
		}
		*s = cleanList(out)
	case yaml.ScalarNode:
		*s = ParseList(value.Value)
	default:
		return fmt.Errorf("unsupported YAML type for list")
	}
	return nil
}
