package lighthouse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/lhgate/internal/audit"
)

// DefaultChromeFlags keeps Chrome usable inside containers and CI workers.
const DefaultChromeFlags = "--headless --no-sandbox --disable-gpu --disable-dev-shm-usage"

// Artifacts are the two files produced by one audit.
type Artifacts struct {
	JSONPath string
	HTMLPath string
}

// Engine defines the operations needed to drive an audit engine.
type Engine interface {
	EnsureBinary() error
	Run(ctx context.Context, url string, mode audit.Mode, reportDir string) (Artifacts, error)
	ParseScores(jsonPath string) (audit.ScoreSet, error)
}

// CommandEngine executes the real lighthouse binary present on the worker.
type CommandEngine struct {
	Binary      string
	ChromeFlags string
	Stdout      io.Writer
	Stderr      io.Writer
}

// NewEngine returns a command engine for binary, defaulting to "lighthouse".
func NewEngine(binary string) *CommandEngine {
	if binary == "" {
		binary = "lighthouse"
	}
	return &CommandEngine{Binary: binary, ChromeFlags: DefaultChromeFlags}
}

// EnsureBinary verifies that the lighthouse binary is discoverable on PATH.
func (e *CommandEngine) EnsureBinary() error {
	if _, err := exec.LookPath(e.Binary); err != nil {
		return fmt.Errorf("lighthouse binary not found: %w", err)
	}
	return nil
}

// Args builds the lighthouse argument list for one audit. outputStem is the
// report path without extension; lighthouse appends .report.json/.report.html.
func (e *CommandEngine) Args(url string, mode audit.Mode, outputStem string) []string {
	flags := e.ChromeFlags
	if flags == "" {
		flags = DefaultChromeFlags
	}

	args := []string{
		url,
		"--only-categories=" + categoryList(),
		"--chrome-flags=" + flags,
		"--quiet",
		"--output=json",
		"--output=html",
		"--output-path=" + outputStem,
	}

	if mode == audit.ModeDesktop {
		args = append(args,
			"--preset=desktop",
			"--throttling.cpuSlowdownMultiplier=1",
			"--throttling.requestLatencyMs=0",
			"--throttling.downloadThroughputKbps=0",
			"--throttling.uploadThroughputKbps=0",
		)
	} else {
		// mobile keeps lighthouse's default network and CPU throttling
		args = append(args, "--emulated-form-factor=mobile")
	}

	return args
}

// Run audits url once and returns the renamed JSON and HTML reports inside reportDir.
func (e *CommandEngine) Run(ctx context.Context, url string, mode audit.Mode, reportDir string) (Artifacts, error) {
	paths, err := prepare(url, mode, reportDir)
	if err != nil {
		return Artifacts{}, err
	}
	stem := strings.TrimSuffix(paths.JSONPath, ".json")

	var stderr bytes.Buffer
	// Binary path is controlled by the application and args are constructed
	// programmatically from validated inputs.
	cmd := exec.CommandContext(ctx, e.Binary, e.Args(url, mode, stem)...) // #nosec G204
	cmd.WaitDelay = 5 * time.Second
	cmd.Stdout = e.Stdout
	cmd.Stderr = &stderr
	if e.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, e.Stderr)
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Artifacts{}, ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Artifacts{}, fmt.Errorf("%w: %s", err, lastLine(msg))
		}
		return Artifacts{}, err
	}

	if err := renameOutput(stem+".report.json", paths.JSONPath); err != nil {
		return Artifacts{}, err
	}
	if err := renameOutput(stem+".report.html", paths.HTMLPath); err != nil {
		return Artifacts{}, err
	}

	return paths, nil
}

// ParseScores implements Engine.
func (e *CommandEngine) ParseScores(jsonPath string) (audit.ScoreSet, error) {
	return ParseScores(jsonPath)
}

// SafeName turns a URL into a file name stem: scheme removed, slashes replaced
// with underscores, trailing underscores trimmed.
func SafeName(url string) string {
	name := strings.TrimPrefix(url, "https://")
	name = strings.TrimPrefix(name, "http://")
	name = strings.ReplaceAll(name, "/", "_")
	return strings.TrimRight(name, "_")
}

// ReportPaths returns the final JSON and HTML paths for url in reportDir.
func ReportPaths(url string, mode audit.Mode, reportDir string) Artifacts {
	base := filepath.Join(reportDir, fmt.Sprintf("%s_%s", SafeName(url), mode))
	return Artifacts{JSONPath: base + ".json", HTMLPath: base + ".html"}
}

func prepare(url string, mode audit.Mode, reportDir string) (Artifacts, error) {
	if strings.TrimSpace(url) == "" {
		return Artifacts{}, fmt.Errorf("url cannot be empty")
	}
	if reportDir == "" {
		return Artifacts{}, fmt.Errorf("report directory cannot be empty")
	}
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return Artifacts{}, err
	}
	return ReportPaths(url, mode, reportDir), nil
}

func renameOutput(from, to string) error {
	if _, err := os.Stat(from); err != nil {
		if os.IsNotExist(err) {
			if _, statErr := os.Stat(to); statErr == nil {
				return nil
			}
			return fmt.Errorf("lighthouse did not produce %s", filepath.Base(from))
		}
		return err
	}
	return os.Rename(from, to)
}

func categoryList() string {
	ids := make([]string, 0, len(audit.Categories))
	for _, c := range audit.Categories {
		ids = append(ids, c.ReportID())
	}
	return strings.Join(ids, ",")
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
