package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/lhgate/internal/archive"
	"github.com/example/lhgate/internal/audit"
	"github.com/example/lhgate/internal/config"
	"github.com/example/lhgate/internal/events"
	"github.com/example/lhgate/internal/report"
)

// writeSuiteConfig writes a config_{mode}.json with one brand and two pages.
func writeSuiteConfig(t *testing.T, dir string, mode audit.Mode, performance float64) {
	t.Helper()
	body := fmt.Sprintf(`{
  "THRESHOLDS": {"PERFORMANCE": %v, "ACCESSIBILITY": 0.9, "BEST_PRACTICES": 0.9, "SEO": 0.9},
  "PAVED_PAGES": [
    ["https://www.paveddigital.com/", "home"],
    ["https://www.paveddigital.com/pricing", "pricing"]
  ]
}`, performance)
	path := filepath.Join(dir, "config_"+string(mode)+".json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write suite config: %v", err)
	}
}

func decodeEvents(t *testing.T, data []byte) []events.Event {
	t.Helper()
	var out []events.Event
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var evt events.Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Fatalf("stdout is not NDJSON (%q): %v", line, err)
		}
		out = append(out, evt)
	}
	return out
}

func TestAuditCommandDryRunArchivesPassedReports(t *testing.T) {
	root := t.TempDir()
	writeSuiteConfig(t, root, audit.ModeDesktop, 0.8)
	summaryPath := filepath.Join(root, "out", "summary.json")

	cmd := newAuditCmd(&config.Loader{ConfigPath: filepath.Join(root, "missing.yml"), EnvFile: filepath.Join(root, "missing.env")})
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{
		"--dry-run",
		"--modes", "desktop",
		"--runs", "2",
		"--config-dir", root,
		"--work-dir", filepath.Join(root, "work"),
		"--archive-dir", root,
		"--summary-file", summaryPath,
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("audit command failed: %v\n%s", err, stderr.String())
	}

	for _, page := range []string{"home", "pricing"} {
		dir := filepath.Join(root, archive.PassedDir, "desktop", "paved", page)
		for _, name := range []string{"run_1.json", "run_1.html", "run_2.json", "run_2.html"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				t.Fatalf("missing archived %s/%s: %v", page, name, err)
			}
		}
	}
	if _, err := os.Stat(filepath.Join(root, archive.FailedDir)); !os.IsNotExist(err) {
		t.Fatalf("failed tree should not exist: %v", err)
	}

	evts := decodeEvents(t, stdout.Bytes())
	if evts[0].Type != events.TypeSweepStart || evts[len(evts)-1].Type != events.TypeSweepFinished {
		t.Fatalf("unexpected event framing: first=%s last=%s", evts[0].Type, evts[len(evts)-1].Type)
	}
	sweep := evts[0].Sweep
	if sweep == "" {
		t.Fatal("events should carry the sweep id")
	}
	for _, evt := range evts {
		if evt.Sweep != sweep {
			t.Fatalf("event %s has sweep %q, want %q", evt.Type, evt.Sweep, sweep)
		}
	}

	if !strings.Contains(stderr.String(), "PASS") {
		t.Fatalf("expected rendered table on stderr, got %s", stderr.String())
	}

	data, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}
	var summary report.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Sweep != sweep || summary.Passed != 2 || len(summary.Targets) != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestAuditCommandThresholdFailureExitsNonZero(t *testing.T) {
	root := t.TempDir()
	writeSuiteConfig(t, root, audit.ModeMobile, 0.95)

	cmd := newAuditCmd(&config.Loader{ConfigPath: filepath.Join(root, "missing.yml"), EnvFile: filepath.Join(root, "missing.env")})
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{
		"--dry-run",
		"--modes", "mobile",
		"--mobile-runs", "1",
		"--config-dir", root,
		"--work-dir", filepath.Join(root, "work"),
		"--archive-dir", root,
	})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected the command to fail when thresholds are missed")
	}
	if !strings.Contains(err.Error(), "2 of 2 pages did not pass") {
		t.Fatalf("unexpected error: %v", err)
	}

	// Both pages are still audited and archived before the command fails.
	for _, page := range []string{"home", "pricing"} {
		if _, err := os.Stat(filepath.Join(root, archive.FailedDir, "mobile", "paved", page, "run_1.json")); err != nil {
			t.Fatalf("page %s not archived under failed tree: %v", page, err)
		}
	}
	if !strings.Contains(stderr.String(), "Performance 90.0% < 95.0%") {
		t.Fatalf("failure reason not rendered:\n%s", stderr.String())
	}
}

func TestAuditCommandMissingSuiteConfigIsFatal(t *testing.T) {
	root := t.TempDir()
	writeSuiteConfig(t, root, audit.ModeDesktop, 0.8)

	cmd := newAuditCmd(&config.Loader{ConfigPath: filepath.Join(root, "missing.yml"), EnvFile: filepath.Join(root, "missing.env")})
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--dry-run",
		"--modes", "desktop,mobile",
		"--config-dir", root,
		"--work-dir", filepath.Join(root, "work"),
		"--archive-dir", root,
	})

	err := cmd.Execute()
	var cfgErr *audit.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing file cause, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("no events should be written before config is valid, got %s", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(root, "work")); !os.IsNotExist(err) {
		t.Fatalf("nothing should run on config error: %v", err)
	}
}

func TestPlanJobsFiltersBrands(t *testing.T) {
	root := t.TempDir()
	writeSuiteConfig(t, root, audit.ModeDesktop, 0.8)

	cfg := config.DefaultRuntimeConfig()
	cfg.Modes = []string{"desktop"}
	cfg.ConfigDir = root
	cfg.DesktopRuns = 4

	jobs, err := planJobs(cfg)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(jobs) != 2 || jobs[0].Runs != 4 || jobs[0].Target.PageName != "home" || jobs[1].Target.PageName != "pricing" {
		t.Fatalf("unexpected jobs %+v", jobs)
	}
	if jobs[0].Thresholds.Get(audit.Performance) != 80 {
		t.Fatalf("thresholds not carried: %v", jobs[0].Thresholds)
	}

	cfg.Brands = []string{"gsa"}
	if _, err := planJobs(cfg); err == nil {
		t.Fatal("expected error when the brand filter matches nothing")
	}
}
