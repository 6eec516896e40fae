package cli

import (
	"reflect"
	"testing"
	"time"

	"github.com/example/lhgate/internal/config"
	"github.com/spf13/cobra"
)

func TestRuntimeFlagSetToOverrides(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected config.Overrides
	}{
		{
			name:     "no flags changed returns empty overrides",
			expected: config.Overrides{},
		},
		{
			name:     "modes",
			args:     []string{"--modes", "desktop, mobile"},
			expected: config.Overrides{Modes: []string{"desktop", "mobile"}},
		},
		{
			name:     "runs applies to every mode",
			args:     []string{"--runs", "7"},
			expected: config.Overrides{Runs: 7, RunsSet: true},
		},
		{
			name:     "per-mode runs",
			args:     []string{"--desktop-runs", "4", "--mobile-runs", "2"},
			expected: config.Overrides{DesktopRuns: 4, MobileRuns: 2},
		},
		{
			name:     "brands",
			args:     []string{"--brands", "paved,gsa"},
			expected: config.Overrides{Brands: []string{"paved", "gsa"}},
		},
		{
			name: "directories and binary",
			args: []string{"--config-dir", "suites", "--work-dir", "/tmp/lh", "--archive-dir", "out", "--lighthouse-bin", "/usr/bin/lighthouse"},
			expected: config.Overrides{
				ConfigDir:  "suites",
				WorkDir:    "/tmp/lh",
				ArchiveDir: "out",
				Binary:     "/usr/bin/lighthouse",
			},
		},
		{
			name:     "run timeout",
			args:     []string{"--run-timeout", "90s"},
			expected: config.Overrides{Timeout: 90 * time.Second},
		},
		{
			name:     "parallel zero is still recorded",
			args:     []string{"--parallel", "0"},
			expected: config.Overrides{Parallel: 0, ParallelSet: true},
		},
		{
			name:     "dry-run false is explicit",
			args:     []string{"--dry-run=false"},
			expected: config.Overrides{DryRun: boolPtr(false)},
		},
		{
			name:     "summary file",
			args:     []string{"--summary-file", "summary.json"},
			expected: config.Overrides{SummaryFile: "summary.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			flags := &runtimeFlagSet{}
			bindRuntimeFlags(cmd, flags)

			if err := cmd.Flags().Parse(tt.args); err != nil {
				t.Fatalf("parse flags: %v", err)
			}

			result := flags.toOverrides(cmd)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("toOverrides() mismatch\nGot:      %+v\nExpected: %+v", result, tt.expected)
			}
		})
	}
}

func TestRuntimeFlagSetToOverridesUnchangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := &runtimeFlagSet{
		modes:    "desktop",
		runs:     9,
		binary:   "/default/lighthouse",
		parallel: 4,
		dryRun:   true,
	}
	bindRuntimeFlags(cmd, flags)

	if result := flags.toOverrides(cmd); !reflect.DeepEqual(result, config.Overrides{}) {
		t.Errorf("toOverrides() should return empty overrides when no flags changed\nGot: %+v", result)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
