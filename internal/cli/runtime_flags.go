package cli

import (
	"fmt"
	"time"

	"github.com/example/lhgate/internal/config"
	"github.com/spf13/cobra"
)

// runtimeFlagSet tracks shared audit/init/doctor flags before they are converted into config overrides.
type runtimeFlagSet struct {
	modes       string
	runs        int
	desktopRuns int
	mobileRuns  int
	brands      string
	configDir   string
	workDir     string
	archiveDir  string
	binary      string
	timeout     time.Duration
	parallel    int
	dryRun      bool
	summaryFile string
}

func bindRuntimeFlags(cmd *cobra.Command, flags *runtimeFlagSet) {
	cmd.Flags().StringVar(&flags.modes, "modes", "", "Comma-separated audit modes (desktop,mobile)")
	cmd.Flags().IntVar(&flags.runs, "runs", 0, fmt.Sprintf("Runs per page for every mode (1-%d)", config.MaxRuns))
	cmd.Flags().IntVar(&flags.desktopRuns, "desktop-runs", 0, "Runs per page in desktop mode")
	cmd.Flags().IntVar(&flags.mobileRuns, "mobile-runs", 0, "Runs per page in mobile mode")
	cmd.Flags().StringVar(&flags.brands, "brands", "", "Comma-separated brands to audit (default: all)")
	cmd.Flags().StringVar(&flags.configDir, "config-dir", "", "Directory holding config_{mode}.json|yml|toml")
	cmd.Flags().StringVar(&flags.workDir, "work-dir", "", "Directory for raw lighthouse output")
	cmd.Flags().StringVar(&flags.archiveDir, "archive-dir", "", "Directory that receives reports_passed and reports_failed")
	cmd.Flags().StringVar(&flags.binary, "lighthouse-bin", "", "Lighthouse executable name or path")
	cmd.Flags().DurationVar(&flags.timeout, "run-timeout", 0, "Timeout for a single lighthouse run")
	cmd.Flags().IntVar(&flags.parallel, "parallel", 0, fmt.Sprintf("Pages audited concurrently (1-%d)", config.MaxParallel))
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Skip lighthouse execution and write placeholder reports")
	cmd.Flags().StringVar(&flags.summaryFile, "summary-file", "", "Optional summary JSON output path")
}

func (f runtimeFlagSet) toOverrides(cmd *cobra.Command) config.Overrides {
	ov := config.Overrides{}
	if cmd.Flags().Changed("modes") {
		ov.Modes = config.ParseList(f.modes)
	}

	if cmd.Flags().Changed("runs") {
		ov.Runs = f.runs
		ov.RunsSet = true
	}

	if cmd.Flags().Changed("desktop-runs") {
		ov.DesktopRuns = f.desktopRuns
	}

	if cmd.Flags().Changed("mobile-runs") {
		ov.MobileRuns = f.mobileRuns
	}

	if cmd.Flags().Changed("brands") {
		ov.Brands = config.ParseList(f.brands)
	}

	if cmd.Flags().Changed("config-dir") {
		ov.ConfigDir = f.configDir
	}

	if cmd.Flags().Changed("work-dir") {
		ov.WorkDir = f.workDir
	}

	if cmd.Flags().Changed("archive-dir") {
		ov.ArchiveDir = f.archiveDir
	}

	if cmd.Flags().Changed("lighthouse-bin") {
		ov.Binary = f.binary
	}

	if cmd.Flags().Changed("run-timeout") {
		ov.Timeout = f.timeout
	}

	if cmd.Flags().Changed("parallel") {
		ov.Parallel = f.parallel
		ov.ParallelSet = true
	}

	if cmd.Flags().Changed("dry-run") {
		ov.DryRun = &f.dryRun
	}

	if cmd.Flags().Changed("summary-file") {
		ov.SummaryFile = f.summaryFile
	}

	return ov
}
