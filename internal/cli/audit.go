package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/lhgate/internal/archive"
	"github.com/example/lhgate/internal/config"
	"github.com/example/lhgate/internal/events"
	"github.com/example/lhgate/internal/report"
	"github.com/example/lhgate/internal/session"
	"github.com/example/lhgate/internal/suite"
)

func newAuditCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run lighthouse repeatedly per page, gate the last run and archive the reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := flags.toOverrides(cmd)
			cfg, err := loader.Load(overrides)
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			jobs, err := planJobs(cfg)
			if err != nil {
				return err
			}

			engine := newEngine(cfg)
			if err := engine.EnsureBinary(); err != nil {
				return err
			}

			if err := ensureOutputDir(cfg.WorkDir); err != nil {
				return err
			}

			sweepID := uuid.NewString()
			emitter := events.NewEmitter(cmd.OutOrStdout())
			emitter.SetSweep(sweepID)

			if err := emitter.Log(events.TypeSweepStart, "Starting audit sweep", map[string]interface{}{
				"modes":    cfg.Modes,
				"targets":  len(jobs),
				"parallel": cfg.Parallel,
				"dryRun":   cfg.DryRun,
			}); err != nil {
				return err
			}

			runner := &suite.Runner{
				Orchestrator: &session.Orchestrator{
					Engine:  engine,
					WorkDir: cfg.WorkDir,
					SweepID: sweepID,
					Timeout: cfg.Timeout,
					Events:  emitter,
				},
				Archiver: archive.New(cfg.ArchiveDir),
				Parallel: cfg.Parallel,
				Events:   emitter,
			}

			outcomes, sweepErr := runner.Sweep(cmd.Context(), jobs)

			for _, o := range outcomes {
				if err := report.RenderAbnormal(cmd.ErrOrStderr(), o); err != nil {
					return err
				}
				if err := report.RenderTable(cmd.ErrOrStderr(), o); err != nil {
					return err
				}
			}

			if cfg.SummaryFile != "" {
				if err := report.WriteSummary(cfg.SummaryFile, sweepID, outcomes); err != nil {
					return err
				}
			}

			passed, failed, errored := suite.Tally(outcomes)
			if err := emitter.Log(events.TypeSweepFinished, "Audit sweep complete", map[string]interface{}{
				"passed":  passed,
				"failed":  failed,
				"errored": errored,
			}); err != nil {
				return err
			}

			if sweepErr != nil {
				return sweepErr
			}
			if failed > 0 || errored > 0 {
				return fmt.Errorf("%d of %d pages did not pass (%d failed thresholds, %d errored)", failed+errored, len(outcomes), failed, errored)
			}
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)

	return cmd
}

// planJobs loads every suite config up front and expands it into sweep jobs.
// Any config problem aborts before a single engine run.
func planJobs(cfg config.RuntimeConfig) ([]suite.Job, error) {
	modes, err := cfg.ParsedModes()
	if err != nil {
		return nil, err
	}

	suites, err := config.NewProvider(cfg.ConfigDir).LoadAll(modes)
	if err != nil {
		return nil, err
	}

	var jobs []suite.Job
	for _, s := range suites {
		for _, target := range s.Targets(cfg.Brands) {
			jobs = append(jobs, suite.Job{
				Target:     target,
				Runs:       cfg.RunsFor(s.Mode),
				Thresholds: s.Thresholds,
			})
		}
	}

	if len(jobs) == 0 {
		return nil, errors.New("no pages to audit; check the *_PAGES keys and --brands")
	}
	return jobs, nil
}
