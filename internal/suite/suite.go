package suite

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/example/lhgate/internal/anomaly"
	"github.com/example/lhgate/internal/archive"
	"github.com/example/lhgate/internal/audit"
	"github.com/example/lhgate/internal/events"
	"github.com/example/lhgate/internal/gate"
	"github.com/example/lhgate/internal/session"
)

// Job is one target with the run count and thresholds that apply to it.
type Job struct {
	Target     audit.Target
	Runs       int
	Thresholds audit.ThresholdSet
}

// Outcome is everything a sweep learned about one target. Err is set when the
// session or its archive step failed; a failed gate is recorded in Verdict only.
type Outcome struct {
	Target     audit.Target
	Session    audit.Session
	Mean       float64
	Abnormal   []audit.RunResult
	Verdict    audit.Verdict
	ArchiveDir string
	Err        error
}

// Failed reports whether the target failed its gate or could not be evaluated.
func (o Outcome) Failed() bool {
	return o.Err != nil || !o.Verdict.Pass
}

// Runner executes sessions for every job and never stops on a per-target failure.
type Runner struct {
	Orchestrator *session.Orchestrator
	Archiver     *archive.Archiver
	// Parallel is the number of targets audited at once. Runs of the same
	// target are always sequential.
	Parallel int
	Events   *events.Emitter
}

// Sweep evaluates every job and returns one outcome per job in job order. The
// returned error is non-nil only when ctx ends the sweep early.
func (r *Runner) Sweep(ctx context.Context, jobs []Job) ([]Outcome, error) {
	if r.Orchestrator == nil || r.Archiver == nil {
		return nil, errors.New("suite runner needs an orchestrator and an archiver")
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	outcomes := make([]Outcome, len(jobs))

	if r.Parallel <= 1 {
		for i, job := range jobs {
			select {
			case <-ctx.Done():
				return outcomes[:i], ctx.Err()
			default:
			}
			outcomes[i] = r.evaluate(ctx, job)
		}
		return outcomes, ctx.Err()
	}

	var g errgroup.Group
	g.SetLimit(r.Parallel)
	for i, job := range jobs {
		g.Go(func() error {
			if ctx.Err() != nil {
				outcomes[i] = Outcome{Target: job.Target, Session: audit.Session{Target: job.Target}, Err: ctx.Err()}
				return nil
			}
			outcomes[i] = r.evaluate(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, ctx.Err()
}

func (r *Runner) evaluate(ctx context.Context, job Job) Outcome {
	out := Outcome{Target: job.Target}

	s, err := r.Orchestrator.Run(ctx, job.Target, job.Runs)
	out.Session = s
	if err != nil {
		return r.fail(out, "session", err)
	}

	out.Mean, out.Abnormal = anomaly.Detect(s.Runs)
	if len(out.Abnormal) > 0 {
		runs := make([]map[string]interface{}, 0, len(out.Abnormal))
		for _, a := range out.Abnormal {
			p := a.Scores.Get(audit.Performance)
			runs = append(runs, map[string]interface{}{
				"run":         a.Index,
				"performance": p,
				"deviation":   anomaly.Deviation(p, out.Mean),
			})
		}
		_ = r.Events.Log(events.TypeAbnormalRuns, "Abnormal performance detected", map[string]interface{}{
			"target": job.Target.String(),
			"mean":   out.Mean,
			"runs":   runs,
		})
	}

	out.Verdict, err = gate.EvaluateSession(s, job.Thresholds)
	if err != nil {
		return r.fail(out, "gate", err)
	}

	message := "Gate passed"
	if !out.Verdict.Pass {
		message = fmt.Sprintf("%s %s failed: %s", job.Target.Brand, job.Target.PageName, out.Verdict.Reason())
	}
	_ = r.Events.Log(events.TypeVerdict, message, map[string]interface{}{
		"target":   job.Target.String(),
		"pass":     out.Verdict.Pass,
		"failures": out.Verdict.Failures,
		"mean":     out.Mean,
	})

	out.ArchiveDir, err = r.Archiver.Archive(out.Verdict.Pass, job.Target.Mode, job.Target.Brand, job.Target.PageName, s.Runs)
	if err != nil {
		return r.fail(out, "archive", err)
	}
	_ = r.Events.Log(events.TypeArchived, "Runs archived", map[string]interface{}{
		"target": job.Target.String(),
		"dir":    out.ArchiveDir,
		"runs":   len(s.Runs),
	})

	return out
}

func (r *Runner) fail(out Outcome, stage string, err error) Outcome {
	out.Err = err
	_ = r.Events.Log(events.TypeSessionError, err.Error(), map[string]interface{}{
		"target": out.Target.String(),
		"stage":  stage,
	})
	return out
}

// Tally counts passed, gate-failed and errored outcomes.
func Tally(outcomes []Outcome) (passed, failed, errored int) {
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			errored++
		case o.Verdict.Pass:
			passed++
		default:
			failed++
		}
	}
	return passed, failed, errored
}
