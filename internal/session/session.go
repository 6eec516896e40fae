package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/example/lhgate/internal/audit"
	"github.com/example/lhgate/internal/events"
	"github.com/example/lhgate/internal/lighthouse"
)

// ErrNoRuns is returned when a session is requested with fewer than one run.
var ErrNoRuns = errors.New("run count must be at least 1")

// Orchestrator drives sequential engine invocations for one target at a time.
type Orchestrator struct {
	Engine lighthouse.Engine
	// WorkDir holds raw engine output, one directory per run.
	WorkDir string
	// SweepID namespaces WorkDir so separate sweeps never share directories.
	SweepID string
	// Timeout bounds a single engine invocation. Zero means no limit.
	Timeout time.Duration
	Events  *events.Emitter
}

// ReportDir returns the directory used for run i of target.
func (o *Orchestrator) ReportDir(target audit.Target, i int) string {
	return filepath.Join(o.WorkDir, o.SweepID, string(target.Mode), target.Brand, target.PageName, fmt.Sprintf("run_%d", i))
}

// Run invokes the engine runs times for target and returns the ordered runs.
// The first engine or parse failure aborts the remaining runs; there is no retry.
func (o *Orchestrator) Run(ctx context.Context, target audit.Target, runs int) (audit.Session, error) {
	s := audit.Session{Target: target}
	if runs < 1 {
		return s, ErrNoRuns
	}
	if o.Engine == nil {
		return s, errors.New("no audit engine configured")
	}

	_ = o.Events.Log(events.TypeSessionStart, "Starting session", map[string]interface{}{
		"target": target.String(),
		"url":    target.URL,
		"runs":   runs,
	})

	for i := 1; i <= runs; i++ {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		result, err := o.runOnce(ctx, target, i)
		if err != nil {
			return s, err
		}
		s.Runs = append(s.Runs, result)

		_ = o.Events.Log(events.TypeRunComplete, fmt.Sprintf("Run %d/%d complete", i, runs), map[string]interface{}{
			"target": target.String(),
			"run":    i,
			"scores": result.Scores.Map(),
		})
	}

	return s, nil
}

func (o *Orchestrator) runOnce(ctx context.Context, target audit.Target, i int) (audit.RunResult, error) {
	runCtx := ctx
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	artifacts, err := o.Engine.Run(runCtx, target.URL, target.Mode, o.ReportDir(target, i))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", o.Timeout, err)
		}
		return audit.RunResult{}, &audit.EngineInvocationError{URL: target.URL, Mode: target.Mode, Run: i, Err: err}
	}

	scores, err := o.Engine.ParseScores(artifacts.JSONPath)
	if err != nil {
		var parseErr *audit.ReportParseError
		if !errors.As(err, &parseErr) {
			err = &audit.ReportParseError{Path: artifacts.JSONPath, Err: err}
		}
		return audit.RunResult{}, err
	}

	return audit.RunResult{
		Index:    i,
		Scores:   scores,
		JSONPath: artifacts.JSONPath,
		HTMLPath: artifacts.HTMLPath,
	}, nil
}
