package gate

import (
	"errors"
	"testing"

	"github.com/example/lhgate/internal/audit"
)

func TestEvaluate(t *testing.T) {
	thresholds := audit.ThresholdSet{
		audit.Performance:   80,
		audit.Accessibility: 90,
		audit.BestPractices: 75,
		audit.SEO:           90,
	}

	tests := []struct {
		name         string
		scores       audit.ScoreSet
		wantPass     bool
		wantFailures []audit.Failure
	}{
		{
			name:     "all above",
			scores:   audit.ScoreSet{95, 95, 95, 95},
			wantPass: true,
		},
		{
			name:     "equal to cutoff passes",
			scores:   audit.ScoreSet{80, 90, 75, 90},
			wantPass: true,
		},
		{
			name:         "performance below",
			scores:       audit.ScoreSet{40, 95, 95, 95},
			wantFailures: []audit.Failure{{Category: audit.Performance, Actual: 40, Threshold: 80}},
		},
		{
			name:   "several below keep category order",
			scores: audit.ScoreSet{79.9, 95, 10, 0},
			wantFailures: []audit.Failure{
				{Category: audit.Performance, Actual: 79.9, Threshold: 80},
				{Category: audit.BestPractices, Actual: 10, Threshold: 75},
				{Category: audit.SEO, Actual: 0, Threshold: 90},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(tt.scores, thresholds)
			if v.Pass != tt.wantPass {
				t.Fatalf("Pass = %v, want %v (%s)", v.Pass, tt.wantPass, v.Reason())
			}
			if len(v.Failures) != len(tt.wantFailures) {
				t.Fatalf("failures = %+v, want %+v", v.Failures, tt.wantFailures)
			}
			for i := range v.Failures {
				if v.Failures[i] != tt.wantFailures[i] {
					t.Fatalf("failure %d = %+v, want %+v", i, v.Failures[i], tt.wantFailures[i])
				}
			}
		})
	}
}

func TestEvaluateSingleThresholdScenario(t *testing.T) {
	v := Evaluate(audit.ScoreSet{audit.Performance: 85}, audit.ThresholdSet{audit.Performance: 80})
	if !v.Pass || len(v.Failures) != 0 {
		t.Fatalf("expected pass with no failures, got %+v", v)
	}
}

func TestEvaluateSessionUsesLastRunOnly(t *testing.T) {
	s := audit.Session{Runs: []audit.RunResult{
		{Index: 1, Scores: audit.ScoreSet{audit.Performance: 90}},
		{Index: 2, Scores: audit.ScoreSet{audit.Performance: 91}},
		{Index: 3, Scores: audit.ScoreSet{audit.Performance: 89}},
		{Index: 4, Scores: audit.ScoreSet{audit.Performance: 92}},
		{Index: 5, Scores: audit.ScoreSet{audit.Performance: 40}},
	}}

	// Mean is 80.4, which would pass; the last run does not.
	v, err := EvaluateSession(s, audit.ThresholdSet{audit.Performance: 80})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Pass {
		t.Fatalf("expected failure from final run")
	}
	want := audit.Failure{Category: audit.Performance, Actual: 40, Threshold: 80}
	if len(v.Failures) != 1 || v.Failures[0] != want {
		t.Fatalf("failures = %+v, want [%+v]", v.Failures, want)
	}

	// A slow early run does not matter when the last run is fine.
	s.Runs = []audit.RunResult{
		{Index: 1, Scores: audit.ScoreSet{audit.Performance: 10}},
		{Index: 2, Scores: audit.ScoreSet{audit.Performance: 85}},
	}
	v, err = EvaluateSession(s, audit.ThresholdSet{audit.Performance: 80})
	if err != nil || !v.Pass {
		t.Fatalf("expected pass, got %+v err=%v", v, err)
	}
}

func TestEvaluateSessionEmpty(t *testing.T) {
	if _, err := EvaluateSession(audit.Session{}, audit.ThresholdSet{}); !errors.Is(err, ErrEmptySession) {
		t.Fatalf("expected ErrEmptySession, got %v", err)
	}
}
