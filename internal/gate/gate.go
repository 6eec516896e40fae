package gate

import (
	"errors"

	"github.com/example/lhgate/internal/audit"
)

// ErrEmptySession is returned when a session has no runs to gate.
var ErrEmptySession = errors.New("session has no runs")

// Evaluate compares every category of scores against thresholds. A category
// fails when its score is strictly below the cutoff.
func Evaluate(scores audit.ScoreSet, thresholds audit.ThresholdSet) audit.Verdict {
	var failures []audit.Failure
	for _, c := range audit.Categories {
		actual, cutoff := scores.Get(c), thresholds.Get(c)
		if actual < cutoff {
			failures = append(failures, audit.Failure{Category: c, Actual: actual, Threshold: cutoff})
		}
	}
	return audit.Verdict{Pass: len(failures) == 0, Failures: failures}
}

// EvaluateSession gates the most recent run of s. The session mean is never
// used here; stability is reported separately by the anomaly detector.
func EvaluateSession(s audit.Session, thresholds audit.ThresholdSet) (audit.Verdict, error) {
	last, ok := s.Last()
	if !ok {
		return audit.Verdict{}, ErrEmptySession
	}
	return Evaluate(last.Scores, thresholds), nil
}
