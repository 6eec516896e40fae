package anomaly

import (
	"math"

	"github.com/example/lhgate/internal/audit"
)

// DeviationThreshold is the relative deviation from the mean performance score
// at which a run is reported as abnormal. The comparison is inclusive.
const DeviationThreshold = 0.20

// Detect returns the mean performance score of runs and the runs whose relative
// deviation from that mean is at least DeviationThreshold. The abnormal runs keep
// their input order. A zero mean yields no abnormal runs.
func Detect(runs []audit.RunResult) (float64, []audit.RunResult) {
	if len(runs) == 0 {
		return 0, nil
	}

	var sum float64
	for _, r := range runs {
		sum += r.Scores.Get(audit.Performance)
	}
	mean := sum / float64(len(runs))

	var abnormal []audit.RunResult
	for _, r := range runs {
		if IsAbnormal(r.Scores.Get(audit.Performance), mean) {
			abnormal = append(abnormal, r)
		}
	}
	return mean, abnormal
}

// Deviation is |score-mean|/mean, or 0 when mean is 0.
func Deviation(score, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return math.Abs(score-mean) / mean
}

// IsAbnormal reports whether score deviates from mean by DeviationThreshold or more.
func IsAbnormal(score, mean float64) bool {
	if mean == 0 {
		return false
	}
	return Deviation(score, mean) >= DeviationThreshold
}
