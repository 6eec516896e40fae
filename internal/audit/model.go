package audit

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is one of the four Lighthouse report categories gated by lhgate.
type Category int

const (
	Performance Category = iota
	Accessibility
	BestPractices
	SEO

	numCategories
)

// Categories lists every category in display order.
var Categories = [numCategories]Category{Performance, Accessibility, BestPractices, SEO}

var categoryInfo = [numCategories]struct {
	label     string
	reportID  string
	configKey string
}{
	Performance:   {"Performance", "performance", "PERFORMANCE"},
	Accessibility: {"Accessibility", "accessibility", "ACCESSIBILITY"},
	BestPractices: {"BestPractices", "best-practices", "BEST_PRACTICES"},
	SEO:           {"SEO", "seo", "SEO"},
}

func (c Category) valid() bool {
	return c >= 0 && c < numCategories
}

// String returns the display label.
func (c Category) String() string {
	if !c.valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryInfo[c].label
}

// ReportID is the key used under "categories" in a Lighthouse JSON report.
func (c Category) ReportID() string {
	if !c.valid() {
		return ""
	}
	return categoryInfo[c].reportID
}

// ConfigKey is the key used under THRESHOLDS in a suite config file.
func (c Category) ConfigKey() string {
	if !c.valid() {
		return ""
	}
	return categoryInfo[c].configKey
}

// MarshalText lets categories appear as labels in JSON output.
func (c Category) MarshalText() ([]byte, error) {
	if !c.valid() {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(c.String()), nil
}

// ScoreSet holds a percentage in [0,100] for every category. The array shape
// guarantees that no category can be missing.
type ScoreSet [numCategories]float64

// Get returns the score for c.
func (s ScoreSet) Get(c Category) float64 {
	if !c.valid() {
		return 0
	}
	return s[c]
}

// Map renders the set keyed by display label, mostly for event payloads.
func (s ScoreSet) Map() map[string]float64 {
	out := make(map[string]float64, numCategories)
	for _, c := range Categories {
		out[c.String()] = s[c]
	}
	return out
}

// MarshalJSON encodes the set as an object keyed by category label.
func (s ScoreSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

// ThresholdSet holds the minimum acceptable percentage per category.
type ThresholdSet ScoreSet

// Get returns the cutoff for c.
func (t ThresholdSet) Get(c Category) float64 {
	return ScoreSet(t).Get(c)
}

// ThresholdsFromFractions scales configured fractions in [0,1] to percentages.
func ThresholdsFromFractions(fractions map[Category]float64) (ThresholdSet, error) {
	var out ThresholdSet
	for _, c := range Categories {
		v, ok := fractions[c]
		if !ok {
			return out, fmt.Errorf("missing threshold %s", c.ConfigKey())
		}
		if v < 0 || v > 1 {
			return out, fmt.Errorf("threshold %s must be within [0,1] (got %v)", c.ConfigKey(), v)
		}
		out[c] = v * 100
	}
	return out, nil
}

// Mode selects the Lighthouse device emulation.
type Mode string

const (
	ModeDesktop Mode = "desktop"
	ModeMobile  Mode = "mobile"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeDesktop, ModeMobile}

// ParseMode accepts "desktop" or "mobile" in any case.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeDesktop:
		return ModeDesktop, nil
	case ModeMobile:
		return ModeMobile, nil
	default:
		return "", fmt.Errorf("unsupported mode %q (want desktop or mobile)", value)
	}
}

// Target identifies one page audited under one mode.
type Target struct {
	URL      string `json:"url"`
	PageName string `json:"page"`
	Brand    string `json:"brand"`
	Mode     Mode   `json:"mode"`
}

func (t Target) String() string {
	return fmt.Sprintf("%s/%s/%s", t.Mode, t.Brand, t.PageName)
}

// RunResult is a single engine invocation. It is never mutated after creation.
type RunResult struct {
	Index    int      `json:"run"`
	Scores   ScoreSet `json:"scores"`
	JSONPath string   `json:"json"`
	HTMLPath string   `json:"html"`
}

// Session is the ordered list of runs collected for one target.
type Session struct {
	Target Target      `json:"target"`
	Runs   []RunResult `json:"runs"`
}

// Last returns the most recent run. ok is false for an empty session.
func (s Session) Last() (RunResult, bool) {
	if len(s.Runs) == 0 {
		return RunResult{}, false
	}
	return s.Runs[len(s.Runs)-1], true
}

// Performance returns the performance score of every run in order.
func (s Session) Performance() []float64 {
	out := make([]float64, len(s.Runs))
	for i, r := range s.Runs {
		out[i] = r.Scores[Performance]
	}
	return out
}

// Failure is a single category that fell below its threshold.
type Failure struct {
	Category  Category `json:"category"`
	Actual    float64  `json:"actual"`
	Threshold float64  `json:"threshold"`
}

func (f Failure) String() string {
	return fmt.Sprintf("%s %.1f%% < %.1f%%", f.Category, f.Actual, f.Threshold)
}

// Verdict is the gate decision for one score set.
type Verdict struct {
	Pass     bool      `json:"pass"`
	Failures []Failure `json:"failures,omitempty"`
}

// Reason joins all failures on one line, or returns "" for a passing verdict.
func (v Verdict) Reason() string {
	parts := make([]string, 0, len(v.Failures))
	for _, f := range v.Failures {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, "; ")
}
