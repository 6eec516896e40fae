package lighthouse

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/lhgate/internal/audit"
)

type rawReport struct {
	Categories map[string]struct {
		Score *float64 `json:"score"`
	} `json:"categories"`
}

// ParseScores reads a lighthouse JSON report and returns every category as a
// percentage. Categories that are absent or have a null score are 0. Any read
// or decode failure is returned as *audit.ReportParseError.
func ParseScores(jsonPath string) (audit.ScoreSet, error) {
	data, err := os.ReadFile(filepath.Clean(jsonPath))
	if err != nil {
		return audit.ScoreSet{}, &audit.ReportParseError{Path: jsonPath, Err: err}
	}
	return DecodeScores(jsonPath, data)
}

// DecodeScores is ParseScores on an in-memory report. path is used for errors only.
func DecodeScores(path string, data []byte) (audit.ScoreSet, error) {
	var raw rawReport
	if err := json.Unmarshal(data, &raw); err != nil {
		return audit.ScoreSet{}, &audit.ReportParseError{Path: path, Err: err}
	}
	if raw.Categories == nil {
		return audit.ScoreSet{}, &audit.ReportParseError{Path: path, Err: errors.New(`report has no "categories" object`)}
	}

	var scores audit.ScoreSet
	for _, c := range audit.Categories {
		entry, ok := raw.Categories[c.ReportID()]
		if !ok || entry.Score == nil {
			continue
		}
		v := *entry.Score
		if v < 0 || v > 1 {
			return audit.ScoreSet{}, &audit.ReportParseError{
				Path: path,
				Err:  fmt.Errorf("category %s score %v outside [0,1]", c.ReportID(), v),
			}
		}
		scores[c] = v * 100
	}
	return scores, nil
}
