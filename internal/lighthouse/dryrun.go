package lighthouse

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"time"

	"github.com/example/lhgate/internal/audit"
)

// DefaultDryRunScores are the fractions written by a DryRunEngine without overrides.
var DefaultDryRunScores = map[audit.Category]float64{
	audit.Performance:   0.9,
	audit.Accessibility: 0.95,
	audit.BestPractices: 0.92,
	audit.SEO:           1,
}

// DryRunEngine skips lighthouse and writes placeholder reports with fixed
// scores, so a sweep can be exercised on workers without Chrome.
type DryRunEngine struct {
	Scores map[audit.Category]float64
}

// EnsureBinary implements Engine; a dry run needs no binary.
func (e *DryRunEngine) EnsureBinary() error { return nil }

// Run writes a lighthouse-shaped JSON report and a small HTML page into reportDir.
func (e *DryRunEngine) Run(ctx context.Context, url string, mode audit.Mode, reportDir string) (Artifacts, error) {
	if err := ctx.Err(); err != nil {
		return Artifacts{}, err
	}

	paths, err := prepare(url, mode, reportDir)
	if err != nil {
		return Artifacts{}, err
	}

	scores := e.Scores
	if scores == nil {
		scores = DefaultDryRunScores
	}

	categories := map[string]interface{}{}
	for _, c := range audit.Categories {
		if v, ok := scores[c]; ok {
			categories[c.ReportID()] = map[string]interface{}{"id": c.ReportID(), "score": v}
		}
	}

	report := map[string]interface{}{
		"requestedUrl": url,
		"fetchTime":    time.Now().UTC().Format(time.RFC3339),
		"configSettings": map[string]interface{}{
			"formFactor": string(mode),
		},
		"categories": categories,
		"note":       "dry-run placeholder artifact",
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return Artifacts{}, err
	}
	if err := os.WriteFile(paths.JSONPath, append(data, '\n'), 0o644); err != nil {
		return Artifacts{}, err
	}

	page := fmt.Sprintf("<html><body><h1>dry-run placeholder</h1><p>%s [%s]</p></body></html>\n",
		html.EscapeString(url), mode)
	if err := os.WriteFile(paths.HTMLPath, []byte(page), 0o644); err != nil {
		return Artifacts{}, err
	}

	return paths, nil
}

// ParseScores implements Engine.
func (e *DryRunEngine) ParseScores(jsonPath string) (audit.ScoreSet, error) {
	return ParseScores(jsonPath)
}
