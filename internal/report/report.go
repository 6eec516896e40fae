package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/example/lhgate/internal/archive"
	"github.com/example/lhgate/internal/audit"
	"github.com/example/lhgate/internal/suite"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	abnormalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true).Padding(0, 1)
	passStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

// RenderTable writes the per-run score table for one outcome followed by its
// verdict line. Abnormal runs are highlighted.
func RenderTable(w io.Writer, o suite.Outcome) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  %s", o.Target, o.Target.URL)))
	b.WriteByte('\n')

	if len(o.Session.Runs) > 0 {
		abnormal := map[int]bool{}
		for _, r := range o.Abnormal {
			abnormal[r.Index] = true
		}

		headers := []string{"Run"}
		for _, c := range audit.Categories {
			headers = append(headers, c.String())
		}
		headers = append(headers, "Note")

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(mutedStyle).
			Headers(headers...)

		for _, r := range o.Session.Runs {
			row := []string{fmt.Sprintf("%d", r.Index)}
			for _, c := range audit.Categories {
				row = append(row, formatScore(r.Scores.Get(c)))
			}
			note := ""
			if abnormal[r.Index] {
				note = "abnormal"
			}
			t.Row(append(row, note)...)
		}

		runs := o.Session.Runs
		t.StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(runs) && abnormal[runs[row].Index] {
				return abnormalStyle
			}
			return cellStyle
		})

		b.WriteString(t.Render())
		b.WriteByte('\n')
	}

	b.WriteString(verdictLine(o))
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderAbnormal writes a warning block listing abnormal runs. Nothing is written
// when the outcome has none.
func RenderAbnormal(w io.Writer, o suite.Outcome) error {
	if len(o.Abnormal) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(abnormalStyle.UnsetPadding().Render(fmt.Sprintf("Abnormal performance for %s (mean %s)", o.Target, formatScore(o.Mean))))
	b.WriteByte('\n')
	for _, r := range o.Abnormal {
		p := r.Scores.Get(audit.Performance)
		fmt.Fprintf(&b, "  run %d: %s (%.0f%% from mean)\n", r.Index, formatScore(p), deviationPercent(p, o.Mean))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func verdictLine(o suite.Outcome) string {
	switch {
	case o.Err != nil:
		return failStyle.Render("ERROR") + " " + o.Err.Error()
	case o.Verdict.Pass:
		line := passStyle.Render("PASS")
		if o.ArchiveDir != "" {
			line += " " + mutedStyle.Render("-> "+o.ArchiveDir)
		}
		return line
	default:
		line := failStyle.Render("FAIL") + " " + o.Verdict.Reason()
		if o.ArchiveDir != "" {
			line += " " + mutedStyle.Render("-> "+o.ArchiveDir)
		}
		return line
	}
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func deviationPercent(score, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	d := (score - mean) / mean * 100
	if d < 0 {
		d = -d
	}
	return d
}

// RenderArchive writes one row per archived page directory.
func RenderArchive(w io.Writer, entries []archive.Entry) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("Mode", "Brand", "Page", "Status", "Runs")

	for _, e := range entries {
		status := "failed"
		if e.Passed {
			status = "passed"
		}
		t.Row(string(e.Mode), e.Brand, e.Page, status, fmt.Sprintf("%d", e.Runs))
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 3 && row >= 0 && row < len(entries) {
			if entries[row].Passed {
				return passStyle.Padding(0, 1)
			}
			return failStyle.Padding(0, 1)
		}
		return cellStyle
	})

	_, err := io.WriteString(w, t.Render()+"\n")
	return err
}

// Summary is the machine-readable result of a sweep.
type Summary struct {
	GeneratedAt string          `json:"generatedAt"`
	Sweep       string          `json:"sweep"`
	Passed      int             `json:"passed"`
	Failed      int             `json:"failed"`
	Errored     int             `json:"errored"`
	Targets     []TargetSummary `json:"targets"`
}

// TargetSummary is one outcome in a Summary.
type TargetSummary struct {
	Target     string             `json:"target"`
	URL        string             `json:"url"`
	Mode       audit.Mode         `json:"mode"`
	Brand      string             `json:"brand"`
	Page       string             `json:"page"`
	Runs       int                `json:"runs"`
	Pass       bool               `json:"pass"`
	Failures   []string           `json:"failures,omitempty"`
	Error      string             `json:"error,omitempty"`
	Mean       float64            `json:"meanPerformance"`
	Abnormal   []int              `json:"abnormalRuns,omitempty"`
	Last       map[string]float64 `json:"lastRun,omitempty"`
	ArchiveDir string             `json:"archiveDir,omitempty"`
}

// Summarize builds the summary for a sweep.
func Summarize(sweepID string, outcomes []suite.Outcome) Summary {
	s := Summary{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Sweep:       sweepID,
		Targets:     make([]TargetSummary, 0, len(outcomes)),
	}
	s.Passed, s.Failed, s.Errored = suite.Tally(outcomes)

	for _, o := range outcomes {
		ts := TargetSummary{
			Target:     o.Target.String(),
			URL:        o.Target.URL,
			Mode:       o.Target.Mode,
			Brand:      o.Target.Brand,
			Page:       o.Target.PageName,
			Runs:       len(o.Session.Runs),
			Pass:       o.Err == nil && o.Verdict.Pass,
			Mean:       o.Mean,
			ArchiveDir: o.ArchiveDir,
		}
		for _, f := range o.Verdict.Failures {
			ts.Failures = append(ts.Failures, f.String())
		}
		if o.Err != nil {
			ts.Error = o.Err.Error()
		}
		for _, r := range o.Abnormal {
			ts.Abnormal = append(ts.Abnormal, r.Index)
		}
		if last, ok := o.Session.Last(); ok {
			ts.Last = last.Scores.Map()
		}
		s.Targets = append(s.Targets, ts)
	}
	return s
}

// WriteSummary writes the sweep summary as indented JSON to path.
func WriteSummary(path, sweepID string, outcomes []suite.Outcome) error {
	data, err := json.MarshalIndent(Summarize(sweepID, outcomes), "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, append(data, '\n'), 0o644)
}
