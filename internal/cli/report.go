package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/example/lhgate/internal/archive"
	"github.com/example/lhgate/internal/events"
	"github.com/example/lhgate/internal/report"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var archiveDir string
	var summaryPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the reports_passed and reports_failed archive trees",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := archive.New(archiveDir).Scan()
			if err != nil {
				return err
			}

			passed, failed := 0, 0
			for _, e := range entries {
				if e.Passed {
					passed++
				} else {
					failed++
				}
			}

			if err := report.RenderArchive(cmd.ErrOrStderr(), entries); err != nil {
				return err
			}

			stats := map[string]interface{}{
				"archive":     archiveDir,
				"generatedAt": time.Now().UTC().Format(time.RFC3339),
				"passed":      passed,
				"failed":      failed,
				"pages":       entries,
			}

			emitter := events.NewEmitter(cmd.OutOrStdout())
			if err := emitter.Log(events.TypeReport, "Report generated", stats); err != nil {
				return err
			}

			if summaryPath != "" {
				if err := writeReportSummary(summaryPath, stats); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Summary written to %s\n", summaryPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&archiveDir, "archive", ".", "Directory holding reports_passed and reports_failed")
	cmd.Flags().StringVar(&summaryPath, "summary-file", "", "Optional path to store summary JSON")

	return cmd
}

func writeReportSummary(path string, stats map[string]interface{}) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
