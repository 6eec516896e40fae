package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/example/lhgate/internal/audit"
	"github.com/example/lhgate/internal/config"
	"github.com/example/lhgate/internal/lighthouse"
	"github.com/spf13/cobra"
)

type doctorCheck struct {
	Name   string
	Status string // "✓", "✗" or "⊘"
	Detail string
	Error  error
}

// maxNetworkChecks bounds how many pages doctor probes.
const maxNetworkChecks = 3

func newDoctorCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}
	var timeout int

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate lighthouse, suite configs, output directories and page reachability",
		Long: `The doctor subcommand performs comprehensive validation of the lhgate environment:
- Go runtime version
- lighthouse binary presence and version
- config_{mode} suite files for every selected mode
- network reachability of the first configured pages
- work and archive directories`,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := flags.toOverrides(cmd)
			cfg, err := loader.Load(overrides)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeout)*time.Second)
			defer cancel()

			checks := runDoctorChecks(ctx, &cfg)
			printDoctorReport(cmd, checks)

			for _, check := range checks {
				if check.Error != nil {
					return fmt.Errorf("doctor checks failed")
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "\n✓ All checks passed. System is ready.")
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)
	cmd.Flags().IntVar(&timeout, "timeout", 30, "Timeout in seconds for network checks")

	return cmd
}

func runDoctorChecks(ctx context.Context, cfg *config.RuntimeConfig) []doctorCheck {
	checks := []doctorCheck{checkGoVersion()}

	binaryCheck := checkLighthouseBinary(ctx, cfg.Binary, cfg.DryRun)
	checks = append(checks, binaryCheck)

	configCheck := checkConfiguration(cfg)
	checks = append(checks, configCheck)

	var urls []string
	if modes, err := cfg.ParsedModes(); err == nil {
		provider := config.NewProvider(cfg.ConfigDir)
		for _, mode := range modes {
			check, targets := checkSuiteConfig(provider, mode, cfg.Brands)
			checks = append(checks, check)
			for _, t := range targets {
				urls = appendUnique(urls, t.URL)
			}
		}
	}

	if len(urls) > 0 && !cfg.DryRun {
		checks = append(checks, checkNetworkReachability(ctx, urls)...)
	}

	checks = append(checks,
		checkDirectory("Work Directory", cfg.WorkDir),
		checkDirectory("Archive Directory", cfg.ArchiveDir),
	)

	return checks
}

func checkGoVersion() doctorCheck {
	return doctorCheck{
		Name:   "Go Runtime",
		Status: "✓",
		Detail: fmt.Sprintf("Version %s", runtime.Version()),
	}
}

func checkLighthouseBinary(ctx context.Context, binary string, dryRun bool) doctorCheck {
	if dryRun {
		return doctorCheck{
			Name:   "lighthouse Binary",
			Status: "⊘",
			Detail: "Skipped (dry-run mode)",
		}
	}

	engine := lighthouse.NewEngine(binary)
	if err := engine.EnsureBinary(); err != nil {
		return doctorCheck{
			Name:   "lighthouse Binary",
			Status: "✗",
			Detail: fmt.Sprintf("%s not found in PATH", engine.Binary),
			Error:  err,
		}
	}

	detail := "Available"
	if version, err := lighthouseVersion(ctx, engine.Binary); err == nil {
		detail = fmt.Sprintf("Version %s", version)
	}

	return doctorCheck{
		Name:   "lighthouse Binary",
		Status: "✓",
		Detail: detail,
	}
}

func lighthouseVersion(ctx context.Context, binary string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, binary, "--version").CombinedOutput()
	if err != nil {
		return "", err
	}

	version := strings.TrimSpace(string(output))
	if version == "" {
		return "unknown", nil
	}
	return version, nil
}

func checkSuiteConfig(provider *config.Provider, mode audit.Mode, brands []string) (doctorCheck, []audit.Target) {
	name := fmt.Sprintf("Suite Config (%s)", mode)

	s, err := provider.Load(mode)
	if err != nil {
		return doctorCheck{
			Name:   name,
			Status: "✗",
			Detail: "Cannot load suite config",
			Error:  err,
		}, nil
	}

	targets := s.Targets(brands)
	return doctorCheck{
		Name:   name,
		Status: "✓",
		Detail: fmt.Sprintf("%s: %d brands, %d pages", s.Path, len(s.Brands), len(targets)),
	}, targets
}

func checkNetworkReachability(ctx context.Context, urls []string) []doctorCheck {
	checks := []doctorCheck{}

	total := len(urls)
	if total > maxNetworkChecks {
		urls = urls[:maxNetworkChecks]
	}

	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	for _, url := range urls {
		check := doctorCheck{Name: fmt.Sprintf("Network: %s", url)}

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			check.Status = "✗"
			check.Detail = "Invalid URL"
			check.Error = err
			checks = append(checks, check)
			continue
		}

		resp, err := client.Do(req)
		if err != nil {
			check.Status = "✗"
			check.Detail = "Unreachable"
			check.Error = err
		} else {
			resp.Body.Close()
			check.Status = "✓"
			check.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}

		checks = append(checks, check)
	}

	if total > maxNetworkChecks {
		checks = append(checks, doctorCheck{
			Name:   fmt.Sprintf("Network: ... (%d more pages)", total-maxNetworkChecks),
			Status: "⊘",
			Detail: "Skipped for brevity",
		})
	}

	return checks
}

func checkConfiguration(cfg *config.RuntimeConfig) doctorCheck {
	if err := cfg.Validate(); err != nil {
		return doctorCheck{
			Name:   "Configuration",
			Status: "✗",
			Detail: "Invalid configuration",
			Error:  err,
		}
	}

	return doctorCheck{
		Name:   "Configuration",
		Status: "✓",
		Detail: fmt.Sprintf("modes=%s desktop=%d mobile=%d parallel=%d", strings.Join(cfg.Modes, ","), cfg.DesktopRuns, cfg.MobileRuns, cfg.Parallel),
	}
}

func checkDirectory(name, dir string) doctorCheck {
	if err := ensureOutputDir(dir); err != nil {
		return doctorCheck{
			Name:   name,
			Status: "✗",
			Detail: dir,
			Error:  err,
		}
	}

	return doctorCheck{
		Name:   name,
		Status: "✓",
		Detail: dir,
	}
}

func printDoctorReport(cmd *cobra.Command, checks []doctorCheck) {
	fmt.Fprintln(cmd.OutOrStdout(), "Running environment diagnostics...")

	for _, check := range checks {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %-30s %s\n", check.Status, check.Name+":", check.Detail)
		if check.Error != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "   Error: %v\n", check.Error)
		}
	}
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
