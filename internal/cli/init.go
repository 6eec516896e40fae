package cli

import (
	"fmt"

	"github.com/example/lhgate/internal/config"
	"github.com/spf13/cobra"
)

func newInitCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}
	var skipBinaryCheck bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Validate the execution environment and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := flags.toOverrides(cmd)
			cfg, err := loader.Load(overrides)
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			jobs, err := planJobs(cfg)
			if err != nil {
				return err
			}

			if err := ensureOutputDir(cfg.WorkDir); err != nil {
				return err
			}

			if !skipBinaryCheck {
				if err := newEngine(cfg).EnsureBinary(); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Environment looks good. %d pages across %v; raw reports go to %s\n", len(jobs), cfg.Modes, cfg.WorkDir)
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)
	cmd.Flags().BoolVar(&skipBinaryCheck, "skip-lighthouse-check", false, "Allow init to pass even if lighthouse is missing (useful for dry-run mode)")

	return cmd
}
