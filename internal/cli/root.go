package cli

import (
	"context"

	"github.com/example/lhgate/internal/config"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X".
var version = "dev"

// Execute builds the root command tree and runs the CLI.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	loader := &config.Loader{ConfigPath: config.DefaultConfigPath}
	rootOpts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "lhgate",
		Short:         "Worker-friendly lighthouse quality gate",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.SetVersionTemplate("lhgate version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&rootOpts.ConfigPath, "config", config.DefaultConfigPath, "Path to lhgate.config.yml (optional)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.EnvFile, "env-file", config.DefaultEnvFile, "Path to a dotenv file (optional)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if rootOpts.ConfigPath != "" {
			loader.ConfigPath = rootOpts.ConfigPath
		}
		if rootOpts.EnvFile != "" {
			loader.EnvFile = rootOpts.EnvFile
		}
	}

	rootCmd.AddCommand(
		newInitCmd(loader),
		newAuditCmd(loader),
		newDoctorCmd(loader),
		newReportCmd(),
	)

	return rootCmd
}

type rootOptions struct {
	ConfigPath string
	EnvFile    string
}
