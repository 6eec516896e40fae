package cli

import (
	"fmt"
	"os"

	"github.com/example/lhgate/internal/config"
	"github.com/example/lhgate/internal/lighthouse"
)

func ensureOutputDir(path string) error {
	if path == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	return os.MkdirAll(path, 0o755)
}

// newEngine returns the engine a command should drive for cfg.
func newEngine(cfg config.RuntimeConfig) lighthouse.Engine {
	if cfg.DryRun {
		return &lighthouse.DryRunEngine{}
	}
	return lighthouse.NewEngine(cfg.Binary)
}
