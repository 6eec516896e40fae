package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/lhgate/internal/audit"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"audit", "init", "doctor", "report"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %s not registered: %v", name, err)
		}
	}

	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"--version"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "lhgate version ") {
		t.Fatalf("unexpected version output %q", buf.String())
	}
}

func TestRootPersistentConfigFlags(t *testing.T) {
	dir := t.TempDir()
	writeSuiteConfig(t, dir, audit.ModeDesktop, 0.8)

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{
		"init",
		"--config", filepath.Join(dir, "absent.yml"),
		"--env-file", filepath.Join(dir, "absent.env"),
		"--modes", "desktop",
		"--config-dir", dir,
		"--work-dir", filepath.Join(dir, "work"),
		"--dry-run",
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("init via root failed: %v\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "Environment looks good") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}
