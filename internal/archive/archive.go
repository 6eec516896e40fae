package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/example/lhgate/internal/audit"
)

const (
	PassedDir = "reports_passed"
	FailedDir = "reports_failed"
)

// Archiver copies run artifacts into a pass/fail segregated tree under Base.
type Archiver struct {
	Base string
}

// New returns an archiver rooted at base. An empty base means the working directory.
func New(base string) *Archiver {
	return &Archiver{Base: base}
}

// RootFor returns the passed or failed root directory.
func (a *Archiver) RootFor(isPass bool) string {
	name := FailedDir
	if isPass {
		name = PassedDir
	}
	return filepath.Join(a.Base, name)
}

// Dir returns {root}/{mode}/{brand}/{page} for the given verdict.
func (a *Archiver) Dir(isPass bool, mode audit.Mode, brand, pageName string) string {
	return filepath.Join(a.RootFor(isPass), string(mode), brand, pageName)
}

// Archive copies the JSON and HTML artifact of every run to run_{index}.json and
// run_{index}.html inside Dir. Existing files are overwritten. The first failed
// copy stops the archive and is returned as *audit.ArchiverIOError; files copied
// before it are kept.
func (a *Archiver) Archive(isPass bool, mode audit.Mode, brand, pageName string, runs []audit.RunResult) (string, error) {
	if brand == "" || pageName == "" {
		return "", &audit.ArchiverIOError{Err: errors.New("brand and page name are required")}
	}

	dir := a.Dir(isPass, mode, brand, pageName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dir, &audit.ArchiverIOError{Dst: dir, Err: err}
	}

	for _, r := range runs {
		pairs := []struct{ src, ext string }{
			{r.JSONPath, ".json"},
			{r.HTMLPath, ".html"},
		}
		for _, p := range pairs {
			dst := filepath.Join(dir, fmt.Sprintf("run_%d%s", r.Index, p.ext))
			if err := copyFile(p.src, dst); err != nil {
				return dir, &audit.ArchiverIOError{Src: p.src, Dst: dst, Err: err}
			}
		}
	}

	return dir, nil
}

func copyFile(src, dst string) error {
	if src == "" {
		return errors.New("artifact path is empty")
	}

	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
