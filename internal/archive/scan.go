package archive

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/example/lhgate/internal/audit"
)

// Entry is one archived page directory.
type Entry struct {
	Mode   audit.Mode `json:"mode"`
	Brand  string     `json:"brand"`
	Page   string     `json:"page"`
	Passed bool       `json:"passed"`
	Runs   int        `json:"runs"`
	Dir    string     `json:"dir"`
}

// Scan lists every {mode}/{brand}/{page} directory under both archive roots,
// counting run_*.json files. Roots that do not exist are skipped. Entries are
// sorted by mode, brand, page, with failed entries after passed ones.
func (a *Archiver) Scan() ([]Entry, error) {
	var entries []Entry
	for _, isPass := range []bool{true, false} {
		root := a.RootFor(isPass)
		found, err := scanRoot(root, isPass)
		if err != nil {
			return nil, err
		}
		entries = append(entries, found...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		x, y := entries[i], entries[j]
		if x.Mode != y.Mode {
			return x.Mode < y.Mode
		}
		if x.Brand != y.Brand {
			return x.Brand < y.Brand
		}
		if x.Page != y.Page {
			return x.Page < y.Page
		}
		return x.Passed && !y.Passed
	})
	return entries, nil
}

func scanRoot(root string, isPass bool) ([]Entry, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	byDir := map[string]*Entry{}
	var order []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasPrefix(d.Name(), "run_") || filepath.Ext(d.Name()) != ".json" {
			return nil
		}

		dir := filepath.Dir(path)
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			return nil
		}

		e, ok := byDir[dir]
		if !ok {
			e = &Entry{Mode: audit.Mode(parts[0]), Brand: parts[1], Page: parts[2], Passed: isPass, Dir: dir}
			byDir[dir] = e
			order = append(order, dir)
		}
		e.Runs++
		return nil
	})
	if err != nil {
		return nil, &audit.ArchiverIOError{Src: root, Err: err}
	}

	out := make([]Entry, 0, len(order))
	for _, dir := range order {
		out = append(out, *byDir[dir])
	}
	return out, nil
}
