package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/example/lhgate/internal/audit"
)

const (
	thresholdsKey = "THRESHOLDS"
	pagesSuffix   = "_PAGES"
)

// suiteExtensions are tried in order when looking for config_{mode}.*.
var suiteExtensions = []string{".json", ".yml", ".yaml", ".toml"}

// Page is one URL to audit and the name used for its archive directory.
type Page struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Brand groups the pages read from a <BRAND>_PAGES key.
type Brand struct {
	Name  string `json:"name"`
	Pages []Page `json:"pages"`
}

// Suite is the immutable per-mode configuration: thresholds and page lists.
type Suite struct {
	Mode       audit.Mode
	Path       string
	Thresholds audit.ThresholdSet
	Brands     []Brand
}

// Targets expands the suite into audit targets, brands in name order and pages
// in file order. A non-empty filter keeps only the named brands.
func (s *Suite) Targets(filter []string) []audit.Target {
	keep := map[string]struct{}{}
	for _, b := range filter {
		keep[strings.ToLower(b)] = struct{}{}
	}

	var out []audit.Target
	for _, b := range s.Brands {
		if len(keep) > 0 {
			if _, ok := keep[b.Name]; !ok {
				continue
			}
		}
		for _, p := range b.Pages {
			out = append(out, audit.Target{URL: p.URL, PageName: p.Name, Brand: b.Name, Mode: s.Mode})
		}
	}
	return out
}

// Provider loads suite files from Dir and memoizes them per mode for its lifetime.
type Provider struct {
	Dir string

	mu    sync.Mutex
	cache map[audit.Mode]*Suite
}

// NewProvider returns a provider reading config_{mode}.* files from dir.
func NewProvider(dir string) *Provider {
	return &Provider{Dir: dir, cache: map[audit.Mode]*Suite{}}
}

// Load returns the suite for mode, reading it on first use. Failures are
// returned as *audit.ConfigError and are not cached.
func (p *Provider) Load(mode audit.Mode) (*Suite, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cache == nil {
		p.cache = map[audit.Mode]*Suite{}
	}
	if s, ok := p.cache[mode]; ok {
		return s, nil
	}

	path, err := p.locate(mode)
	if err != nil {
		return nil, err
	}

	s, err := LoadSuite(path, mode)
	if err != nil {
		return nil, err
	}
	p.cache[mode] = s
	return s, nil
}

// LoadAll loads every mode up front so later concurrent readers only see the cache.
func (p *Provider) LoadAll(modes []audit.Mode) ([]*Suite, error) {
	out := make([]*Suite, 0, len(modes))
	for _, m := range modes {
		s, err := p.Load(m)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// SuitePath returns the file that Load would read for mode.
func (p *Provider) SuitePath(mode audit.Mode) (string, error) {
	return p.locate(mode)
}

func (p *Provider) locate(mode audit.Mode) (string, error) {
	stem := filepath.Join(p.Dir, "config_"+string(mode))
	for _, ext := range suiteExtensions {
		if fileExists(stem + ext) {
			return stem + ext, nil
		}
	}
	return "", &audit.ConfigError{Path: stem + ".json", Err: os.ErrNotExist}
}

// LoadSuite reads one suite file. JSON and YAML are decoded with yaml.v3,
// files ending in .toml with go-toml.
func LoadSuite(path string, mode audit.Mode) (*Suite, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, &audit.ConfigError{Path: path, Err: err}
	}

	raw := map[string]interface{}{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, &audit.ConfigError{Path: path, Err: err}
	}

	return buildSuite(path, mode, raw)
}

func buildSuite(path string, mode audit.Mode, raw map[string]interface{}) (*Suite, error) {
	thresholds, err := parseThresholds(path, raw[thresholdsKey])
	if err != nil {
		return nil, err
	}

	var brands []Brand
	for key, value := range raw {
		if !strings.HasSuffix(key, pagesSuffix) || key == pagesSuffix {
			continue
		}
		name := strings.ToLower(strings.TrimSuffix(key, pagesSuffix))
		pages, err := parsePages(path, key, value)
		if err != nil {
			return nil, err
		}
		brands = append(brands, Brand{Name: name, Pages: pages})
	}
	if len(brands) == 0 {
		return nil, &audit.ConfigError{Path: path, Key: "<BRAND>" + pagesSuffix}
	}
	sort.Slice(brands, func(i, j int) bool { return brands[i].Name < brands[j].Name })

	return &Suite{Mode: mode, Path: path, Thresholds: thresholds, Brands: brands}, nil
}

func parseThresholds(path string, value interface{}) (audit.ThresholdSet, error) {
	if value == nil {
		return audit.ThresholdSet{}, &audit.ConfigError{Path: path, Key: thresholdsKey}
	}
	table, ok := value.(map[string]interface{})
	if !ok {
		return audit.ThresholdSet{}, &audit.ConfigError{Path: path, Key: thresholdsKey, Err: errors.New("must be a mapping")}
	}

	fractions := map[audit.Category]float64{}
	for _, c := range audit.Categories {
		key := thresholdsKey + "." + c.ConfigKey()
		v, ok := table[c.ConfigKey()]
		if !ok {
			return audit.ThresholdSet{}, &audit.ConfigError{Path: path, Key: key}
		}
		f, ok := toFloat(v)
		if !ok {
			return audit.ThresholdSet{}, &audit.ConfigError{Path: path, Key: key, Err: fmt.Errorf("not a number: %v", v)}
		}
		fractions[c] = f
	}

	th, err := audit.ThresholdsFromFractions(fractions)
	if err != nil {
		return th, &audit.ConfigError{Path: path, Key: thresholdsKey, Err: err}
	}
	return th, nil
}

// parsePages accepts [url, name] pairs or {url, name} tables.
func parsePages(path, key string, value interface{}) ([]Page, error) {
	items, ok := value.([]interface{})
	if !ok {
		if value == nil {
			return nil, nil
		}
		return nil, &audit.ConfigError{Path: path, Key: key, Err: errors.New("must be a list")}
	}

	pages := make([]Page, 0, len(items))
	seen := map[string]struct{}{}
	for i, item := range items {
		var p Page
		switch v := item.(type) {
		case []interface{}:
			if len(v) != 2 {
				return nil, &audit.ConfigError{Path: path, Key: key, Err: fmt.Errorf("entry %d: want [url, page_name]", i)}
			}
			p.URL, _ = v[0].(string)
			p.Name, _ = v[1].(string)
		case map[string]interface{}:
			p.URL, _ = v["url"].(string)
			p.Name, _ = v["name"].(string)
		default:
			return nil, &audit.ConfigError{Path: path, Key: key, Err: fmt.Errorf("entry %d: unsupported type %T", i, item)}
		}

		p.URL = strings.TrimSpace(p.URL)
		p.Name = strings.TrimSpace(p.Name)
		if err := validatePage(p); err != nil {
			return nil, &audit.ConfigError{Path: path, Key: key, Err: fmt.Errorf("entry %d: %w", i, err)}
		}
		if _, dup := seen[p.Name]; dup {
			return nil, &audit.ConfigError{Path: path, Key: key, Err: fmt.Errorf("duplicate page name %q", p.Name)}
		}
		seen[p.Name] = struct{}{}
		pages = append(pages, p)
	}
	return pages, nil
}

func validatePage(p Page) error {
	if p.URL == "" {
		return errors.New("url is empty")
	}
	if !strings.HasPrefix(p.URL, "http://") && !strings.HasPrefix(p.URL, "https://") {
		return fmt.Errorf("url %q must start with http:// or https://", p.URL)
	}
	if p.Name == "" {
		return errors.New("page name is empty")
	}
	if p.Name == "." || p.Name == ".." || strings.ContainsAny(p.Name, `/\`) {
		return fmt.Errorf("page name %q cannot be used as a directory name", p.Name)
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
