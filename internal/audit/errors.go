package audit

import "fmt"

// ConfigError means the suite configuration is missing or incomplete. It aborts
// the whole sweep.
type ConfigError struct {
	Path string
	Key  string
	Err  error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Key != "" && e.Err != nil:
		return fmt.Sprintf("config %s: key %s: %v", e.Path, e.Key, e.Err)
	case e.Key != "":
		return fmt.Sprintf("config %s: missing required key %s", e.Path, e.Key)
	default:
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// EngineInvocationError means the audit engine failed or timed out. It aborts
// the remaining runs of the current session only.
type EngineInvocationError struct {
	URL  string
	Mode Mode
	Run  int
	Err  error
}

func (e *EngineInvocationError) Error() string {
	return fmt.Sprintf("lighthouse run %d for %s [%s] failed: %v", e.Run, e.URL, e.Mode, e.Err)
}

func (e *EngineInvocationError) Unwrap() error { return e.Err }

// ReportParseError means a JSON report could not be read or decoded.
type ReportParseError struct {
	Path string
	Err  error
}

func (e *ReportParseError) Error() string {
	return fmt.Sprintf("parse report %s: %v", e.Path, e.Err)
}

func (e *ReportParseError) Unwrap() error { return e.Err }

// ArchiverIOError means an artifact could not be copied into the archive tree.
// Files copied before the failure are left in place.
type ArchiverIOError struct {
	Src string
	Dst string
	Err error
}

func (e *ArchiverIOError) Error() string {
	if e.Src == "" {
		return fmt.Sprintf("archive %s: %v", e.Dst, e.Err)
	}
	return fmt.Sprintf("archive %s -> %s: %v", e.Src, e.Dst, e.Err)
}

func (e *ArchiverIOError) Unwrap() error { return e.Err }
