package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event types written during an audit sweep.
const (
	TypeSweepStart    = "sweep-start"
	TypeSessionStart  = "session-start"
	TypeRunComplete   = "run-complete"
	TypeAbnormalRuns  = "abnormal-runs"
	TypeVerdict       = "verdict"
	TypeArchived      = "archived"
	TypeSessionError  = "session-error"
	TypeSweepFinished = "sweep-finished"
	TypeReport        = "report"
)

// Event represents a single NDJSON record for worker-friendly logs.
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Sweep     string                 `json:"sweep,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emitter writes NDJSON events to an io.Writer safely across goroutines.
// A nil *Emitter discards everything.
type Emitter struct {
	writer io.Writer
	sweep  string
	mu     sync.Mutex
}

// NewEmitter returns a new NDJSON emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{writer: w}
}

// SetSweep stamps every following event that has no sweep ID of its own.
func (e *Emitter) SetSweep(id string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.sweep = id
	e.mu.Unlock()
}

// Emit serializes the event to JSON and appends a newline.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}

	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if evt.Sweep == "" {
		evt.Sweep = e.sweep
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	if _, err := e.writer.Write(append(payload, '\n')); err != nil {
		return err
	}

	return nil
}

// Log emits an event built from its parts.
func (e *Emitter) Log(eventType, message string, fields map[string]interface{}) error {
	return e.Emit(Event{Type: eventType, Message: message, Fields: fields})
}
