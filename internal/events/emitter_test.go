package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type errorWriter struct{}

func (errorWriter) Write(p []byte) (int, error) {
	return 0, errors.New("write failed")
}

type badField struct{}

func (badField) MarshalJSON() ([]byte, error) {
	return nil, errors.New("marshal error")
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []Event {
	t.Helper()
	var out []Event
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var evt Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", line, err)
		}
		out = append(out, evt)
	}
	return out
}

func TestEmitAssignsTimestamp(t *testing.T) {
	buf := &bytes.Buffer{}
	e := NewEmitter(buf)

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := e.Emit(Event{Type: TypeRunComplete}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := e.Emit(Event{Type: TypeVerdict, Timestamp: fixed}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	got := decodeLines(t, buf)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Timestamp.IsZero() || time.Since(got[0].Timestamp) > time.Minute {
		t.Fatalf("timestamp not assigned: %v", got[0].Timestamp)
	}
	if !got[1].Timestamp.Equal(fixed) {
		t.Fatalf("explicit timestamp not preserved: %v", got[1].Timestamp)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Fatalf("output must end with newline")
	}
}

func TestEmitStampsSweep(t *testing.T) {
	buf := &bytes.Buffer{}
	e := NewEmitter(buf)

	_ = e.Log(TypeSweepStart, "before", nil)
	e.SetSweep("sweep-1")
	_ = e.Log(TypeSessionStart, "after", map[string]interface{}{"page": "home"})
	_ = e.Emit(Event{Type: TypeVerdict, Sweep: "explicit"})

	got := decodeLines(t, buf)
	if got[0].Sweep != "" {
		t.Fatalf("first event should have no sweep, got %q", got[0].Sweep)
	}
	if got[1].Sweep != "sweep-1" || got[1].Fields["page"] != "home" {
		t.Fatalf("unexpected second event %+v", got[1])
	}
	if got[2].Sweep != "explicit" {
		t.Fatalf("explicit sweep should win, got %q", got[2].Sweep)
	}
}

func TestNilEmitterDiscards(t *testing.T) {
	var e *Emitter
	e.SetSweep("x")
	if err := e.Log(TypeVerdict, "ignored", nil); err != nil {
		t.Fatalf("nil emitter should not fail: %v", err)
	}
}

func TestEmitErrors(t *testing.T) {
	if err := NewEmitter(errorWriter{}).Log(TypeArchived, "x", nil); err == nil {
		t.Fatal("expected write error")
	}

	buf := &bytes.Buffer{}
	err := NewEmitter(buf).Log(TypeArchived, "x", map[string]interface{}{"bad": badField{}})
	if err == nil {
		t.Fatal("expected marshal error")
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written on marshal error, got %q", buf.String())
	}
}

func TestEmitConcurrentLinesStayWhole(t *testing.T) {
	buf := &bytes.Buffer{}
	e := NewEmitter(buf)
	e.SetSweep("parallel")

	const workers, perWorker = 20, 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if err := e.Log(TypeRunComplete, "run", map[string]interface{}{"worker": id, "run": j}); err != nil {
					t.Errorf("emit: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	got := decodeLines(t, buf)
	if len(got) != workers*perWorker {
		t.Fatalf("expected %d events, got %d", workers*perWorker, len(got))
	}
	for _, evt := range got {
		if evt.Sweep != "parallel" {
			t.Fatalf("event missing sweep id: %+v", evt)
		}
	}
}
