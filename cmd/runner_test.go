package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/spindle/internal/scheduler"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/watch"
)

func TestRunnerWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(RunnerConfig{Output: &buf})

	if err := r.writeJSON(map[string]int{"a": 1}, false); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}
	if got := buf.String(); !strings.Contains(got, `"a":1`) {
		t.Errorf("expected compact JSON, got %q", got)
	}
}

func TestRunnerWriteJSONPretty(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(RunnerConfig{Output: &buf})

	if err := r.writeJSON(map[string]int{"a": 1}, true); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}
	if got := buf.String(); !strings.Contains(got, "\"a\": 1") {
		t.Errorf("expected indented JSON, got %q", got)
	}
}

func TestRunnerWritePlain(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(RunnerConfig{Output: &buf})

	if err := r.writePlainln("removed %d rows", 3); err != nil {
		t.Fatalf("writePlainln failed: %v", err)
	}
	if got := buf.String(); got != "removed 3 rows\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestRunnerRequireScheduler(t *testing.T) {
	r := NewRunner(RunnerConfig{})
	if err := r.requireScheduler(); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}

	r2 := NewRunner(RunnerConfig{Scheduler: &scheduler.Manager{}})
	if err := r2.requireScheduler(); err != nil {
		t.Errorf("expected no error with scheduler set, got %v", err)
	}
}

func TestRunnerRequireWatch(t *testing.T) {
	r := NewRunner(RunnerConfig{})
	if err := r.requireWatch(); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}

	r2 := NewRunner(RunnerConfig{WatchStore: &watch.Store{}})
	if err := r2.requireWatch(); err != nil {
		t.Errorf("expected no error with watch store set, got %v", err)
	}
}
