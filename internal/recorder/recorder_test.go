package recorder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"propmon/internal/ltl"
	"propmon/internal/scripting"
)

func TestRecorderRotationByCount(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "recorder_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	r, err := NewRecorder(tempDir, 0)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < MaxRotatedFiles+2; i++ {
		if err := r.Start("test"); err != nil {
			t.Fatal(err)
		}
		r.LogTick(0, []byte(`{"ok":true}`), nil)
		time.Sleep(time.Millisecond) // keep embedded timestamps distinct
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != MaxRotatedFiles {
		t.Errorf("expected %d files, got %d", MaxRotatedFiles, len(entries))
	}
}

func TestRecorderRotationKeepsNewestByEmbeddedTimestamp(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "recorder_order_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	r, err := NewRecorder(tempDir, 0)
	if err != nil {
		t.Fatal(err)
	}

	var runIDs []string
	for i := 0; i < MaxRotatedFiles+2; i++ {
		runID := string(rune('a' + i))
		runIDs = append(runIDs, runID)
		if err := r.Start(runID); err != nil {
			t.Fatal(err)
		}
		r.LogTick(0, []byte(`{}`), nil)
		time.Sleep(time.Millisecond)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	// The oldest two run IDs ("a", "b") must have been pruned; the newest
	// MaxRotatedFiles must survive.
	survivors := map[string]bool{}
	for _, e := range entries {
		survivors[e.Name()] = true
	}
	for _, runID := range runIDs[:len(runIDs)-MaxRotatedFiles] {
		for name := range survivors {
			if strings.Contains(name, "trace_"+runID+"_") {
				t.Errorf("expected oldest run %q to be pruned, found %s", runID, name)
			}
		}
	}
}

func TestRecorderMidRunSizeRotation(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "recorder_size_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	// Small enough that a handful of ticks forces at least one mid-run
	// rotation, independent of MaxRotatedFiles/retention.
	r, err := NewRecorder(tempDir, 64)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Start("size-test"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		r.LogTick(ltl.Time(i), []byte(`{"padding":"0123456789"}`), nil)
	}
	r.Close()

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected mid-run rotation to produce multiple files, got %d", len(entries))
	}
	if len(entries) > MaxRotatedFiles {
		t.Fatalf("expected prune to cap at %d files, got %d", MaxRotatedFiles, len(entries))
	}
}

func TestRecorderLogging(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "recorder_log_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	r, err := NewRecorder(tempDir, 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Start("run1"); err != nil {
		t.Fatal(err)
	}

	values := []scripting.PropertyValue{{Name: "neverNull", Status: scripting.StatusResidual}}
	r.LogTick(42, []byte(`{"sensor":5}`), values)
	r.Close()

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 file, got %d", len(entries))
	}

	content, err := os.ReadFile(filepath.Join(tempDir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(string(content), `{"time_ms":42,`) {
		t.Errorf("unexpected log content format: %s", string(content))
	}

	var rec TickRecord
	if err := json.Unmarshal(content, &rec); err != nil {
		t.Fatalf("unmarshal trace line: %v", err)
	}
	if len(rec.Properties) != 1 || rec.Properties[0].Name != "neverNull" {
		t.Fatalf("unexpected properties: %#v", rec.Properties)
	}
}

func TestLogTickBeforeStartIsNoop(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "recorder_noop_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	r, err := NewRecorder(tempDir, 0)
	if err != nil {
		t.Fatal(err)
	}
	r.LogTick(0, []byte(`{}`), nil)

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files written before Start, got %d", len(entries))
	}
}

func TestParseTraceTimestamp(t *testing.T) {
	millis, ok := parseTraceTimestamp("trace_run-1_1700000000000.jsonl")
	if !ok {
		t.Fatal("expected a match")
	}
	if millis != 1700000000000 {
		t.Fatalf("unexpected timestamp: %d", millis)
	}

	if _, ok := parseTraceTimestamp("not-a-trace-file.jsonl"); ok {
		t.Fatal("expected no match for an unrelated filename")
	}
}
