// Package recorder is the trace writer of the reference host: it rotates
// JSONL trace files under a configured directory, one line per tick, so a
// run can be replayed offline against the same specification.
package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"propmon/internal/ltl"
	"propmon/internal/scripting"
)

const (
	// MaxRotatedFiles bounds how many trace files prune() ever keeps,
	// regardless of their combined size.
	MaxRotatedFiles = 3
	DefaultTraceDir = "data/traces"
	// DefaultMaxFileBytes is used when a caller passes a non-positive
	// maxFileBytes, mirroring config.TraceConfig's own default.
	DefaultMaxFileBytes = 10 * 1024 * 1024
)

// traceFilePattern matches the unix-millis timestamp this package embeds
// in every trace filename: trace_<runID>_<unixMillis>.jsonl. Retention
// orders by this embedded value instead of the file's ModTime, which a
// backup, a `cp -p`, or a clock change could disturb independently of when
// the trace was actually produced.
var traceFilePattern = regexp.MustCompile(`^trace_.+_(\d+)\.jsonl$`)

// TickRecord is a single line of a trace: the tick's time, the raw
// snapshot JSON the host captured, and every property's value after
// stepping the evaluator at that time.
type TickRecord struct {
	Time       ltl.Time                  `json:"time_ms"`
	RecordedAt time.Time                 `json:"recorded_at"`
	Snapshot   json.RawMessage           `json:"snapshot"`
	Properties []scripting.PropertyValue `json:"properties"`
}

// Recorder manages rotating JSONL trace files for a run. A file rotates
// either when Start begins a new run, or mid-run once the active file
// would exceed maxFileBytes.
type Recorder struct {
	mu           sync.Mutex
	file         *os.File
	basePath     string
	maxFileBytes int64
	runID        string
	written      int64
}

// NewRecorder creates a recorder instance, ensuring basePath exists.
// maxFileBytes bounds both when a single file rotates mid-run and, via
// MaxRotatedFiles, the total bytes of trace data prune() retains
// (maxFileBytes * MaxRotatedFiles); a non-positive value falls back to
// DefaultMaxFileBytes.
func NewRecorder(basePath string, maxFileBytes int64) (*Recorder, error) {
	if basePath == "" {
		basePath = DefaultTraceDir
	}
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, err
	}
	return &Recorder{
		basePath:     basePath,
		maxFileBytes: maxFileBytes,
	}, nil
}

// Start begins a new trace file for runID and prunes the retained set
// against both MaxRotatedFiles and the aggregate byte budget.
func (r *Recorder) Start(runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}

	r.runID = runID
	if err := r.openNewFile(); err != nil {
		return fmt.Errorf("start trace: %w", err)
	}
	return r.prune()
}

// openNewFile creates a fresh trace file for the active runID, used both
// by Start and by a mid-run rotation once maxFileBytes is exceeded.
func (r *Recorder) openNewFile() error {
	millis := time.Now().UnixMilli()
	for {
		filename := fmt.Sprintf("trace_%s_%d.jsonl", r.runID, millis)
		f, err := os.OpenFile(filepath.Join(r.basePath, filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
		if os.IsExist(err) {
			// A file for this run already holds this millisecond; take the
			// next one instead of truncating it.
			millis++
			continue
		}
		if err != nil {
			return err
		}
		r.file = f
		r.written = 0
		return nil
	}
}

// LogTick appends one tick's snapshot and property values to the current
// trace file. It is a no-op if Start hasn't been called. The active file
// rotates to a new one under the same runID first if appending this tick
// would push it past maxFileBytes.
func (r *Recorder) LogTick(t ltl.Time, snapshot []byte, values []scripting.PropertyValue) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return
	}

	line, err := json.Marshal(TickRecord{
		Time:       t,
		RecordedAt: time.Now(),
		Snapshot:   snapshot,
		Properties: values,
	})
	if err != nil {
		return
	}
	line = append(line, '\n')

	if r.written > 0 && r.written+int64(len(line)) > r.maxFileBytes {
		if err := r.rotateMidRun(); err != nil {
			return
		}
	}

	n, err := r.file.Write(line)
	if err != nil {
		return
	}
	r.written += int64(n)
}

// rotateMidRun closes the current file, opens a new one under the same
// runID, and re-prunes the retained set, which now includes the file just
// closed at its full size and the new, still empty one.
func (r *Recorder) rotateMidRun() error {
	if r.file != nil {
		_ = r.file.Close()
	}
	if err := r.openNewFile(); err != nil {
		return err
	}
	return r.prune()
}

// traceFile pairs a retained trace's path and size with the timestamp
// embedded in its filename.
type traceFile struct {
	path    string
	size    int64
	created time.Time
}

// prune removes the oldest trace files until both limits hold: at most
// MaxRotatedFiles files, and at most maxFileBytes*MaxRotatedFiles of trace
// data total.
func (r *Recorder) prune() error {
	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return err
	}

	var traces []traceFile
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		millis, ok := parseTraceTimestamp(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		traces = append(traces, traceFile{
			path:    filepath.Join(r.basePath, e.Name()),
			size:    info.Size(),
			created: time.UnixMilli(millis),
		})
		total += info.Size()
	}

	sort.Slice(traces, func(i, j int) bool {
		return traces[i].created.Before(traces[j].created)
	})

	budget := r.maxFileBytes * MaxRotatedFiles
	for len(traces) > 0 && (len(traces) > MaxRotatedFiles || total > budget) {
		oldest := traces[0]
		if err := os.Remove(oldest.path); err == nil {
			total -= oldest.size
		}
		traces = traces[1:]
	}
	return nil
}

// parseTraceTimestamp extracts the unix-millis timestamp embedded in a
// trace_<runID>_<unixMillis>.jsonl filename.
func parseTraceTimestamp(name string) (int64, bool) {
	m := traceFilePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	millis, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return millis, true
}

// Close finishes the current trace file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
