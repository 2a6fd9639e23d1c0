// Package logx is the per-driver logger design note of spec.md §9: "the
// source routes solver logging through a mutable process-wide log sink.
// Re-architect this as a per-driver logger passed by argument." It
// generalizes github.com/costela/golpa's single-method Logger interface
// into a Sink that owns serialization and ordering, and adds the
// status-marker vocabulary of spec.md §6.
package logx

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Sink is the destination a Logger writes totally-ordered lines to
// (spec.md §5: "if the implementation uses a separate log sink, writes
// must be serialized and each record must carry a monotonic timestamp").
type Sink interface {
	Write(line string)
	Flush() error
}

// writerSink adapts any io.Writer (a file, stderr, a test buffer) into a
// Sink, serializing writes behind a mutex.
type writerSink struct {
	mu sync.Mutex
	w  io.Writer
	f  *os.File // non-nil when w owns a file that must be closed/flushed
}

// NewFileSink opens path for appending status/solver log lines. An empty
// path falls back to stderr, matching the CLI default when -l/--log is
// not given.
func NewFileSink(path string) (Sink, error) {
	if path == "" {
		return &writerSink{w: os.Stderr}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", path, err)
	}
	return &writerSink{w: f, f: f}, nil
}

func (s *writerSink) Write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, line)
}

func (s *writerSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f != nil {
		return s.f.Sync()
	}
	return nil
}

// Logger is the per-run logger every driver and the milp oracle share.
// It implements milp.Logger's single Print method so it can be handed
// straight to milp.WithLogger, and it serializes every line (driver
// status events and lp_solve's own log callback alike) through one
// mutex and one monotonic sequence number so concurrent writers never
// interleave mid-line.
type Logger struct {
	mu   sync.Mutex
	sink Sink
	seq  uint64
}

// New wraps sink in a Logger. A nil sink discards everything.
func New(sink Sink) *Logger {
	return &Logger{sink: sink}
}

func (l *Logger) emit(line string) {
	if l == nil || l.sink == nil {
		return
	}
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.mu.Unlock()
	l.sink.Write(fmt.Sprintf("%s [%06d] %s", time.Now().UTC().Format(time.RFC3339Nano), seq, line))
}

// Print implements milp.Logger, so *Logger can be passed directly to
// milp.WithLogger to route lp_solve's own log callback through the same
// ordered sink as driver status events.
func (l *Logger) Print(v ...interface{}) {
	l.emit(fmt.Sprint(v...))
}

// Printf writes a formatted driver log line.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.emit(fmt.Sprintf(format, v...))
}

// Flush flushes the underlying sink, if any.
func (l *Logger) Flush() error {
	if l == nil || l.sink == nil {
		return nil
	}
	return l.sink.Flush()
}

// Status markers, spec.md §6: "single-line status markers parseable by
// external tools."

// LoadOK emits [LOAD:OK:N:T:F:G].
func (l *Logger) LoadOK(n, t, f, g int) {
	l.Printf("[LOAD:OK:%d:%d:%d:%d]", n, t, f, g)
}

// Merge emits [MERGE:N_before:N_after], or [MERGE:SKIP] when merged is false.
func (l *Logger) Merge(merged bool, nBefore, nAfter int) {
	if !merged {
		l.Printf("[MERGE:SKIP]")
		return
	}
	l.Printf("[MERGE:%d:%d]", nBefore, nAfter)
}

// StageStart emits [STAGE:<n>:START].
func (l *Logger) StageStart(stage int) {
	l.Printf("[STAGE:%d:START]", stage)
}

// StageDone emits [STAGE:<n>:DONE:obj:time:gap].
func (l *Logger) StageDone(stage int, objective float64, elapsed time.Duration, gap float64) {
	l.Printf("[STAGE:%d:DONE:%.2f:%.3f:%.6f]", stage, objective, elapsed.Seconds(), gap)
}

// Done emits [DONE:SUCCESS].
func (l *Logger) Done() {
	l.Printf("[DONE:SUCCESS]")
}
