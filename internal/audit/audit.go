// Package audit implements the append-only, newline-delimited-JSON audit
// sink (spec §3 AuditEvent, §6.3). One file per event kind; the sink owns
// its own serialization so concurrent requests may append without races
// (spec §5).
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind enumerates the AuditEvent kinds named in spec §3.
type Kind string

const (
	KindAuthAttempt    Kind = "auth_attempt"
	KindAccessDecision Kind = "access_decision"
	KindQueryCompleted Kind = "query_completed"
)

// Event is a self-contained audit record. Fields is kind-specific payload.
type Event struct {
	Kind      Kind                   `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Username  string                 `json:"username"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Sink appends events to one newline-delimited JSON file per kind.
type Sink struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	files map[Kind]*os.File
}

// NewSink creates the sink, ensuring dir exists. Files are opened lazily on
// first use of each kind so the directory stays clean of empty files.
func NewSink(dir string, logger *zap.Logger) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create sink dir: %w", err)
	}
	return &Sink{dir: dir, logger: logger, files: make(map[Kind]*os.File)}, nil
}

// Emit appends a single event with one write attempt. A marshal, open or
// write failure is logged and the event is dropped, not retried: audit
// delivery never fails the caller's request.
func (s *Sink) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("audit: marshal event failed", zap.Error(err), zap.String("kind", string(evt.Kind)))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.fileFor(evt.Kind)
	if err != nil {
		s.logger.Error("audit: open sink file failed", zap.Error(err), zap.String("kind", string(evt.Kind)))
		return
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		s.logger.Error("audit: write event failed", zap.Error(err), zap.String("kind", string(evt.Kind)))
	}
}

func (s *Sink) fileFor(kind Kind) (*os.File, error) {
	if f, ok := s.files[kind]; ok {
		return f, nil
	}
	path := filepath.Join(s.dir, string(kind)+".ndjson")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	s.files[kind] = f
	return f, nil
}

// Close flushes and closes every open sink file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
