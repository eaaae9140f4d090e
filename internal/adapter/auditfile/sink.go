// Package auditfile appends audit records to date-partitioned JSONL files.
// It is the hook-mode default: greppable, append-only, no daemon required.
package auditfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain/event"
)

// Sink implements auditsink.Sink on a directory of JSONL files, one file per
// UTC day.
type Sink struct {
	dir string

	mu   sync.Mutex
	name string
	f    *os.File
}

// New creates the sink, ensuring the directory exists.
func New(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &Sink{dir: dir}, nil
}

// Emit appends one record as a single JSON line.
func (s *Sink) Emit(_ context.Context, rec *event.AuditRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.file(rec.Timestamp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// Close closes the currently open file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.name = ""
	return err
}

// file returns the handle for the record's day, rolling over at midnight UTC.
func (s *Sink) file(ts time.Time) (*os.File, error) {
	if ts.IsZero() {
		ts = time.Now()
	}
	name := filepath.Join(s.dir, "audit-"+ts.UTC().Format("2006-01-02")+".jsonl")
	if s.f != nil && s.name == name {
		return s.f, nil
	}
	if s.f != nil {
		_ = s.f.Close()
	}

	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	s.f = f
	s.name = name
	return f, nil
}
