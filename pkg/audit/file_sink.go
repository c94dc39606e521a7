package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends audit entries to a local JSON-lines file. This is the
// default sink on-device; deployments with a central logging endpoint plug
// in their own Sink instead.
type FileSink struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	encoder *json.Encoder
}

// NewFileSink creates or opens dir/audit.log for appending
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	path := filepath.Join(dir, "audit.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &FileSink{
		path:    path,
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// Write appends an entry as one JSON line
func (s *FileSink) Write(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("audit log file is closed")
	}
	if err := s.encoder.Encode(entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// ReadEntries reads up to count entries from the log file; count <= 0 reads
// everything. Intended for support tooling and tests, not the hot path.
func (s *FileSink) ReadEntries(count int) ([]Entry, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	var entries []Entry
	decoder := json.NewDecoder(file)
	for {
		var entry Entry
		if err := decoder.Decode(&entry); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode audit entry: %w", err)
		}
		entries = append(entries, entry)
		if count > 0 && len(entries) >= count {
			break
		}
	}
	return entries, nil
}

// Close closes the underlying file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
