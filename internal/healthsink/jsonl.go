// Package healthsink provides a minimal health-record sink for the daemon:
// confirmed measurements are appended to a JSON-lines file. A platform
// integration replaces this with its structured health-record store.
package healthsink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/srg/vitalink/internal/measurement"
)

// JSONL appends measurements to a newline-delimited JSON file.
type JSONL struct {
	mu   sync.Mutex
	path string
}

// NewJSONL creates the sink, creating parent directories as needed.
func NewJSONL(path string) (*JSONL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sink directory: %w", err)
	}
	return &JSONL{path: path}, nil
}

// AddMeasurement appends one normalized measurement.
func (s *JSONL) AddMeasurement(_ context.Context, m measurement.ProcessedHealthMeasurement) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode measurement: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open measurement log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append measurement: %w", err)
	}
	return f.Sync()
}
