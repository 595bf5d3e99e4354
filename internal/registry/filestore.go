package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore persists paired-device records as a JSON file. Writes go
// through a temp file plus rename so a crash mid-write cannot truncate the
// record list.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at path, creating parent directories as
// needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// LoadDevices reads the record list. A missing file is an empty list, not an
// error.
func (s *FileStore) LoadDevices() ([]PairedDeviceInfo, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read device store: %w", err)
	}

	var devices []PairedDeviceInfo
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("failed to decode device store: %w", err)
	}
	return devices, nil
}

// SaveDevices atomically replaces the record list.
func (s *FileStore) SaveDevices(devices []PairedDeviceInfo) error {
	data, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode device store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write device store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace device store: %w", err)
	}
	return nil
}
