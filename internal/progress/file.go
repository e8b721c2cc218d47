package progress

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	ioutils "github.com/handiism/neko-downloader/internal/io"
	"github.com/handiism/neko-downloader/internal/model"
)

// FileStore keeps progress in one JSON object, e.g.
//
//	{"https://site.example/chap-1": "completed", "c2": "incomplete"}
//
// Writes are serialized and each one replaces the file atomically.
type FileStore struct {
	path string

	mu      sync.Mutex
	entries map[string]model.Status
}

// OpenFile loads path, or starts empty when it does not exist.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, entries: make(map[string]model.Status)}

	data, err := ioutils.ReadFileIfExists(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("parse progress %s: %w", path, err)
	}
	if s.entries == nil {
		s.entries = make(map[string]model.Status)
	}
	return s, nil
}

func (s *FileStore) Get(key string) (model.Status, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.entries[key]
	return status, ok, nil
}

func (s *FileStore) Set(key string, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[key]
	s.entries[key] = status

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err == nil {
		err = ioutils.WriteFileAtomic(s.path, data)
	}
	if err != nil {
		if had {
			s.entries[key] = prev
		} else {
			delete(s.entries, key)
		}
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *FileStore) Snapshot() map[string]model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.entries)
}

// Close is a no-op; every Set is already on disk.
func (s *FileStore) Close() error {
	return nil
}
