package progress

import (
	"fmt"

	"github.com/handiism/neko-downloader/internal/model"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Store is a durable key → status map shared by all workers of a run.
type Store interface {
	// Get returns the recorded status of key. ok is false when nothing is
	// recorded; a non-nil error means the store could not be read.
	Get(key string) (status model.Status, ok bool, err error)

	// Set records status for key and persists it before returning.
	Set(key string, status model.Status) error

	// Snapshot returns a copy of every recorded status.
	Snapshot() map[string]model.Status

	Close() error
}

// Open opens the store for backend at path. For the file backend path is the
// JSON file; for badger it is the database directory.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return OpenFile(path)
	case BackendBadger:
		return OpenBadger(path)
	default:
		return nil, fmt.Errorf("unknown progress backend %q", backend)
	}
}
