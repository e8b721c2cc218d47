package progress

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/handiism/neko-downloader/internal/model"
)

// unitRecord is the badgerhold row for one unit.
type unitRecord struct {
	Key       string `badgerhold:"key"`
	Status    model.Status
	UpdatedAt time.Time
}

// BadgerStore keeps progress in an embedded Badger database. Writes are
// synced before Set returns.
type BadgerStore struct {
	store *badgerhold.Store
}

// OpenBadger opens or creates the database in dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create progress database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil
	options.SyncWrites = true

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open progress database %s: %w", dir, err)
	}
	return &BadgerStore{store: store}, nil
}

func (s *BadgerStore) Get(key string) (model.Status, bool, error) {
	var rec unitRecord
	err := s.store.Get(key, &rec)
	switch {
	case errors.Is(err, badgerhold.ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("read progress for %s: %w", key, err)
	}
	return rec.Status, true, nil
}

func (s *BadgerStore) Set(key string, status model.Status) error {
	rec := unitRecord{Key: key, Status: status, UpdatedAt: time.Now()}
	if err := s.store.Upsert(key, &rec); err != nil {
		return fmt.Errorf("save progress for %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Snapshot() map[string]model.Status {
	var recs []unitRecord
	if err := s.store.Find(&recs, nil); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return map[string]model.Status{}
	}

	out := make(map[string]model.Status, len(recs))
	for _, rec := range recs {
		out[rec.Key] = rec.Status
	}
	return out
}

func (s *BadgerStore) Close() error {
	return s.store.Close()
}
