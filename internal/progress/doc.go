// Package progress persists per-unit download status across runs.
//
// A Store maps a unit key (its id or URL) to a model.Status. Every Set is
// durable before it returns, so a crash or cancellation never loses a
// completed unit and never leaves a half-written progress file.
//
// Two backends are available:
//   - "file": a single JSON object rewritten atomically on every Set
//   - "badger": an embedded Badger database through badgerhold
//
// # Basic Usage
//
//	store, err := progress.Open(progress.BackendFile, "downloads/progress.json")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	status, ok, err := store.Get(unit.Key())
//	if err != nil {
//	    return err
//	}
//	if ok && status == model.StatusCompleted {
//	    // skip
//	}
//	err = store.Set(unit.Key(), model.StatusCompleted)
package progress
