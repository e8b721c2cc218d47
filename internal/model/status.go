package model

// Status is the processing state of a unit.
type Status string

const (
	StatusPending    Status = "pending"
	StatusFetching   Status = "fetching"
	StatusCompleted  Status = "completed"
	StatusIncomplete Status = "incomplete"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status ends processing of a unit for a pass.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusIncomplete, StatusFailed:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusFetching, StatusCompleted, StatusIncomplete, StatusFailed:
		return true
	default:
		return false
	}
}

// UnitStatus computes the terminal status of a unit after its assets were
// processed.
//
// All assets present → completed. Nothing downloaded while some assets were
// queued for a retry → failed. Anything else → incomplete, so a later run
// resumes from exactly the missing assets.
func UnitStatus(downloaded, queued, total int) Status {
	switch {
	case total > 0 && downloaded == total:
		return StatusCompleted
	case downloaded == 0 && queued > 0:
		return StatusFailed
	default:
		return StatusIncomplete
	}
}
