package syncer

import "time"

// Policy holds the retry and reconciliation constants shared by every entity service
type Policy struct {
	// An entity is FAILED once its operation failed more than this many times;
	// such operations are skipped by push until requeued.
	MaxFailedAttempts int

	// A pull is full when the last successful one is older than this.
	FullSyncThreshold time.Duration

	// Incremental pulls ask for changes since lastSync minus this buffer.
	IncrementalBuffer time.Duration

	// Attempts per pull mode before giving up (incremental then falls back to one full sync).
	MaxPullAttempts int

	// Linear backoff between pull attempts: unit * attempt.
	BackoffUnit time.Duration

	// Upper bound on cached rows removed by one deletion cleanup.
	MaxCleanupDeletions int
}

func DefaultPolicy() Policy {
	return Policy{
		MaxFailedAttempts:   5,
		FullSyncThreshold:   24 * time.Hour,
		IncrementalBuffer:   45 * time.Minute,
		MaxPullAttempts:     3,
		BackoffUnit:         time.Second,
		MaxCleanupDeletions: 500,
	}
}
