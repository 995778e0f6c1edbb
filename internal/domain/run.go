package domain

// ComputeRun records one execution of the feature pipeline.
// Corresponds to compute_runs table in PostgreSQL.
type ComputeRun struct {
	RunID         string   // PRIMARY KEY
	StartedAtMs   int64    // run start timestamp (ms)
	CompletedAtMs *int64   // nil while the run is in progress
	Status        string   // RUNNING | COMPLETED | FAILED
	Instruments   int      // instruments processed
	Features      []string // parameterized feature names computed
	PointsWritten int      // feature points persisted
	Error         *string  // first failure message, nil on success
}

// Run status constants.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)
