package domain

// Import job lifecycle as seen by the worker. Terminal states are idempotent
// to re-apply: a redelivered message re-running the pipeline overwrites the
// record with equivalent final values.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// JobMessage is the job descriptor consumed from the queue
type JobMessage struct {
	JobID       string `json:"jobId"`
	StorageKey  string `json:"storageKey"`
	UploaderID  int64  `json:"uploaderId"`
	DeliveryTag uint64 `json:"-"`
}

// StuckJob identifies a job left in processing past the sweep threshold
type StuckJob struct {
	JobID      string `db:"id"`
	StorageKey string `db:"storage_key"`
	UploaderID int64  `db:"uploader_id"`
}
