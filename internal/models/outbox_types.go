package models

import (
	"database/sql"
	"time"
)

// Outbox job types and statuses. Jobs are written in the same transaction as
// the order-status update and drained by the background worker.
const (
	JobTypeCashback = "cashback"
	JobTypeEmail    = "email"
	JobTypePush     = "push"

	JobStatusPending = "pending"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// OutboxJob is the model for the 'outbox_jobs' table. Reference is unique
// per (type, order reference) so a replayed webhook cannot enqueue twice.
type OutboxJob struct {
	ID        int64          `json:"id" db:"id"`
	JobType   string         `json:"jobType" db:"job_type"`
	Reference string         `json:"reference" db:"reference"`
	Payload   string         `json:"payload" db:"payload"`
	Status    string         `json:"status" db:"status"`
	Attempts  int            `json:"attempts" db:"attempts"`
	LastError sql.NullString `json:"lastError,omitempty" db:"last_error"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time      `json:"updatedAt" db:"updated_at"`
}
