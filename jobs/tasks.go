// Package jobs runs the periodic maintenance work the modules need but never
// do inline: cart expiry sweeps, reorder scans and the learning digest.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExpireCarts sweeps expired live-shopping carts.
	TaskExpireCarts = "liveshop:expire_carts"
	// TaskReorderScan reports products at or below their reorder level.
	TaskReorderScan = "inventory:reorder_scan"
	// TaskLearningDigest summarises the learning log and prunes the archive.
	TaskLearningDigest = "learning:digest"
)

// ExpireCartsPayload carries scheduling metadata.
type ExpireCartsPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewExpireCartsTask constructs an Asynq task for the cart sweep.
func NewExpireCartsTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ExpireCartsPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpireCarts, body, asynq.Queue(QueueDefault)), nil
}

// ReorderScanPayload carries scheduling metadata.
type ReorderScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewReorderScanTask constructs an Asynq task for the reorder scan.
func NewReorderScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ReorderScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReorderScan, body, asynq.Queue(QueueDefault)), nil
}

// LearningDigestPayload tunes how far back the archive is kept.
type LearningDigestPayload struct {
	KeepDays int `json:"keep_days"`
}

// NewLearningDigestTask constructs an Asynq task for the learning digest.
func NewLearningDigestTask(keepDays int) (*asynq.Task, error) {
	body, err := json.Marshal(LearningDigestPayload{KeepDays: keepDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLearningDigest, body, asynq.Queue(QueueDefault)), nil
}
