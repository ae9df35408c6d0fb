package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBillingOverdueSync flips issued invoices past their due date.
	TaskBillingOverdueSync = "billing:overdue_sync"
)

// OverdueSyncPayload carries optional parameters for the overdue sync task.
type OverdueSyncPayload struct {
	// Reason records what triggered the run, for the job log.
	Reason string `json:"reason,omitempty"`
}

// NewOverdueSyncTask constructs an Asynq task.
func NewOverdueSyncTask(payload OverdueSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBillingOverdueSync, data), nil
}
