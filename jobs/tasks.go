package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExpiringGrants is the task type for the expiring-grant scan.
	TaskExpiringGrants = "authz:expiring_grants"
)

// ExpiringGrantsPayload configures the expiring-grant scan window.
type ExpiringGrantsPayload struct {
	WindowHours int `json:"window_hours"`
}

// NewExpiringGrantsTask constructs an Asynq task.
func NewExpiringGrantsTask(payload ExpiringGrantsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpiringGrants, data), nil
}
