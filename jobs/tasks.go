package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInventoryImport fetches a remote payload and reconciles it into a
	// user's product collection.
	TaskInventoryImport = "inventory:import"
	// TaskAlertScan evaluates inventory alerts for every user.
	TaskAlertScan = "inventory:alert_scan"
)

// ImportPayload identifies the target user and the resolved download URL.
type ImportPayload struct {
	UserID      string    `json:"user_id"`
	URL         string    `json:"url"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewImportTask constructs an Asynq task for a remote import.
func NewImportTask(payload ImportPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryImport, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// AlertScanPayload records what triggered a scan: a cron spec or "manual".
type AlertScanPayload struct {
	Trigger string `json:"trigger"`
}

// NewAlertScanTask constructs an Asynq task for an alert scan.
func NewAlertScanTask(trigger string) (*asynq.Task, error) {
	body, err := json.Marshal(AlertScanPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAlertScan, body, asynq.Queue(QueueDefault)), nil
}
