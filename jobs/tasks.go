package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/doculedger/doculedger/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogSync applies committed line items to the catalog.
	TaskCatalogSync = "catalog:sync"
	// TaskStagingSweep removes orphaned staging artifacts.
	TaskStagingSweep = "staging:sweep"
)

// CatalogSyncPayload carries the committed lines to synchronize.
type CatalogSyncPayload struct {
	OwnerID int64                  `json:"owner_id"`
	Items   []inventory.UpsertItem `json:"items"`
}

// NewCatalogSyncTask builds a catalog sync task.
func NewCatalogSyncTask(payload CatalogSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogSync, data, asynq.Queue(QueueDefault)), nil
}

// StagingSweepPayload configures one sweep run.
type StagingSweepPayload struct {
	OlderThanHours int `json:"older_than_hours"`
}

// NewStagingSweepTask builds a staging sweep task.
func NewStagingSweepTask(olderThanHours int) (*asynq.Task, error) {
	data, err := json.Marshal(StagingSweepPayload{OlderThanHours: olderThanHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStagingSweep, data, asynq.Queue(QueueDefault)), nil
}
