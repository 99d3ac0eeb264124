package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/doculedger/doculedger/internal/inventory"
)

// CatalogSyncJob applies committed line items to the external catalog.
// The enqueue side is fire and forget; a failed run here is retried by
// asynq and never reported back to the committing user.
type CatalogSyncJob struct {
	service *inventory.Service
	logger  *slog.Logger
}

// NewCatalogSyncJob constructs the handler.
func NewCatalogSyncJob(service *inventory.Service, logger *slog.Logger) *CatalogSyncJob {
	return &CatalogSyncJob{service: service, logger: logger}
}

// Handle processes TaskCatalogSync tasks.
func (j *CatalogSyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload CatalogSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.OwnerID <= 0 || len(payload.Items) == 0 {
		return asynq.SkipRetry
	}
	if err := j.service.Sync(ctx, payload.OwnerID, payload.Items); err != nil {
		return err
	}
	return nil
}
