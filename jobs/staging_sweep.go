package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/doculedger/doculedger/internal/documents"
)

// StagingSweepJob removes staging artifacts past the retention window,
// typically extractions that were never finalized.
type StagingSweepJob struct {
	repo      documents.Repository
	retention time.Duration
	logger    *slog.Logger
}

// NewStagingSweepJob constructs the handler.
func NewStagingSweepJob(repo documents.Repository, retention time.Duration, logger *slog.Logger) *StagingSweepJob {
	return &StagingSweepJob{repo: repo, retention: retention, logger: logger}
}

// Handle processes TaskStagingSweep tasks.
func (j *StagingSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload StagingSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	olderThan := j.retention
	if payload.OlderThanHours > 0 {
		olderThan = time.Duration(payload.OlderThanHours) * time.Hour
	}
	removed, err := j.repo.SweepStaging(ctx, olderThan)
	if err != nil {
		return err
	}
	if removed > 0 {
		j.logger.Info("staging sweep", slog.Int64("removed", removed))
	}
	return nil
}
