package inventory

import (
	"context"
	"log/slog"
)

// Service exposes catalog reads and the external-catalog sync write path.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the catalog service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Snapshot returns the current catalog for an owner.
func (s *Service) Snapshot(ctx context.Context, ownerID int64) ([]CatalogItem, error) {
	return s.repo.Snapshot(ctx, ownerID)
}

// Sync applies committed line items to the catalog. It is invoked from the
// background worker; callers never observe its outcome.
func (s *Service) Sync(ctx context.Context, ownerID int64, items []UpsertItem) error {
	if ownerID <= 0 || len(items) == 0 {
		return ErrValidation
	}
	if err := s.repo.Upsert(ctx, ownerID, items); err != nil {
		s.logger.Warn("catalog sync failed",
			slog.Int64("owner_id", ownerID),
			slog.Int("items", len(items)),
			slog.Any("error", err))
		return err
	}
	s.logger.Info("catalog sync applied",
		slog.Int64("owner_id", ownerID),
		slog.Int("items", len(items)))
	return nil
}
