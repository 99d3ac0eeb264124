package suppliers

import (
	"context"
	"strings"
)

// Service validates and forwards supplier operations to the repository.
type Service struct {
	repo Repository
}

// NewService constructs the supplier service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, ownerID int64) ([]Supplier, error) {
	return s.repo.List(ctx, ownerID)
}

func (s *Service) Get(ctx context.Context, ownerID, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, ErrValidation
	}
	return s.repo.Get(ctx, ownerID, id)
}

func (s *Service) Create(ctx context.Context, ownerID int64, input NewSupplier) (Supplier, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Supplier{}, ErrValidation
	}
	return s.repo.Create(ctx, ownerID, input)
}

func (s *Service) Update(ctx context.Context, ownerID, id int64, fields UpdateFields) error {
	if id <= 0 {
		return ErrValidation
	}
	if fields.TermsLabel == nil && fields.TaxID == nil {
		// Nothing changed; avoid the no-op write.
		return nil
	}
	return s.repo.Update(ctx, ownerID, id, fields)
}
