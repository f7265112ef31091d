package report

import (
	"context"

	"github.com/google/uuid"
)

type ReportRepository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	Update(ctx context.Context, r *Report) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// ListByClaim returns the claim's non-deleted reports in no particular
	// order; Timeline does the ordering.
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Report, error)
}
