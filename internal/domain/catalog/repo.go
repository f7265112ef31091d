package catalog

import (
	"context"

	"github.com/google/uuid"
)

type ProviderRepository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Provider, int, error)
	// ExistingIDs returns the subset of ids present in the catalog.
	ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type BarrierOptionRepository interface {
	Create(ctx context.Context, b *BarrierOption) error
	GetByID(ctx context.Context, id uuid.UUID) (*BarrierOption, error)
	List(ctx context.Context, activeOnly bool) ([]*BarrierOption, error)
	ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}
