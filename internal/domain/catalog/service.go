package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/claimdesk/claimdesk/internal/platform/apperror"
)

type Service struct {
	providers ProviderRepository
	barriers  BarrierOptionRepository
}

func NewService(providers ProviderRepository, barriers BarrierOptionRepository) *Service {
	return &Service{providers: providers, barriers: barriers}
}

// -- Providers --

func (s *Service) CreateProvider(ctx context.Context, p *Provider) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperror.New(apperror.KindInvalid, "provider name is required")
	}
	return s.providers.Create(ctx, p)
}

func (s *Service) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return s.providers.GetByID(ctx, id)
}

func (s *Service) ListProviders(ctx context.Context, activeOnly bool, limit, offset int) ([]*Provider, int, error) {
	return s.providers.List(ctx, activeOnly, limit, offset)
}

// -- Barrier options --

func (s *Service) CreateBarrierOption(ctx context.Context, b *BarrierOption) error {
	b.Label = strings.TrimSpace(b.Label)
	if b.Label == "" {
		return apperror.New(apperror.KindInvalid, "barrier label is required")
	}
	if strings.TrimSpace(b.Category) == "" {
		b.Category = "General"
	}
	return s.barriers.Create(ctx, b)
}

func (s *Service) ListBarrierOptions(ctx context.Context, activeOnly bool) ([]*BarrierOption, error) {
	return s.barriers.List(ctx, activeOnly)
}

// -- Reference validation --

// ValidateProviderIDs fails with a ReferenceError naming the first id that
// is not in the provider catalog.
func (s *Service) ValidateProviderIDs(ctx context.Context, ids []uuid.UUID) error {
	return validateIDs(ctx, "provider", ids, s.providers.ExistingIDs)
}

// ValidateBarrierIDs fails with a ReferenceError naming the first id that is
// not in the barrier catalog.
func (s *Service) ValidateBarrierIDs(ctx context.Context, ids []uuid.UUID) error {
	return validateIDs(ctx, "barrier option", ids, s.barriers.ExistingIDs)
}

func validateIDs(ctx context.Context, entity string, ids []uuid.UUID,
	lookup func(context.Context, []uuid.UUID) ([]uuid.UUID, error)) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := lookup(ctx, ids)
	if err != nil {
		return fmt.Errorf("validate %s ids: %w", entity, err)
	}
	known := make(map[uuid.UUID]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	for _, id := range ids {
		if !known[id] {
			return &apperror.Error{
				Kind:    apperror.KindReferenceError,
				Message: fmt.Sprintf("unknown %s %s", entity, id),
				Reason:  "unknown_" + strings.ReplaceAll(entity, " ", "_"),
			}
		}
	}
	return nil
}
