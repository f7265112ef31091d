package catalog

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/claimdesk/claimdesk/internal/platform/apperror"
)

// -- Mock Repositories --

type mockProviderRepo struct {
	items map[uuid.UUID]*Provider
}

func newMockProviderRepo() *mockProviderRepo {
	return &mockProviderRepo{items: make(map[uuid.UUID]*Provider)}
}

func (m *mockProviderRepo) Create(_ context.Context, p *Provider) error {
	p.ID = uuid.New()
	m.items[p.ID] = p
	return nil
}

func (m *mockProviderRepo) GetByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, apperror.NotFound("provider", id)
	}
	return p, nil
}

func (m *mockProviderRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*Provider, int, error) {
	var result []*Provider
	for _, p := range m.items {
		if activeOnly && !p.IsActive {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, len(result), nil
}

func (m *mockProviderRepo) ExistingIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var found []uuid.UUID
	for _, id := range ids {
		if _, ok := m.items[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

type mockBarrierRepo struct {
	items map[uuid.UUID]*BarrierOption
}

func newMockBarrierRepo() *mockBarrierRepo {
	return &mockBarrierRepo{items: make(map[uuid.UUID]*BarrierOption)}
}

func (m *mockBarrierRepo) Create(_ context.Context, b *BarrierOption) error {
	b.ID = uuid.New()
	m.items[b.ID] = b
	return nil
}

func (m *mockBarrierRepo) GetByID(_ context.Context, id uuid.UUID) (*BarrierOption, error) {
	b, ok := m.items[id]
	if !ok {
		return nil, apperror.NotFound("barrier option", id)
	}
	return b, nil
}

func (m *mockBarrierRepo) List(_ context.Context, activeOnly bool) ([]*BarrierOption, error) {
	var result []*BarrierOption
	for _, b := range m.items {
		if activeOnly && !b.IsActive {
			continue
		}
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result, nil
}

func (m *mockBarrierRepo) ExistingIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var found []uuid.UUID
	for _, id := range ids {
		if _, ok := m.items[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

func newTestService() *Service {
	return NewService(newMockProviderRepo(), newMockBarrierRepo())
}

func TestCreateProvider_RequiresName(t *testing.T) {
	svc := newTestService()
	err := svc.CreateProvider(context.Background(), &Provider{Name: "   "})
	if !errors.Is(err, apperror.ErrInvalid) {
		t.Errorf("expected invalid error, got %v", err)
	}
}

func TestCreateBarrierOption_DefaultsCategory(t *testing.T) {
	svc := newTestService()
	b := &BarrierOption{Label: "Transportation", IsActive: true}
	if err := svc.CreateBarrierOption(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Category != "General" {
		t.Errorf("expected General category, got %q", b.Category)
	}
	if b.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
}

func TestValidateProviderIDs(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := &Provider{Name: "Dr. Lane", IsActive: true}
	if err := svc.CreateProvider(ctx, p); err != nil {
		t.Fatalf("create provider: %v", err)
	}

	if err := svc.ValidateProviderIDs(ctx, []uuid.UUID{p.ID}); err != nil {
		t.Errorf("expected known provider to validate, got %v", err)
	}
	if err := svc.ValidateProviderIDs(ctx, nil); err != nil {
		t.Errorf("expected empty list to validate, got %v", err)
	}

	err := svc.ValidateProviderIDs(ctx, []uuid.UUID{p.ID, uuid.New()})
	if !errors.Is(err, apperror.ErrReferenceError) {
		t.Errorf("expected reference error, got %v", err)
	}
}

func TestValidateBarrierIDs(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	b := &BarrierOption{Label: "Language", IsActive: true}
	if err := svc.CreateBarrierOption(ctx, b); err != nil {
		t.Fatalf("create barrier: %v", err)
	}

	if err := svc.ValidateBarrierIDs(ctx, []uuid.UUID{b.ID}); err != nil {
		t.Errorf("expected known barrier to validate, got %v", err)
	}
	err := svc.ValidateBarrierIDs(ctx, []uuid.UUID{uuid.New()})
	if apperror.KindOf(err) != apperror.KindReferenceError {
		t.Errorf("expected reference error kind, got %v", err)
	}
}

func TestGroupBarriers(t *testing.T) {
	opts := []*BarrierOption{
		{Label: "Transportation", Category: "Social"},
		{Label: "Pain", Category: ""},
		{Label: "Childcare", Category: "Social"},
	}
	grouped := GroupBarriers(opts)
	if len(grouped["Social"]) != 2 || grouped["Social"][0].Label != "Transportation" {
		t.Errorf("unexpected Social group: %+v", grouped["Social"])
	}
	if len(grouped["General"]) != 1 {
		t.Errorf("expected uncategorized option under General, got %+v", grouped["General"])
	}
}
