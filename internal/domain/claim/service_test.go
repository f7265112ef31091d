package claim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/claimdesk/claimdesk/internal/platform/apperror"
)

// -- Mock Repository --

type mockClaimRepo struct {
	items map[uuid.UUID]*Claim
}

func newMockClaimRepo() *mockClaimRepo {
	return &mockClaimRepo{items: make(map[uuid.UUID]*Claim)}
}

func (m *mockClaimRepo) Create(_ context.Context, c *Claim) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.items[c.ID] = c
	return nil
}

func (m *mockClaimRepo) GetByID(_ context.Context, id uuid.UUID) (*Claim, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, apperror.NotFound("claim", id)
	}
	cp := *c
	return &cp, nil
}

func (m *mockClaimRepo) Update(_ context.Context, c *Claim) error {
	existing, ok := m.items[c.ID]
	if !ok {
		return apperror.NotFound("claim", c.ID)
	}
	status := existing.Status
	cp := *c
	cp.Status = status
	m.items[c.ID] = &cp
	return nil
}

func (m *mockClaimRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	c, ok := m.items[id]
	if !ok {
		return apperror.NotFound("claim", id)
	}
	c.Status = status
	return nil
}

func (m *mockClaimRepo) List(_ context.Context, status Status, limit, offset int) ([]*Claim, int, error) {
	var out []*Claim
	for _, c := range m.items {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func newTestService() (*Service, *mockClaimRepo) {
	repo := newMockClaimRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func createOpenClaim(t *testing.T, svc *Service) *Claim {
	t.Helper()
	c := &Claim{ClaimantName: "Jane Roe"}
	if err := svc.CreateClaim(context.Background(), c); err != nil {
		t.Fatalf("create claim: %v", err)
	}
	return c
}

func TestCreateClaim(t *testing.T) {
	svc, _ := newTestService()
	ref := time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)
	c := &Claim{ClaimantName: "  Jane Roe ", ReferralDate: &ref, Status: StatusClosed}
	if err := svc.CreateClaim(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusOpen {
		t.Errorf("expected new claim to be open, got %s", c.Status)
	}
	if c.ClaimantName != "Jane Roe" {
		t.Errorf("expected trimmed name, got %q", c.ClaimantName)
	}
	if !c.ReferralDate.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected referral date truncated to the day, got %v", c.ReferralDate)
	}
}

func TestCreateClaim_RequiresName(t *testing.T) {
	svc, _ := newTestService()
	err := svc.CreateClaim(context.Background(), &Claim{})
	if !errors.Is(err, apperror.ErrInvalid) {
		t.Errorf("expected invalid error, got %v", err)
	}
}

func TestSetClosure_ClosesAndReopens(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	c := createOpenClaim(t, svc)
	reportID := uuid.New()

	got, err := svc.SetClosure(ctx, c.ID, reportID, true)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if got.Status != StatusClosed || repo.items[c.ID].Status != StatusClosed {
		t.Fatalf("expected closed claim, got %s", got.Status)
	}

	got, err = svc.SetClosure(ctx, c.ID, reportID, false)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got.Status != StatusOpen {
		t.Errorf("expected open claim, got %s", got.Status)
	}
}

func TestSetClosure_AlreadyInTargetState(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	c := createOpenClaim(t, svc)

	got, err := svc.SetClosure(ctx, c.ID, uuid.New(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusOpen {
		t.Errorf("expected claim to stay open, got %s", got.Status)
	}
}

func TestSetClosure_UnknownClaim(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.SetClosure(context.Background(), uuid.New(), uuid.New(), true)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestReopen_RejectsOpenClaim(t *testing.T) {
	svc, _ := newTestService()
	c := createOpenClaim(t, svc)
	_, err := svc.Reopen(context.Background(), c.ID)
	if !errors.Is(err, apperror.ErrInvalidClaimState) {
		t.Errorf("expected invalid claim state, got %v", err)
	}
}

func TestUpdateClaim_KeepsStatus(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	c := createOpenClaim(t, svc)
	if _, err := svc.SetClosure(ctx, c.ID, uuid.New(), true); err != nil {
		t.Fatalf("close: %v", err)
	}

	edit := &Claim{ID: c.ID, ClaimantName: "Jane Q. Roe", Status: StatusOpen}
	if err := svc.UpdateClaim(ctx, edit); err != nil {
		t.Fatalf("update: %v", err)
	}
	if repo.items[c.ID].Status != StatusClosed {
		t.Error("expected update to leave status untouched")
	}
	if repo.items[c.ID].ClaimantName != "Jane Q. Roe" {
		t.Errorf("expected name updated, got %q", repo.items[c.ID].ClaimantName)
	}
}

func TestListClaims_InvalidStatus(t *testing.T) {
	svc, _ := newTestService()
	_, _, err := svc.ListClaims(context.Background(), Status("archived"), 20, 0)
	if !errors.Is(err, apperror.ErrInvalid) {
		t.Errorf("expected invalid error, got %v", err)
	}
}
