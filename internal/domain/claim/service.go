package claim

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/claimdesk/claimdesk/internal/platform/apperror"
	"github.com/claimdesk/claimdesk/internal/platform/metrics"
)

type Service struct {
	claims  ClaimRepository
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewService(claims ClaimRepository, logger zerolog.Logger) *Service {
	return &Service{claims: claims, logger: logger}
}

func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }

func (s *Service) CreateClaim(ctx context.Context, c *Claim) error {
	c.ClaimantName = strings.TrimSpace(c.ClaimantName)
	if c.ClaimantName == "" {
		return apperror.New(apperror.KindInvalid, "claimant_name is required")
	}
	// New claims always start open; closure happens through reports.
	c.Status = StatusOpen
	if c.ReferralDate != nil {
		d := dateOnly(*c.ReferralDate)
		c.ReferralDate = &d
	}
	return s.claims.Create(ctx, c)
}

func (s *Service) GetClaim(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.claims.GetByID(ctx, id)
}

func (s *Service) UpdateClaim(ctx context.Context, c *Claim) error {
	c.ClaimantName = strings.TrimSpace(c.ClaimantName)
	if c.ClaimantName == "" {
		return apperror.New(apperror.KindInvalid, "claimant_name is required")
	}
	if c.ReferralDate != nil {
		d := dateOnly(*c.ReferralDate)
		c.ReferralDate = &d
	}
	return s.claims.Update(ctx, c)
}

func (s *Service) ListClaims(ctx context.Context, status Status, limit, offset int) ([]*Claim, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, apperror.New(apperror.KindInvalid, "invalid status %q", status)
	}
	return s.claims.List(ctx, status, limit, offset)
}

// SetClosure moves the claim to match whether reportID is an active closure
// report: active closes an open claim, inactive reopens a closed one. A
// claim already in the target state is left alone. The report itself is
// checked by the report engine, which calls this under the claim lock.
func (s *Service) SetClosure(ctx context.Context, claimID, reportID uuid.UUID, active bool) (*Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	t, target := TransitionReopen, StatusOpen
	if active {
		t, target = TransitionClose, StatusClosed
	}
	if c.Status == target {
		return c, nil
	}
	return s.transition(ctx, c, t, reportID)
}

// Reopen is the administrative reopen. Unlike SetClosure it rejects a claim
// that is already open.
func (s *Service) Reopen(ctx context.Context, claimID uuid.UUID) (*Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, c, TransitionReopen, uuid.Nil)
}

func (s *Service) transition(ctx context.Context, c *Claim, t Transition, reportID uuid.UUID) (*Claim, error) {
	next, err := c.Status.Apply(t)
	if err != nil {
		return nil, err
	}
	if err := s.claims.UpdateStatus(ctx, c.ID, next); err != nil {
		return nil, err
	}

	ev := s.logger.Info().
		Str("claim_id", c.ID.String()).
		Str("from", string(c.Status)).
		Str("to", string(next))
	if reportID != uuid.Nil {
		ev = ev.Str("report_id", reportID.String())
	}
	ev.Msg("claim status changed")
	s.metrics.ClaimTransitioned(string(next))

	c.Status = next
	return c, nil
}
