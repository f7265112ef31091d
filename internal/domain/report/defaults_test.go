package report

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claimdesk/claimdesk/internal/domain/claim"
	"github.com/claimdesk/claimdesk/internal/platform/apperror"
)

func TestDefaultDraft(t *testing.T) {
	referral := day("2025-01-10")
	today := time.Date(2025, 2, 3, 17, 45, 0, 0, time.UTC)
	prior := mkReport(TypeInitial, "2025-01-10", "2025-01-20", time.Time{})
	withPrior := NewTimeline(uuid.Nil, []*Report{prior})

	tests := []struct {
		name      string
		referral  *time.Time
		rt        ReportType
		tl        Timeline
		wantStart string
	}{
		{"initial uses referral date", &referral, TypeInitial, Timeline{}, "2025-01-10"},
		{"initial without referral uses today", nil, TypeInitial, Timeline{}, "2025-02-03"},
		{"progress starts day after prior", &referral, TypeProgress, withPrior, "2025-01-21"},
		{"closure starts day after prior", &referral, TypeClosure, withPrior, "2025-01-21"},
		{"progress without prior uses today", &referral, TypeProgress, Timeline{}, "2025-02-03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &claim.Claim{ID: uuid.New(), Status: claim.StatusOpen, ReferralDate: tt.referral}
			r, err := DefaultDraft(c, tt.rt, tt.tl, today)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !r.DOSStart.Equal(day(tt.wantStart)) {
				t.Errorf("expected dos_start %s, got %s", tt.wantStart, r.DOSStart.Format(dateLayout))
			}
			if !r.DOSEnd.Equal(day("2025-02-03")) {
				t.Errorf("expected dos_end today, got %s", r.DOSEnd.Format(dateLayout))
			}
			if r.NextReportDue != nil {
				t.Error("expected next_report_due unset")
			}
			if r.StatusTreatmentPlan != "" || r.WorkStatus != "" {
				t.Error("expected blank text fields")
			}
			if r.ClaimID != c.ID || r.ReportType != tt.rt {
				t.Error("expected claim and type set on draft")
			}
		})
	}
}

func TestDefaultDraft_Payload(t *testing.T) {
	c := &claim.Claim{ID: uuid.New(), Status: claim.StatusOpen}
	today := day("2025-02-03")

	in, _ := DefaultDraft(c, TypeInitial, Timeline{}, today)
	if in.Initial == nil || in.Closure != nil {
		t.Error("expected initial payload only")
	}
	pr, _ := DefaultDraft(c, TypeProgress, Timeline{}, today)
	if pr.Initial != nil || pr.Closure != nil {
		t.Error("expected no payload on progress")
	}
	cl, _ := DefaultDraft(c, TypeClosure, Timeline{}, today)
	if cl.Closure == nil || cl.Initial != nil {
		t.Error("expected closure payload only")
	}
}

func TestDefaultDraft_ClosedClaim(t *testing.T) {
	c := &claim.Claim{ID: uuid.New(), Status: claim.StatusClosed}
	today := day("2025-02-03")

	for _, rt := range []ReportType{TypeInitial, TypeProgress} {
		if _, err := DefaultDraft(c, rt, Timeline{}, today); !errors.Is(err, apperror.ErrInvalidClaimState) {
			t.Errorf("%s: expected invalid claim state, got %v", rt, err)
		}
	}
	if _, err := DefaultDraft(c, TypeClosure, Timeline{}, today); err != nil {
		t.Errorf("expected closure draft on closed claim to be left to the caller, got %v", err)
	}
}

func TestDefaultDraft_UnknownType(t *testing.T) {
	c := &claim.Claim{ID: uuid.New(), Status: claim.StatusOpen}
	if _, err := DefaultDraft(c, ReportType("interim"), Timeline{}, day("2025-02-03")); !errors.Is(err, apperror.ErrInvalid) {
		t.Errorf("expected invalid error, got %v", err)
	}
}
