package report

import (
	"time"

	"github.com/claimdesk/claimdesk/internal/domain/claim"
	"github.com/claimdesk/claimdesk/internal/platform/apperror"
)

// DefaultDraft builds the unsaved field set for a new report of type t on c,
// before roll-forward runs.
//
//	initial           dos_start = referral date, else today
//	progress, closure dos_start = day after the latest report's dos_end, else today
//	all               dos_end   = today
//
// A closed claim accepts no new initial or progress report. Whether a
// closure may be added to a closed claim is decided by the caller.
func DefaultDraft(c *claim.Claim, t ReportType, tl Timeline, today time.Time) (*Report, error) {
	if !t.Valid() {
		return nil, apperror.New(apperror.KindInvalid, "unknown report type %q", t)
	}
	if c.IsClosed() && t != TypeClosure {
		return nil, apperror.New(apperror.KindInvalidClaimState,
			"claim %s is closed; reopen it before adding a %s report", c.ID, t)
	}

	today = dateOnly(today)
	r := NewReport(c.ID, t)
	r.DOSStart = today
	r.DOSEnd = today

	switch t {
	case TypeInitial:
		if c.ReferralDate != nil {
			r.DOSStart = dateOnly(*c.ReferralDate)
		}
	default:
		if last := tl.Latest(); last != nil {
			r.DOSStart = dateOnly(last.DOSEnd).AddDate(0, 0, 1)
		}
	}
	return r, nil
}
