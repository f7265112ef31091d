package claim

import (
	"time"

	"github.com/google/uuid"
)

// Claim is the case record reports, billable time and invoices hang off.
// Status changes only through Service.SetClosure and Service.Reopen.
type Claim struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ClaimantName  string     `db:"claimant_name" json:"claimant_name"`
	ClaimNumber   *string    `db:"claim_number" json:"claim_number,omitempty"`
	ReferralDate  *time.Time `db:"referral_date" json:"referral_date,omitempty"`
	Status        Status     `db:"status" json:"status"`
	EmployerID    *uuid.UUID `db:"employer_id" json:"employer_id,omitempty"`
	CarrierID     *uuid.UUID `db:"carrier_id" json:"carrier_id,omitempty"`
	PCPProviderID *uuid.UUID `db:"pcp_provider_id" json:"pcp_provider_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

func (c *Claim) IsClosed() bool { return c.Status == StatusClosed }

// dateOnly drops the clock part; dates of service and referral are calendar dates.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
