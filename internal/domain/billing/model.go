package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillableItem is a unit of billable time. A non-nil InvoiceID means the
// item has been invoiced.
type BillableItem struct {
	ID           uuid.UUID           `db:"id" json:"id"`
	ClaimID      uuid.UUID           `db:"claim_id" json:"claim_id"`
	ReportID     *uuid.UUID          `db:"report_id" json:"report_id,omitempty"`
	InvoiceID    *uuid.UUID          `db:"invoice_id" json:"invoice_id,omitempty"`
	ServiceDate  time.Time           `db:"service_date" json:"service_date"`
	Description  string              `db:"description" json:"description"`
	ActivityCode string              `db:"activity_code" json:"activity_code"`
	Hours        decimal.Decimal     `db:"hours" json:"hours"`
	Rate         decimal.NullDecimal `db:"rate" json:"rate"`
	IsComplete   bool                `db:"is_complete" json:"is_complete"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
}

func (b *BillableItem) IsInvoiced() bool { return b.InvoiceID != nil }

// Amount is hours times the item's rate, or fallback when it has none.
func (b *BillableItem) Amount(fallback decimal.Decimal) decimal.Decimal {
	rate := fallback
	if b.Rate.Valid {
		rate = b.Rate.Decimal
	}
	return b.Hours.Mul(rate)
}

const InvoiceStatusDraft = "draft"

type Invoice struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	ClaimID       uuid.UUID       `db:"claim_id" json:"claim_id"`
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number"`
	Status        string          `db:"status" json:"status"`
	DOSStart      *time.Time      `db:"dos_start" json:"dos_start,omitempty"`
	DOSEnd        *time.Time      `db:"dos_end" json:"dos_end,omitempty"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	InvoiceDate   *time.Time      `db:"invoice_date" json:"invoice_date,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	Items         []*BillableItem `json:"items,omitempty"`
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
