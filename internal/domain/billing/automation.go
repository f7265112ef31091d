package billing

import (
	"github.com/shopspring/decimal"

	"github.com/claimdesk/claimdesk/internal/domain/report"
)

// ActivityReportWriting is the activity code of automatic report-writing
// time.
const ActivityReportWriting = "REP"

// HoursByType is the report-writing time billed for each report type.
type HoursByType struct {
	Initial  decimal.Decimal
	Progress decimal.Decimal
	Closure  decimal.Decimal
}

func DefaultHours() HoursByType {
	return HoursByType{
		Initial:  decimal.RequireFromString("1.0"),
		Progress: decimal.RequireFromString("0.5"),
		Closure:  decimal.RequireFromString("0.5"),
	}
}

func (h HoursByType) For(t report.ReportType) decimal.Decimal {
	switch t {
	case report.TypeInitial:
		return h.Initial
	case report.TypeProgress:
		return h.Progress
	case report.TypeClosure:
		return h.Closure
	}
	return decimal.Zero
}

// ReportBillable builds the automatic billable item for r: hours by type,
// dated the report's dos_end, complete and uninvoiced.
func ReportBillable(r *report.Report, hours HoursByType) *BillableItem {
	reportID := r.ID
	return &BillableItem{
		ClaimID:      r.ClaimID,
		ReportID:     &reportID,
		ServiceDate:  dateOnly(r.DOSEnd),
		Description:  r.ReportType.Label() + " report writing",
		ActivityCode: ActivityReportWriting,
		Hours:        hours.For(r.ReportType),
		IsComplete:   true,
	}
}
