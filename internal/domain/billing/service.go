package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/claimdesk/claimdesk/internal/domain/claim"
	"github.com/claimdesk/claimdesk/internal/domain/report"
	"github.com/claimdesk/claimdesk/internal/platform/apperror"
	"github.com/claimdesk/claimdesk/internal/platform/metrics"
)

// ErrNothingToInvoice is returned when no complete, uninvoiced item falls in
// the requested range.
var ErrNothingToInvoice = &apperror.Error{
	Kind:    apperror.KindInvalid,
	Message: "no complete, uninvoiced billable items in range",
	Reason:  "nothing_to_invoice",
}

// ClaimLookup is satisfied by *claim.Service.
type ClaimLookup interface {
	GetClaim(ctx context.Context, id uuid.UUID) (*claim.Claim, error)
}

// ReportLookup is satisfied by *report.Service.
type ReportLookup interface {
	GetReport(ctx context.Context, id uuid.UUID) (*report.ReportView, error)
}

type Service struct {
	items    BillableItemRepository
	invoices InvoiceRepository
	claims   ClaimLookup
	reports  ReportLookup
	tx       report.Transactor
	hours    HoursByType
	rate     decimal.Decimal
	now      func() time.Time
	loc      *time.Location
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

func NewService(items BillableItemRepository, invoices InvoiceRepository, claims ClaimLookup,
	reports ReportLookup, tx report.Transactor, logger zerolog.Logger) *Service {
	return &Service{
		items:    items,
		invoices: invoices,
		claims:   claims,
		reports:  reports,
		tx:       tx,
		hours:    DefaultHours(),
		rate:     decimal.Zero,
		now:      time.Now,
		loc:      time.UTC,
		logger:   logger,
	}
}

func (s *Service) SetHours(h HoursByType) { s.hours = h }

// SetDefaultRate sets the hourly rate used for items without their own.
func (s *Service) SetDefaultRate(rate decimal.Decimal) { s.rate = rate }

func (s *Service) SetClock(now func() time.Time, loc *time.Location) {
	s.now = now
	if loc != nil {
		s.loc = loc
	}
}

func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }

func (s *Service) today() time.Time {
	return dateOnly(s.now().In(s.loc))
}

// ReportCreated writes the automatic report-writing item for r. It is the
// report engine's billing hook.
func (s *Service) ReportCreated(ctx context.Context, r *report.Report) (uuid.UUID, error) {
	b := ReportBillable(r, s.hours)
	if err := s.items.Create(ctx, b); err != nil {
		return uuid.Nil, err
	}
	s.metrics.BillableCreated()
	return b.ID, nil
}

// -- Billable items --

// CreateBillable records manually entered time.
func (s *Service) CreateBillable(ctx context.Context, b *BillableItem) error {
	if _, err := s.claims.GetClaim(ctx, b.ClaimID); err != nil {
		return err
	}
	if err := normalizeItem(b); err != nil {
		return err
	}
	if b.ReportID != nil {
		v, err := s.reports.GetReport(ctx, *b.ReportID)
		if err != nil {
			return err
		}
		if v.ClaimID != b.ClaimID {
			return apperror.New(apperror.KindInvalid, "report %s belongs to another claim", *b.ReportID)
		}
	}
	b.InvoiceID = nil
	if err := s.items.Create(ctx, b); err != nil {
		return err
	}
	s.metrics.BillableCreated()
	return nil
}

func normalizeItem(b *BillableItem) error {
	b.Description = strings.TrimSpace(b.Description)
	b.ActivityCode = strings.ToUpper(strings.TrimSpace(b.ActivityCode))
	switch {
	case b.Description == "":
		return apperror.New(apperror.KindInvalid, "description is required")
	case b.ActivityCode == "":
		return apperror.New(apperror.KindInvalid, "activity_code is required")
	case !b.Hours.IsPositive():
		return apperror.New(apperror.KindInvalid, "hours must be positive")
	case b.ServiceDate.IsZero():
		return apperror.New(apperror.KindInvalid, "service_date is required")
	case b.Rate.Valid && b.Rate.Decimal.IsNegative():
		return apperror.New(apperror.KindInvalid, "rate cannot be negative")
	}
	b.ServiceDate = dateOnly(b.ServiceDate)
	return nil
}

// UpdateBillable applies edits to an uninvoiced item, including its
// completion flag. Invoiced items must be removed from their invoice first.
func (s *Service) UpdateBillable(ctx context.Context, id uuid.UUID, edit *BillableItem) (*BillableItem, error) {
	current, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var out *BillableItem
	err = s.tx.WithinClaim(ctx, current.ClaimID, func(ctx context.Context) error {
		b, err := s.uninvoicedItem(ctx, id)
		if err != nil {
			return err
		}
		b.ServiceDate = edit.ServiceDate
		b.Description = edit.Description
		b.ActivityCode = edit.ActivityCode
		b.Hours = edit.Hours
		b.Rate = edit.Rate
		b.IsComplete = edit.IsComplete
		if err := normalizeItem(b); err != nil {
			return err
		}
		if err := s.items.Update(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBillable removes an uninvoiced item.
func (s *Service) DeleteBillable(ctx context.Context, id uuid.UUID) error {
	current, err := s.items.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.tx.WithinClaim(ctx, current.ClaimID, func(ctx context.Context) error {
		if _, err := s.uninvoicedItem(ctx, id); err != nil {
			return err
		}
		return s.items.Delete(ctx, id)
	})
}

func (s *Service) uninvoicedItem(ctx context.Context, id uuid.UUID) (*BillableItem, error) {
	b, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.IsInvoiced() {
		return nil, &apperror.Error{
			Kind:    apperror.KindInvalidClaimState,
			Message: fmt.Sprintf("billable item %s is on invoice %s", id, *b.InvoiceID),
			Reason:  "billable_invoiced",
		}
	}
	return b, nil
}

func (s *Service) ListBillables(ctx context.Context, claimID uuid.UUID, limit, offset int) ([]*BillableItem, int, error) {
	return s.items.ListByClaim(ctx, claimID, limit, offset)
}

// -- Gathering --

// GatherBillables returns the claim's complete, uninvoiced items dated
// within [start, end], oldest first. It is read only.
func (s *Service) GatherBillables(ctx context.Context, claimID uuid.UUID, start, end time.Time) ([]*BillableItem, error) {
	if end.Before(start) {
		return nil, &apperror.Error{
			Kind:    apperror.KindInvalidRange,
			Message: "dos_end is before dos_start",
			Reason:  string(report.ReasonEndBeforeStart),
		}
	}
	if _, err := s.claims.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	open, err := s.items.ListUninvoiced(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return Select(open, start, end), nil
}

// GatherForReport gathers over a report's DOS range.
func (s *Service) GatherForReport(ctx context.Context, reportID uuid.UUID) ([]*BillableItem, error) {
	rep, err := s.liveReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return s.GatherBillables(ctx, rep.ClaimID, rep.DOSStart, rep.DOSEnd)
}

// -- Invoices --

// CreateInvoice gathers the claim's items in [start, end], numbers a new
// draft invoice, and marks the items invoiced, in one claim-locked
// transaction.
func (s *Service) CreateInvoice(ctx context.Context, claimID uuid.UUID, start, end time.Time) (*Invoice, error) {
	var inv *Invoice
	err := s.tx.WithinClaim(ctx, claimID, func(ctx context.Context) error {
		items, err := s.GatherBillables(ctx, claimID, start, end)
		if err != nil {
			return err
		}
		inv, err = s.assemble(ctx, claimID, dateOnly(start), dateOnly(end), items)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateInvoiceForReport invoices the items in a report's DOS range.
func (s *Service) CreateInvoiceForReport(ctx context.Context, reportID uuid.UUID) (*Invoice, error) {
	rep, err := s.liveReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return s.CreateInvoice(ctx, rep.ClaimID, rep.DOSStart, rep.DOSEnd)
}

// CreateInvoiceForClaim invoices every complete, uninvoiced item on the
// claim. The invoice range spans the items' service dates.
func (s *Service) CreateInvoiceForClaim(ctx context.Context, claimID uuid.UUID) (*Invoice, error) {
	var inv *Invoice
	err := s.tx.WithinClaim(ctx, claimID, func(ctx context.Context) error {
		if _, err := s.claims.GetClaim(ctx, claimID); err != nil {
			return err
		}
		open, err := s.items.ListUninvoiced(ctx, claimID)
		if err != nil {
			return err
		}
		var complete []*BillableItem
		for _, b := range open {
			if b.IsComplete {
				complete = append(complete, b)
			}
		}
		if len(complete) == 0 {
			return ErrNothingToInvoice
		}
		start, end := Span(complete)
		inv, err = s.assemble(ctx, claimID, start, end, Select(complete, start, end))
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) assemble(ctx context.Context, claimID uuid.UUID, start, end time.Time, items []*BillableItem) (*Invoice, error) {
	if len(items) == 0 {
		return nil, ErrNothingToInvoice
	}

	today := s.today()
	seq, err := s.invoices.NextSequence(ctx, today.Year())
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, b := range items {
		ids = append(ids, b.ID)
	}

	inv := &Invoice{
		ClaimID:       claimID,
		InvoiceNumber: FormatInvoiceNumber(today.Year(), seq),
		Status:        InvoiceStatusDraft,
		DOSStart:      &start,
		DOSEnd:        &end,
		TotalAmount:   s.total(items),
		InvoiceDate:   &today,
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	n, err := s.items.MarkInvoiced(ctx, ids, inv.ID)
	if err != nil {
		return nil, err
	}
	if int(n) != len(ids) {
		return nil, apperror.New(apperror.KindInvalidClaimState,
			"%d of %d gathered items were invoiced concurrently", len(ids)-int(n), len(ids))
	}

	for _, b := range items {
		invoiceID := inv.ID
		b.InvoiceID = &invoiceID
	}
	inv.Items = items

	s.metrics.InvoiceCreated()
	s.logger.Info().
		Str("claim_id", claimID.String()).
		Str("invoice_number", inv.InvoiceNumber).
		Int("items", len(items)).
		Str("total", inv.TotalAmount.StringFixed(2)).
		Msg("invoice created")
	return inv, nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Items, err = s.items.ListByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) ListInvoices(ctx context.Context, claimID uuid.UUID) ([]*Invoice, error) {
	if _, err := s.claims.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	return s.invoices.ListByClaim(ctx, claimID)
}

// -- Draft invoice maintenance --

// DeleteInvoice deletes a draft invoice and returns its items to the claim
// as uninvoiced.
func (s *Service) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	current, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return err
	}
	err = s.tx.WithinClaim(ctx, current.ClaimID, func(ctx context.Context) error {
		if _, err := s.draftInvoice(ctx, id); err != nil {
			return err
		}
		if _, err := s.items.Release(ctx, id, nil); err != nil {
			return err
		}
		return s.invoices.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info().
		Str("claim_id", current.ClaimID.String()).
		Str("invoice_number", current.InvoiceNumber).
		Msg("draft invoice deleted")
	return nil
}

// RemoveInvoiceItem takes one item off a draft invoice and recomputes the
// invoice total.
func (s *Service) RemoveInvoiceItem(ctx context.Context, invoiceID, itemID uuid.UUID) (*Invoice, error) {
	return s.reviseDraft(ctx, invoiceID, func(ctx context.Context, inv *Invoice) error {
		b, err := s.items.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if b.InvoiceID == nil || *b.InvoiceID != inv.ID {
			return &apperror.Error{
				Kind:    apperror.KindInvalid,
				Message: fmt.Sprintf("billable item %s is not on invoice %s", itemID, inv.InvoiceNumber),
				Reason:  "item_not_on_invoice",
			}
		}
		_, err = s.items.Release(ctx, inv.ID, []uuid.UUID{itemID})
		return err
	})
}

// AddUninvoiced attaches every complete, uninvoiced item of the claim to a
// draft invoice. With none available the invoice is returned unchanged.
func (s *Service) AddUninvoiced(ctx context.Context, invoiceID uuid.UUID) (*Invoice, error) {
	return s.reviseDraft(ctx, invoiceID, func(ctx context.Context, inv *Invoice) error {
		open, err := s.items.ListUninvoiced(ctx, inv.ClaimID)
		if err != nil {
			return err
		}
		var ids []uuid.UUID
		for _, b := range open {
			if b.IsComplete {
				ids = append(ids, b.ID)
			}
		}
		if len(ids) == 0 {
			return nil
		}
		_, err = s.items.MarkInvoiced(ctx, ids, inv.ID)
		return err
	})
}

// reviseDraft runs fn against a draft invoice under the claim lock, then
// recomputes and stores the invoice total from its remaining items.
func (s *Service) reviseDraft(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, inv *Invoice) error) (*Invoice, error) {
	current, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var out *Invoice
	err = s.tx.WithinClaim(ctx, current.ClaimID, func(ctx context.Context) error {
		inv, err := s.draftInvoice(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, inv); err != nil {
			return err
		}
		inv.Items, err = s.items.ListByInvoice(ctx, id)
		if err != nil {
			return err
		}
		inv.TotalAmount = s.total(inv.Items)
		if err := s.invoices.UpdateTotal(ctx, id, inv.TotalAmount); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) draftInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != InvoiceStatusDraft {
		return nil, &apperror.Error{
			Kind:    apperror.KindInvalidClaimState,
			Message: fmt.Sprintf("invoice %s is %s; only draft invoices can change", inv.InvoiceNumber, inv.Status),
			Reason:  "invoice_not_draft",
		}
	}
	return inv, nil
}

func (s *Service) total(items []*BillableItem) decimal.Decimal {
	total := decimal.Zero
	for _, b := range items {
		total = total.Add(b.Amount(s.rate))
	}
	return total.Round(2)
}

func (s *Service) liveReport(ctx context.Context, id uuid.UUID) (*report.ReportView, error) {
	v, err := s.reports.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Deleted {
		return nil, apperror.NotFound("report", id)
	}
	return v, nil
}
