package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/claimdesk/claimdesk/internal/domain/claim"
	"github.com/claimdesk/claimdesk/internal/platform/apperror"
	"github.com/claimdesk/claimdesk/internal/platform/metrics"
)

// Transactor runs work serialized per claim. *db.ClaimTx satisfies it.
type Transactor interface {
	WithinClaim(ctx context.Context, claimID uuid.UUID, fn func(ctx context.Context) error) error
	Savepoint(ctx context.Context, fn func(ctx context.Context) error) error
}

// ClosureController is the claim store as the report engine sees it.
// *claim.Service satisfies it.
type ClosureController interface {
	GetClaim(ctx context.Context, id uuid.UUID) (*claim.Claim, error)
	SetClosure(ctx context.Context, claimID, reportID uuid.UUID, active bool) (*claim.Claim, error)
}

// CatalogChecker validates multi-select identifiers. *catalog.Service
// satisfies it.
type CatalogChecker interface {
	ValidateProviderIDs(ctx context.Context, ids []uuid.UUID) error
	ValidateBarrierIDs(ctx context.Context, ids []uuid.UUID) error
}

// BillingHook records report-writing time for a newly created report and
// returns the id of the billable item it wrote.
type BillingHook interface {
	ReportCreated(ctx context.Context, r *Report) (uuid.UUID, error)
}

type Service struct {
	reports ReportRepository
	claims  ClosureController
	catalog CatalogChecker
	tx      Transactor
	billing BillingHook
	now     func() time.Time
	loc     *time.Location
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewService(reports ReportRepository, claims ClosureController, catalog CatalogChecker, tx Transactor, logger zerolog.Logger) *Service {
	return &Service{
		reports: reports,
		claims:  claims,
		catalog: catalog,
		tx:      tx,
		now:     time.Now,
		loc:     time.UTC,
		logger:  logger,
	}
}

// SetBillingHook enables billing automation. With no hook, report creation
// writes no billable items.
func (s *Service) SetBillingHook(h BillingHook) { s.billing = h }

// SetClock sets the source of "today" and the zone it is read in.
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

// Timeline resolves the ordered, non-deleted report history of a claim.
func (s *Service) Timeline(ctx context.Context, claimID uuid.UUID) (Timeline, error) {
	if _, err := s.claims.GetClaim(ctx, claimID); err != nil {
		return Timeline{}, err
	}
	reports, err := s.reports.ListByClaim(ctx, claimID)
	if err != nil {
		return Timeline{}, err
	}
	return NewTimeline(claimID, reports), nil
}

// -- Create --

type CreateReportInput struct {
	ClaimID     uuid.UUID  `json:"-"`
	ReportType  ReportType `json:"report_type"`
	SkipBilling bool       `json:"skip_billing"`
	// AllowSecondClosure lets a closure report be added while another
	// closure report is still active on the claim.
	AllowSecondClosure bool `json:"allow_second_closure"`
}

// CreateReportResult carries the saved report and the outcome of the side
// effects. A billing failure does not undo the report; it is reported in
// BillingError instead.
type CreateReportResult struct {
	Report         ReportView   `json:"report"`
	RolledForward  []Field      `json:"rolled_forward"`
	BillableItemID *uuid.UUID   `json:"billable_item_id,omitempty"`
	BillingError   string       `json:"billing_error,omitempty"`
	ClaimStatus    claim.Status `json:"claim_status"`
}

// CreateReport defaults, validates, rolls forward and saves a new report,
// then runs billing automation and the closure transition, all in one
// claim-locked transaction. Nothing is written when validation fails.
func (s *Service) CreateReport(ctx context.Context, in CreateReportInput) (*CreateReportResult, error) {
	if !in.ReportType.Valid() {
		return nil, apperror.New(apperror.KindInvalid, "report_type must be one of initial, progress, closure")
	}

	var res CreateReportResult
	err := s.tx.WithinClaim(ctx, in.ClaimID, func(ctx context.Context) error {
		c, err := s.claims.GetClaim(ctx, in.ClaimID)
		if err != nil {
			return err
		}
		tl, err := s.Timeline(ctx, in.ClaimID)
		if err != nil {
			return err
		}

		if in.ReportType == TypeClosure && !in.AllowSecondClosure {
			if active := tl.ActiveClosure(); active != nil {
				return &apperror.Error{
					Kind:      apperror.KindInvalidClaimState,
					Message:   "claim already has an active closure report",
					Reason:    "second_active_closure",
					ReportIDs: []uuid.UUID{active.ID},
				}
			}
		}

		rep, err := DefaultDraft(c, in.ReportType, tl, s.today())
		if err != nil {
			return err
		}
		if err := s.checkRange(tl, uuid.Nil, rep, OverlapBlock); err != nil {
			return err
		}

		res.RolledForward = RollForward(rep, tl.Latest())
		if err := s.checkReferences(ctx, rep); err != nil {
			return err
		}
		if err := s.reports.Create(ctx, rep); err != nil {
			return err
		}

		if s.billing != nil && !in.SkipBilling {
			s.runBilling(ctx, rep, &res)
		}

		res.ClaimStatus = c.Status
		if rep.ReportType == TypeClosure {
			updated, err := s.claims.SetClosure(ctx, c.ID, rep.ID, true)
			if err != nil {
				return err
			}
			res.ClaimStatus = updated.Status
		}

		tl = tl.With(rep)
		res.Report = ReportView{Report: rep, DisplayNumber: DisplayNumber(tl, rep.ID), Sequence: Sequence(tl, rep.ID)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ReportCreated(string(in.ReportType))
	s.logger.Info().
		Str("claim_id", in.ClaimID.String()).
		Str("report_id", res.Report.ID.String()).
		Str("report_type", string(in.ReportType)).
		Msg("report created")
	return &res, nil
}

// runBilling writes the automatic billable item inside a savepoint so a
// failure leaves the report in place.
func (s *Service) runBilling(ctx context.Context, rep *Report, res *CreateReportResult) {
	var itemID uuid.UUID
	err := s.tx.Savepoint(ctx, func(ctx context.Context) error {
		var err error
		itemID, err = s.billing.ReportCreated(ctx, rep)
		return err
	})
	if err != nil {
		s.metrics.BillingFailed()
		s.logger.Warn().Err(err).
			Str("claim_id", rep.ClaimID.String()).
			Str("report_id", rep.ID.String()).
			Msg("billing automation failed; report kept")
		res.BillingError = err.Error()
		return
	}
	res.BillableItemID = &itemID
}

// -- Read --

func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*ReportView, error) {
	rep, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Deleted {
		return &ReportView{Report: rep}, nil
	}
	tl, err := s.Timeline(ctx, rep.ClaimID)
	if err != nil {
		return nil, err
	}
	return &ReportView{Report: rep, DisplayNumber: DisplayNumber(tl, id), Sequence: Sequence(tl, id)}, nil
}

// ListReports returns the claim's timeline with display numbers.
func (s *Service) ListReports(ctx context.Context, claimID uuid.UUID) ([]ReportView, error) {
	tl, err := s.Timeline(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return Views(tl), nil
}

// DisplayNumber returns the progress number of a report, or nil for initial,
// closure and deleted reports.
func (s *Service) DisplayNumber(ctx context.Context, reportID uuid.UUID) (*int, error) {
	v, err := s.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return v.DisplayNumber, nil
}

// ValidateDOSRange checks a candidate range against the claim's timeline.
// reportID is the report being edited, or uuid.Nil for a new one.
func (s *Service) ValidateDOSRange(ctx context.Context, claimID, reportID uuid.UUID, start, end time.Time) (Validation, error) {
	tl, err := s.Timeline(ctx, claimID)
	if err != nil {
		return Validation{}, err
	}
	return ValidateDOSRange(tl, reportID, start, end), nil
}

// -- Update --

// UpdateReportResult carries the saved report and, under OverlapWarn, the
// overlap that was let through.
type UpdateReportResult struct {
	Report  ReportView  `json:"report"`
	Warning *Validation `json:"warning,omitempty"`
}

// UpdateReport applies user edits to a report. The report type cannot
// change. mode decides whether an overlapping range blocks the save.
func (s *Service) UpdateReport(ctx context.Context, id uuid.UUID, edit *Report, mode OverlapMode) (*UpdateReportResult, error) {
	current, err := s.liveReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if edit.ReportType != "" && edit.ReportType != current.ReportType {
		return nil, apperror.New(apperror.KindInvalid, "report_type cannot change after creation")
	}

	var res UpdateReportResult
	err = s.tx.WithinClaim(ctx, current.ClaimID, func(ctx context.Context) error {
		rep, err := s.liveReport(ctx, id)
		if err != nil {
			return err
		}
		applyEdit(rep, edit)

		tl, err := s.Timeline(ctx, rep.ClaimID)
		if err != nil {
			return err
		}
		v := ValidateDOSRange(tl, rep.ID, rep.DOSStart, rep.DOSEnd)
		if err := s.checkValidation(v, mode); err != nil {
			return err
		}
		if !v.Valid {
			res.Warning = &v
		}
		if err := s.checkReferences(ctx, rep); err != nil {
			return err
		}
		if err := s.reports.Update(ctx, rep); err != nil {
			return err
		}

		tl = tl.Without(rep.ID).With(rep)
		res.Report = ReportView{Report: rep, DisplayNumber: DisplayNumber(tl, rep.ID), Sequence: Sequence(tl, rep.ID)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Warning != nil {
		s.logger.Warn().
			Str("report_id", id.String()).
			Str("validation", res.Warning.String()).
			Msg("report saved with overlapping dos range")
	}
	return &res, nil
}

// applyEdit copies the user-editable fields of edit onto rep, keeping rep's
// identity, type and lifecycle columns.
func applyEdit(rep, edit *Report) {
	rep.DOSStart = dateOnly(edit.DOSStart)
	rep.DOSEnd = dateOnly(edit.DOSEnd)
	rep.NextReportDue = nil
	if edit.NextReportDue != nil && rep.ReportType != TypeClosure {
		d := dateOnly(*edit.NextReportDue)
		rep.NextReportDue = &d
	}
	rep.TreatingProviderID = edit.TreatingProviderID
	rep.StatusTreatmentPlan = edit.StatusTreatmentPlan
	rep.WorkStatus = edit.WorkStatus
	rep.CaseManagementPlan = edit.CaseManagementPlan
	rep.EmploymentStatus = edit.EmploymentStatus
	rep.TreatingProviderIDs = uniqueIDs(edit.TreatingProviderIDs)
	rep.BarrierIDs = uniqueIDs(edit.BarrierIDs)
	rep.Initial = edit.Initial
	rep.Closure = edit.Closure
	rep.normalizePayload()
}

// -- Delete --

// DeleteReport soft-deletes a report. Billable items it generated are kept.
// Removing the last active closure report reopens the claim.
func (s *Service) DeleteReport(ctx context.Context, id uuid.UUID) error {
	current, err := s.liveReport(ctx, id)
	if err != nil {
		return err
	}

	err = s.tx.WithinClaim(ctx, current.ClaimID, func(ctx context.Context) error {
		rep, err := s.liveReport(ctx, id)
		if err != nil {
			return err
		}
		if err := s.reports.SoftDelete(ctx, id); err != nil {
			return err
		}
		if rep.ReportType != TypeClosure {
			return nil
		}
		tl, err := s.Timeline(ctx, rep.ClaimID)
		if err != nil {
			return err
		}
		if tl.ActiveClosure() != nil {
			return nil
		}
		_, err = s.claims.SetClosure(ctx, rep.ClaimID, rep.ID, false)
		return err
	})
	if err != nil {
		return err
	}

	s.metrics.ReportDeleted()
	s.logger.Info().
		Str("claim_id", current.ClaimID.String()).
		Str("report_id", id.String()).
		Msg("report deleted")
	return nil
}

// -- Closure --

// SetClosure applies the closure rule for one closure report under the claim
// lock. active=true closes the claim and needs a live closure report;
// active=false reopens it unless another closure report is still active.
func (s *Service) SetClosure(ctx context.Context, claimID, reportID uuid.UUID, active bool) (*claim.Claim, error) {
	var out *claim.Claim
	err := s.tx.WithinClaim(ctx, claimID, func(ctx context.Context) error {
		rep, err := s.reports.GetByID(ctx, reportID)
		if err != nil {
			return err
		}
		switch {
		case rep.ClaimID != claimID:
			return &apperror.Error{
				Kind:    apperror.KindInvalid,
				Message: fmt.Sprintf("report %s belongs to another claim", reportID),
				Reason:  "report_claim_mismatch",
			}
		case rep.ReportType != TypeClosure:
			return &apperror.Error{
				Kind:    apperror.KindInvalid,
				Message: fmt.Sprintf("report %s is a %s report, not a closure report", reportID, rep.ReportType),
				Reason:  "not_closure_report",
			}
		case active && rep.Deleted:
			return &apperror.Error{
				Kind:    apperror.KindInvalidClaimState,
				Message: fmt.Sprintf("closure report %s is deleted", reportID),
				Reason:  "closure_report_deleted",
			}
		}

		if !active {
			tl, err := s.Timeline(ctx, claimID)
			if err != nil {
				return err
			}
			if other := tl.Without(reportID).ActiveClosure(); other != nil {
				return &apperror.Error{
					Kind:      apperror.KindInvalidClaimState,
					Message:   "claim has another active closure report",
					Reason:    "closure_still_active",
					ReportIDs: []uuid.UUID{other.ID},
				}
			}
		}

		out, err = s.claims.SetClosure(ctx, claimID, reportID, active)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// -- Roll-forward on demand --

// RollForwardField copies one field into an existing report from the report
// just before it on the timeline and saves it. With no prior report the
// report is returned unchanged.
func (s *Service) RollForwardField(ctx context.Context, id uuid.UUID, field Field) (*ReportView, error) {
	current, err := s.liveReport(ctx, id)
	if err != nil {
		return nil, err
	}

	var view *ReportView
	err = s.tx.WithinClaim(ctx, current.ClaimID, func(ctx context.Context) error {
		rep, err := s.liveReport(ctx, id)
		if err != nil {
			return err
		}
		tl, err := s.Timeline(ctx, rep.ClaimID)
		if err != nil {
			return err
		}
		prior := tl.Prior(rep.ID)
		if err := RollForwardOne(rep, prior, field); err != nil {
			return err
		}
		if prior != nil {
			if err := s.reports.Update(ctx, rep); err != nil {
				return err
			}
		}
		view = &ReportView{Report: rep, DisplayNumber: DisplayNumber(tl, rep.ID), Sequence: Sequence(tl, rep.ID)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// -- helpers --

// liveReport loads a report and treats a soft-deleted one as missing.
func (s *Service) liveReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	rep, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Deleted {
		return nil, apperror.NotFound("report", id)
	}
	return rep, nil
}

func (s *Service) checkRange(tl Timeline, exclude uuid.UUID, rep *Report, mode OverlapMode) error {
	return s.checkValidation(ValidateDOSRange(tl, exclude, rep.DOSStart, rep.DOSEnd), mode)
}

func (s *Service) checkValidation(v Validation, mode OverlapMode) error {
	err := v.Err(mode)
	if errors.Is(err, apperror.ErrOverlapViolation) {
		s.metrics.OverlapRejected()
	}
	return err
}

func (s *Service) checkReferences(ctx context.Context, rep *Report) error {
	if err := s.catalog.ValidateProviderIDs(ctx, providerRefs(rep)); err != nil {
		return err
	}
	return s.catalog.ValidateBarrierIDs(ctx, rep.BarrierIDs)
}

func providerRefs(rep *Report) []uuid.UUID {
	ids := append([]uuid.UUID(nil), rep.TreatingProviderIDs...)
	if rep.TreatingProviderID != nil {
		ids = append(ids, *rep.TreatingProviderID)
	}
	if rep.Initial != nil && rep.Initial.NextApptProviderID != nil {
		ids = append(ids, *rep.Initial.NextApptProviderID)
	}
	return ids
}
