package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claimdesk/claimdesk/internal/platform/apperror"
	"github.com/claimdesk/claimdesk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type reportRepoPG struct{ pool *pgxpool.Pool }

func NewReportRepoPG(pool *pgxpool.Pool) ReportRepository { return &reportRepoPG{pool: pool} }

func (r *reportRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const reportCols = `id, claim_id, report_type, dos_start, dos_end, next_report_due,
	treating_provider_id, status_treatment_plan, work_status, case_management_plan, employment_status,
	initial_diagnosis, initial_mechanism_of_injury, initial_coexisting_conditions,
	initial_surgical_history, initial_medications, initial_diagnostics, initial_primary_care_provider,
	initial_next_appt_datetime, initial_next_appt_provider_id, initial_next_appt_provider_name,
	initial_next_appt_notes, closure_reason, closure_details, closure_case_management_impact,
	deleted, deleted_at, created_at, updated_at`

// The report table is flat; the typed payload is rebuilt from the report
// type after scanning.
func (r *reportRepoPG) scanReport(row pgx.Row) (*Report, error) {
	var (
		rep Report
		in  InitialFields
		cl  ClosureFields
	)
	err := row.Scan(&rep.ID, &rep.ClaimID, &rep.ReportType, &rep.DOSStart, &rep.DOSEnd, &rep.NextReportDue,
		&rep.TreatingProviderID, &rep.StatusTreatmentPlan, &rep.WorkStatus, &rep.CaseManagementPlan, &rep.EmploymentStatus,
		&in.Diagnosis, &in.MechanismOfInjury, &in.CoexistingConditions,
		&in.SurgicalHistory, &in.Medications, &in.Diagnostics, &in.PrimaryCareProvider,
		&in.NextApptDatetime, &in.NextApptProviderID, &in.NextApptProviderName,
		&in.NextApptNotes, &cl.Reason, &cl.Details, &cl.CaseManagementImpact,
		&rep.Deleted, &rep.DeletedAt, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	switch rep.ReportType {
	case TypeInitial:
		rep.Initial = &in
	case TypeClosure:
		rep.Closure = &cl
	}
	return &rep, nil
}

// flatArgs returns the payload columns in reportCols order, blank when the
// report type has no such payload.
func flatArgs(rep *Report) []interface{} {
	var (
		in InitialFields
		cl ClosureFields
	)
	if rep.Initial != nil {
		in = *rep.Initial
	}
	if rep.Closure != nil {
		cl = *rep.Closure
	}
	return []interface{}{
		in.Diagnosis, in.MechanismOfInjury, in.CoexistingConditions,
		in.SurgicalHistory, in.Medications, in.Diagnostics, in.PrimaryCareProvider,
		in.NextApptDatetime, in.NextApptProviderID, in.NextApptProviderName,
		in.NextApptNotes, cl.Reason, cl.Details, cl.CaseManagementImpact,
	}
}

func (r *reportRepoPG) Create(ctx context.Context, rep *Report) error {
	rep.ID = uuid.New()
	args := append([]interface{}{
		rep.ID, rep.ClaimID, rep.ReportType, rep.DOSStart, rep.DOSEnd, rep.NextReportDue,
		rep.TreatingProviderID, rep.StatusTreatmentPlan, rep.WorkStatus, rep.CaseManagementPlan, rep.EmploymentStatus,
	}, flatArgs(rep)...)

	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO report (id, claim_id, report_type, dos_start, dos_end, next_report_due,
			treating_provider_id, status_treatment_plan, work_status, case_management_plan, employment_status,
			initial_diagnosis, initial_mechanism_of_injury, initial_coexisting_conditions,
			initial_surgical_history, initial_medications, initial_diagnostics, initial_primary_care_provider,
			initial_next_appt_datetime, initial_next_appt_provider_id, initial_next_appt_provider_name,
			initial_next_appt_notes, closure_reason, closure_details, closure_case_management_impact)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
		RETURNING created_at, updated_at`, args...).Scan(&rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return r.writeLists(ctx, rep)
}

func (r *reportRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	rep, err := r.scanReport(r.conn(ctx).QueryRow(ctx, `SELECT `+reportCols+` FROM report WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("report", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	if err := r.loadLists(ctx, []*Report{rep}); err != nil {
		return nil, err
	}
	return rep, nil
}

// Update writes every mutable column and replaces both multi-select lists.
// report_type and claim_id never change.
func (r *reportRepoPG) Update(ctx context.Context, rep *Report) error {
	args := append([]interface{}{
		rep.ID, rep.DOSStart, rep.DOSEnd, rep.NextReportDue,
		rep.TreatingProviderID, rep.StatusTreatmentPlan, rep.WorkStatus, rep.CaseManagementPlan, rep.EmploymentStatus,
	}, flatArgs(rep)...)

	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE report SET dos_start=$2, dos_end=$3, next_report_due=$4,
			treating_provider_id=$5, status_treatment_plan=$6, work_status=$7,
			case_management_plan=$8, employment_status=$9,
			initial_diagnosis=$10, initial_mechanism_of_injury=$11, initial_coexisting_conditions=$12,
			initial_surgical_history=$13, initial_medications=$14, initial_diagnostics=$15,
			initial_primary_care_provider=$16, initial_next_appt_datetime=$17,
			initial_next_appt_provider_id=$18, initial_next_appt_provider_name=$19,
			initial_next_appt_notes=$20, closure_reason=$21, closure_details=$22,
			closure_case_management_impact=$23, updated_at=NOW()
		WHERE id = $1 AND NOT deleted
		RETURNING updated_at`, args...).Scan(&rep.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound("report", rep.ID)
	}
	if err != nil {
		return fmt.Errorf("update report %s: %w", rep.ID, err)
	}
	return r.writeLists(ctx, rep)
}

func (r *reportRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE report SET deleted = TRUE, deleted_at = $2, updated_at = NOW() WHERE id = $1 AND NOT deleted`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("report", id)
	}
	return nil
}

func (r *reportRepoPG) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Report, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reportCols+` FROM report WHERE claim_id = $1 AND NOT deleted`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list reports for claim %s: %w", claimID, err)
	}
	defer rows.Close()
	var items []*Report
	for rows.Next() {
		rep, err := r.scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadLists(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// -- Multi-select lists --

func (r *reportRepoPG) writeLists(ctx context.Context, rep *Report) error {
	c := r.conn(ctx)
	if _, err := c.Exec(ctx, `DELETE FROM report_treating_provider WHERE report_id = $1`, rep.ID); err != nil {
		return fmt.Errorf("clear treating providers: %w", err)
	}
	if len(rep.TreatingProviderIDs) > 0 {
		if _, err := c.Exec(ctx, `
			INSERT INTO report_treating_provider (report_id, provider_id, sort_order)
			SELECT $1, p.id, p.ord FROM unnest($2::uuid[]) WITH ORDINALITY AS p(id, ord)`,
			rep.ID, rep.TreatingProviderIDs); err != nil {
			return fmt.Errorf("write treating providers: %w", err)
		}
	}

	if _, err := c.Exec(ctx, `DELETE FROM report_barrier WHERE report_id = $1`, rep.ID); err != nil {
		return fmt.Errorf("clear barriers: %w", err)
	}
	if len(rep.BarrierIDs) > 0 {
		if _, err := c.Exec(ctx, `
			INSERT INTO report_barrier (report_id, barrier_option_id, sort_order)
			SELECT $1, b.id, b.ord FROM unnest($2::uuid[]) WITH ORDINALITY AS b(id, ord)`,
			rep.ID, rep.BarrierIDs); err != nil {
			return fmt.Errorf("write barriers: %w", err)
		}
	}
	return nil
}

func (r *reportRepoPG) loadLists(ctx context.Context, reports []*Report) error {
	if len(reports) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Report, len(reports))
	ids := make([]uuid.UUID, 0, len(reports))
	for _, rep := range reports {
		rep.TreatingProviderIDs = []uuid.UUID{}
		rep.BarrierIDs = []uuid.UUID{}
		byID[rep.ID] = rep
		ids = append(ids, rep.ID)
	}

	err := r.collectList(ctx, `
		SELECT report_id, provider_id FROM report_treating_provider
		WHERE report_id = ANY($1) ORDER BY report_id, sort_order`, ids,
		func(rep *Report, id uuid.UUID) { rep.TreatingProviderIDs = append(rep.TreatingProviderIDs, id) }, byID)
	if err != nil {
		return fmt.Errorf("load treating providers: %w", err)
	}
	err = r.collectList(ctx, `
		SELECT report_id, barrier_option_id FROM report_barrier
		WHERE report_id = ANY($1) ORDER BY report_id, sort_order`, ids,
		func(rep *Report, id uuid.UUID) { rep.BarrierIDs = append(rep.BarrierIDs, id) }, byID)
	if err != nil {
		return fmt.Errorf("load barriers: %w", err)
	}
	return nil
}

func (r *reportRepoPG) collectList(ctx context.Context, query string, ids []uuid.UUID,
	add func(*Report, uuid.UUID), byID map[uuid.UUID]*Report) error {
	rows, err := r.conn(ctx).Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var reportID, itemID uuid.UUID
		if err := rows.Scan(&reportID, &itemID); err != nil {
			return err
		}
		if rep, ok := byID[reportID]; ok {
			add(rep, itemID)
		}
	}
	return rows.Err()
}
