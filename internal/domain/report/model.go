package report

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportType is fixed at creation.
type ReportType string

const (
	TypeInitial  ReportType = "initial"
	TypeProgress ReportType = "progress"
	TypeClosure  ReportType = "closure"
)

var allTypes = []ReportType{TypeInitial, TypeProgress, TypeClosure}

func (t ReportType) Valid() bool {
	switch t {
	case TypeInitial, TypeProgress, TypeClosure:
		return true
	}
	return false
}

// Label is the capitalized type name used in billable descriptions.
func (t ReportType) Label() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// Report is the common report record. Exactly one of Initial and Closure is
// set for initial and closure reports; progress reports carry neither.
type Report struct {
	ID                  uuid.UUID      `db:"id" json:"id"`
	ClaimID             uuid.UUID      `db:"claim_id" json:"claim_id"`
	ReportType          ReportType     `db:"report_type" json:"report_type"`
	DOSStart            time.Time      `db:"dos_start" json:"dos_start"`
	DOSEnd              time.Time      `db:"dos_end" json:"dos_end"`
	NextReportDue       *time.Time     `db:"next_report_due" json:"next_report_due,omitempty"`
	TreatingProviderID  *uuid.UUID     `db:"treating_provider_id" json:"treating_provider_id,omitempty"`
	StatusTreatmentPlan string         `db:"status_treatment_plan" json:"status_treatment_plan"`
	WorkStatus          string         `db:"work_status" json:"work_status"`
	CaseManagementPlan  string         `db:"case_management_plan" json:"case_management_plan"`
	EmploymentStatus    string         `db:"employment_status" json:"employment_status"`
	TreatingProviderIDs []uuid.UUID    `json:"treating_provider_ids"`
	BarrierIDs          []uuid.UUID    `json:"barrier_ids"`
	Initial             *InitialFields `json:"initial,omitempty"`
	Closure             *ClosureFields `json:"closure,omitempty"`
	Deleted             bool           `db:"deleted" json:"deleted"`
	DeletedAt           *time.Time     `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// InitialFields are only meaningful on initial reports.
type InitialFields struct {
	Diagnosis            string     `db:"initial_diagnosis" json:"diagnosis"`
	MechanismOfInjury    string     `db:"initial_mechanism_of_injury" json:"mechanism_of_injury"`
	CoexistingConditions string     `db:"initial_coexisting_conditions" json:"coexisting_conditions"`
	SurgicalHistory      string     `db:"initial_surgical_history" json:"surgical_history"`
	Medications          string     `db:"initial_medications" json:"medications"`
	Diagnostics          string     `db:"initial_diagnostics" json:"diagnostics"`
	PrimaryCareProvider  string     `db:"initial_primary_care_provider" json:"primary_care_provider"`
	NextApptDatetime     *time.Time `db:"initial_next_appt_datetime" json:"next_appt_datetime,omitempty"`
	NextApptProviderID   *uuid.UUID `db:"initial_next_appt_provider_id" json:"next_appt_provider_id,omitempty"`
	NextApptProviderName string     `db:"initial_next_appt_provider_name" json:"next_appt_provider_name"`
	NextApptNotes        string     `db:"initial_next_appt_notes" json:"next_appt_notes"`
}

// ClosureFields are only meaningful on closure reports.
type ClosureFields struct {
	Reason               string `db:"closure_reason" json:"reason"`
	Details              string `db:"closure_details" json:"details"`
	CaseManagementImpact string `db:"closure_case_management_impact" json:"case_management_impact"`
}

// NewReport returns a blank report of type t with the payload that type
// calls for.
func NewReport(claimID uuid.UUID, t ReportType) *Report {
	r := &Report{ClaimID: claimID, ReportType: t}
	r.normalizePayload()
	return r
}

// normalizePayload drops payloads that do not belong to the report type and
// allocates the one that does.
func (r *Report) normalizePayload() {
	switch r.ReportType {
	case TypeInitial:
		if r.Initial == nil {
			r.Initial = &InitialFields{}
		}
		r.Closure = nil
	case TypeClosure:
		if r.Closure == nil {
			r.Closure = &ClosureFields{}
		}
		r.Initial = nil
	default:
		r.Initial = nil
		r.Closure = nil
	}
}

// IsActiveClosure reports whether r is a non-deleted closure report.
func (r *Report) IsActiveClosure() bool {
	return r.ReportType == TypeClosure && !r.Deleted
}

// ReportView is a report as displayed, with its computed number.
type ReportView struct {
	*Report
	DisplayNumber *int `json:"display_number"`
	Sequence      int  `json:"sequence"`
}

// uniqueIDs keeps the first occurrence of each id, in order.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
