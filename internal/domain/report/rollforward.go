package report

import (
	"slices"

	"github.com/claimdesk/claimdesk/internal/platform/apperror"
)

// Field names a report field that has a roll-forward policy.
type Field string

const (
	FieldDOSStart            Field = "dos_start"
	FieldDOSEnd              Field = "dos_end"
	FieldNextReportDue       Field = "next_report_due"
	FieldStatusTreatmentPlan Field = "status_treatment_plan"
	FieldWorkStatus          Field = "work_status"
	FieldCaseManagementPlan  Field = "case_management_plan"
	FieldEmploymentStatus    Field = "employment_status"
	FieldTreatingProvider    Field = "treating_provider_id"
	FieldTreatingProviders   Field = "treating_provider_ids"
	FieldBarriers            Field = "barrier_ids"

	FieldDiagnosis            Field = "initial_diagnosis"
	FieldMechanismOfInjury    Field = "initial_mechanism_of_injury"
	FieldCoexistingConditions Field = "initial_coexisting_conditions"
	FieldSurgicalHistory      Field = "initial_surgical_history"
	FieldMedications          Field = "initial_medications"
	FieldDiagnostics          Field = "initial_diagnostics"
	FieldPrimaryCareProvider  Field = "initial_primary_care_provider"
	FieldNextApptDatetime     Field = "initial_next_appt_datetime"
	FieldNextApptProvider     Field = "initial_next_appt_provider"
	FieldNextApptNotes        Field = "initial_next_appt_notes"

	FieldClosureReason  Field = "closure_reason"
	FieldClosureDetails Field = "closure_details"
	FieldClosureImpact  Field = "closure_case_management_impact"
)

// Policy says how a field is carried from the prior report.
type Policy string

const (
	PolicyCopyFromPrior Policy = "copy-from-prior"
	PolicyNever         Policy = "never"
	PolicyNotApplicable Policy = "not-applicable"
)

type rollForwardRule struct {
	Field     Field
	Policy    Policy
	AppliesTo []ReportType
	// copy moves the value from src to dst. It is nil for fields that never
	// roll forward.
	copy func(dst, src *Report)
}

var (
	everyType   = allTypes
	initialOnly = []ReportType{TypeInitial}
	closureOnly = []ReportType{TypeClosure}
)

// rollForwardPolicies is the single source of roll-forward behaviour. Adding
// a field means adding a row here.
var rollForwardPolicies = []rollForwardRule{
	{FieldDOSStart, PolicyNever, everyType, nil},
	{FieldDOSEnd, PolicyNever, everyType, nil},
	{FieldNextReportDue, PolicyNever, []ReportType{TypeInitial, TypeProgress}, nil},

	{FieldStatusTreatmentPlan, PolicyCopyFromPrior, everyType, func(d, s *Report) { d.StatusTreatmentPlan = s.StatusTreatmentPlan }},
	{FieldWorkStatus, PolicyCopyFromPrior, everyType, func(d, s *Report) { d.WorkStatus = s.WorkStatus }},
	{FieldCaseManagementPlan, PolicyCopyFromPrior, everyType, func(d, s *Report) { d.CaseManagementPlan = s.CaseManagementPlan }},
	{FieldEmploymentStatus, PolicyCopyFromPrior, everyType, func(d, s *Report) { d.EmploymentStatus = s.EmploymentStatus }},
	{FieldTreatingProvider, PolicyCopyFromPrior, everyType, func(d, s *Report) {
		d.TreatingProviderID = nil
		if s.TreatingProviderID != nil {
			id := *s.TreatingProviderID
			d.TreatingProviderID = &id
		}
	}},
	{FieldTreatingProviders, PolicyCopyFromPrior, everyType, func(d, s *Report) { d.TreatingProviderIDs = slices.Clone(s.TreatingProviderIDs) }},
	{FieldBarriers, PolicyCopyFromPrior, everyType, func(d, s *Report) { d.BarrierIDs = slices.Clone(s.BarrierIDs) }},

	{FieldDiagnosis, PolicyCopyFromPrior, initialOnly, copyInitial(func(d, s *InitialFields) { d.Diagnosis = s.Diagnosis })},
	{FieldMechanismOfInjury, PolicyCopyFromPrior, initialOnly, copyInitial(func(d, s *InitialFields) { d.MechanismOfInjury = s.MechanismOfInjury })},
	{FieldCoexistingConditions, PolicyCopyFromPrior, initialOnly, copyInitial(func(d, s *InitialFields) { d.CoexistingConditions = s.CoexistingConditions })},
	{FieldSurgicalHistory, PolicyCopyFromPrior, initialOnly, copyInitial(func(d, s *InitialFields) { d.SurgicalHistory = s.SurgicalHistory })},
	{FieldMedications, PolicyCopyFromPrior, initialOnly, copyInitial(func(d, s *InitialFields) { d.Medications = s.Medications })},
	{FieldDiagnostics, PolicyCopyFromPrior, initialOnly, copyInitial(func(d, s *InitialFields) { d.Diagnostics = s.Diagnostics })},
	{FieldPrimaryCareProvider, PolicyCopyFromPrior, initialOnly, copyInitial(func(d, s *InitialFields) { d.PrimaryCareProvider = s.PrimaryCareProvider })},
	{FieldNextApptDatetime, PolicyNever, initialOnly, nil},
	{FieldNextApptProvider, PolicyNever, initialOnly, nil},
	{FieldNextApptNotes, PolicyNever, initialOnly, nil},

	// Closure is a one-time terminal report; none of its fields carry over.
	{FieldClosureReason, PolicyNever, closureOnly, nil},
	{FieldClosureDetails, PolicyNever, closureOnly, nil},
	{FieldClosureImpact, PolicyNever, closureOnly, nil},
}

// copyInitial lifts a copy of initial-only fields to whole reports. When the
// source has no initial payload the destination is left as is.
func copyInitial(fn func(d, s *InitialFields)) func(d, s *Report) {
	return func(d, s *Report) {
		if s.Initial == nil || d.Initial == nil {
			return
		}
		fn(d.Initial, s.Initial)
	}
}

func lookupRule(f Field) (rollForwardRule, bool) {
	i := slices.IndexFunc(rollForwardPolicies, func(r rollForwardRule) bool { return r.Field == f })
	if i < 0 {
		return rollForwardRule{}, false
	}
	return rollForwardPolicies[i], true
}

// PolicyFor returns the policy for f on a report of type t. A field whose
// rule does not cover t is not applicable.
func PolicyFor(f Field, t ReportType) (Policy, error) {
	rule, ok := lookupRule(f)
	if !ok {
		return "", apperror.New(apperror.KindInvalid, "unknown report field %q", f)
	}
	if !slices.Contains(rule.AppliesTo, t) {
		return PolicyNotApplicable, nil
	}
	return rule.Policy, nil
}

// RollForward copies every copy-from-prior field that applies to dst's type
// from prior into dst and returns the fields it copied. A nil prior copies
// nothing and leaves dst at its defaults.
func RollForward(dst, prior *Report) []Field {
	if prior == nil {
		return nil
	}
	var copied []Field
	for _, rule := range rollForwardPolicies {
		if rule.Policy != PolicyCopyFromPrior || !slices.Contains(rule.AppliesTo, dst.ReportType) {
			continue
		}
		rule.copy(dst, prior)
		copied = append(copied, rule.Field)
	}
	return copied
}

// RollForwardOne copies a single field from prior into dst. It fails when f
// is not a copy-from-prior field for dst's type. A nil prior is a no-op.
func RollForwardOne(dst, prior *Report, f Field) error {
	policy, err := PolicyFor(f, dst.ReportType)
	if err != nil {
		return err
	}
	if policy != PolicyCopyFromPrior {
		return &apperror.Error{
			Kind:    apperror.KindInvalid,
			Message: "field " + string(f) + " does not roll forward on " + string(dst.ReportType) + " reports",
			Reason:  string(policy),
		}
	}
	if prior == nil {
		return nil
	}
	rule, _ := lookupRule(f)
	rule.copy(dst, prior)
	return nil
}
