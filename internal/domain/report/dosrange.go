package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claimdesk/claimdesk/internal/platform/apperror"
)

// Reason enumerates why a DOS range was rejected.
type Reason string

const (
	ReasonEndBeforeStart Reason = "end_before_start"
	ReasonOverlapsReport Reason = "overlaps_report"
)

// OverlapMode is the caller's choice of how an overlap is treated.
type OverlapMode string

const (
	// OverlapBlock turns an overlap into an OverlapViolation. Used on create.
	OverlapBlock OverlapMode = "block"
	// OverlapWarn lets the save through and returns the overlap as a warning.
	OverlapWarn OverlapMode = "warn"
)

func ParseOverlapMode(s string, fallback OverlapMode) (OverlapMode, error) {
	switch OverlapMode(s) {
	case "":
		return fallback, nil
	case OverlapBlock, OverlapWarn:
		return OverlapMode(s), nil
	}
	return "", apperror.New(apperror.KindInvalid, "overlap mode must be %q or %q", OverlapBlock, OverlapWarn)
}

// Validation is the outcome of checking a DOS range. ReportIDs lists every
// overlapping report in timeline order; the first one is the one named in
// the reason.
type Validation struct {
	Valid     bool        `json:"valid"`
	Reason    Reason      `json:"reason,omitempty"`
	ReportIDs []uuid.UUID `json:"report_ids,omitempty"`
}

func (v Validation) String() string {
	switch {
	case v.Valid:
		return "valid"
	case v.Reason == ReasonOverlapsReport && len(v.ReportIDs) > 0:
		return fmt.Sprintf("%s(%s)", v.Reason, v.ReportIDs[0])
	default:
		return string(v.Reason)
	}
}

// ValidateDOSRange checks [start, end] against the timeline. The report
// excludeID, when set, is skipped so an edit does not collide with its own
// saved range. Ranges are inclusive at both ends, so a report ending on the
// day another starts overlaps it.
func ValidateDOSRange(tl Timeline, excludeID uuid.UUID, start, end time.Time) Validation {
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return Validation{Reason: ReasonEndBeforeStart}
	}

	var hits []uuid.UUID
	for r := range tl.All() {
		if excludeID != uuid.Nil && r.ID == excludeID {
			continue
		}
		if !r.DOSStart.After(end) && !r.DOSEnd.Before(start) {
			hits = append(hits, r.ID)
		}
	}
	if len(hits) > 0 {
		return Validation{Reason: ReasonOverlapsReport, ReportIDs: hits}
	}
	return Validation{Valid: true}
}

// Err converts v into the error the caller should fail with under mode. An
// inverted range always fails; an overlap fails only under OverlapBlock.
func (v Validation) Err(mode OverlapMode) error {
	switch {
	case v.Valid:
		return nil
	case v.Reason == ReasonEndBeforeStart:
		return &apperror.Error{
			Kind:    apperror.KindInvalidRange,
			Message: "dos_end is before dos_start",
			Reason:  string(ReasonEndBeforeStart),
		}
	case mode == OverlapWarn:
		return nil
	default:
		return &apperror.Error{
			Kind:      apperror.KindOverlapViolation,
			Message:   "dos range overlaps an existing report on this claim",
			Reason:    v.String(),
			ReportIDs: v.ReportIDs,
		}
	}
}
