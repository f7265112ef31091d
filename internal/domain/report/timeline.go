package report

import (
	"bytes"
	"iter"
	"slices"

	"github.com/google/uuid"
)

// Timeline is a claim's non-deleted reports in chronological order: dos_end
// ascending, then created_at ascending, then id. Every "latest" and "prior"
// lookup and every numbering decision goes through it.
type Timeline struct {
	claimID uuid.UUID
	reports []*Report
}

// NewTimeline orders reports and drops deleted ones. The input slice is not
// modified.
func NewTimeline(claimID uuid.UUID, reports []*Report) Timeline {
	kept := make([]*Report, 0, len(reports))
	for _, r := range reports {
		if !r.Deleted {
			kept = append(kept, r)
		}
	}
	slices.SortStableFunc(kept, compareChronological)
	return Timeline{claimID: claimID, reports: kept}
}

func compareChronological(a, b *Report) int {
	if c := a.DOSEnd.Compare(b.DOSEnd); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

func (t Timeline) ClaimID() uuid.UUID { return t.claimID }

func (t Timeline) Len() int { return len(t.reports) }

// All yields the reports in order. The sequence can be ranged over any
// number of times.
func (t Timeline) All() iter.Seq[*Report] {
	return func(yield func(*Report) bool) {
		for _, r := range t.reports {
			if !yield(r) {
				return
			}
		}
	}
}

// Latest returns the most recent report, or nil for an empty timeline.
func (t Timeline) Latest() *Report {
	if len(t.reports) == 0 {
		return nil
	}
	return t.reports[len(t.reports)-1]
}

// Find returns the report with id and its position, or nil and -1.
func (t Timeline) Find(id uuid.UUID) (*Report, int) {
	i := slices.IndexFunc(t.reports, func(r *Report) bool { return r.ID == id })
	if i < 0 {
		return nil, -1
	}
	return t.reports[i], i
}

// Prior returns the report immediately before id. When id is not on the
// timeline the latest report is its prior.
func (t Timeline) Prior(id uuid.UUID) *Report {
	_, i := t.Find(id)
	switch {
	case i < 0:
		return t.Latest()
	case i == 0:
		return nil
	default:
		return t.reports[i-1]
	}
}

// Without returns a timeline lacking id.
func (t Timeline) Without(id uuid.UUID) Timeline {
	kept := slices.DeleteFunc(slices.Clone(t.reports), func(r *Report) bool { return r.ID == id })
	return Timeline{claimID: t.claimID, reports: kept}
}

// OfType yields the reports of type rt in order.
func (t Timeline) OfType(rt ReportType) iter.Seq[*Report] {
	return func(yield func(*Report) bool) {
		for r := range t.All() {
			if r.ReportType == rt && !yield(r) {
				return
			}
		}
	}
}

// ActiveClosure returns the latest closure report, if any.
func (t Timeline) ActiveClosure() *Report {
	var found *Report
	for r := range t.OfType(TypeClosure) {
		found = r
	}
	return found
}

// With returns a timeline that also holds r, in order.
func (t Timeline) With(r *Report) Timeline {
	return NewTimeline(t.claimID, append(slices.Clone(t.reports), r))
}
