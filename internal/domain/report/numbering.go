package report

import "github.com/google/uuid"

// DisplayNumber returns the 1-based position of a progress report among the
// progress reports on tl. Initial and closure reports are not numbered, nor
// is a report missing from tl. Deleting a report renumbers everything after
// it, so the result must never be stored.
func DisplayNumber(tl Timeline, id uuid.UUID) *int {
	n := 0
	for r := range tl.OfType(TypeProgress) {
		n++
		if r.ID == id {
			return &n
		}
	}
	return nil
}

// Sequence returns the 1-based position of id among all reports on tl, or 0
// when it is absent.
func Sequence(tl Timeline, id uuid.UUID) int {
	_, i := tl.Find(id)
	return i + 1
}

// Views pairs every report on tl with its display number and sequence.
func Views(tl Timeline) []ReportView {
	views := make([]ReportView, 0, tl.Len())
	progress, seq := 0, 0
	for r := range tl.All() {
		seq++
		v := ReportView{Report: r, Sequence: seq}
		if r.ReportType == TypeProgress {
			progress++
			n := progress
			v.DisplayNumber = &n
		}
		views = append(views, v)
	}
	return views
}
