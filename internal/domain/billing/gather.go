package billing

import (
	"slices"
	"time"
)

// Gatherable reports whether b may go on an invoice covering [start, end]:
// complete, not yet invoiced, and dated inside the range inclusively.
func Gatherable(b *BillableItem, start, end time.Time) bool {
	if !b.IsComplete || b.IsInvoiced() {
		return false
	}
	d := dateOnly(b.ServiceDate)
	return !d.Before(dateOnly(start)) && !d.After(dateOnly(end))
}

// Select returns the gatherable items of items ordered by service date, then
// creation time. It never modifies the items.
func Select(items []*BillableItem, start, end time.Time) []*BillableItem {
	out := make([]*BillableItem, 0, len(items))
	for _, b := range items {
		if Gatherable(b, start, end) {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b *BillableItem) int {
		if c := a.ServiceDate.Compare(b.ServiceDate); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// Span returns the earliest and latest service dates of items, which must
// not be empty.
func Span(items []*BillableItem) (time.Time, time.Time) {
	start, end := items[0].ServiceDate, items[0].ServiceDate
	for _, b := range items[1:] {
		if b.ServiceDate.Before(start) {
			start = b.ServiceDate
		}
		if b.ServiceDate.After(end) {
			end = b.ServiceDate
		}
	}
	return dateOnly(start), dateOnly(end)
}
