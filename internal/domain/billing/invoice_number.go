package billing

import "fmt"

// FormatInvoiceNumber renders INV-YY-### from a year and that year's
// sequence value. The sequence is zero-padded to three digits and widens
// past 999.
func FormatInvoiceNumber(year, seq int) string {
	return fmt.Sprintf("INV-%02d-%03d", year%100, seq)
}
