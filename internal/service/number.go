package service

import "fmt"

// noGSTSeries is the extra path segment carried by no-GST invoice numbers:
// INV/2026/WG/0042 instead of INV/2026/0042.
const noGSTSeries = "WG"

// numberAttempts bounds the retry-with-recount loop when a generated
// invoice number collides with a concurrently created one.
const numberAttempts = 3

// formatInvoiceNumber renders the franchise's sequential invoice number for
// a calendar year. The sequence is zero-padded to four digits.
func formatInvoiceNumber(year int, seq int64, series string) string {
	if series != "" {
		return fmt.Sprintf("INV/%04d/%s/%04d", year, series, seq)
	}
	return fmt.Sprintf("INV/%04d/%04d", year, seq)
}
