// Package invoice computes the weekly billing pane: paid/unpaid totals and
// counts over one week's invoice rows.
package invoice

import (
	"sort"
	"strings"

	"pawboard/internal/models"
)

// Summary holds the aggregate figures shown above the invoice table.
type Summary struct {
	GrandTotal  models.Cents `json:"grandTotal"`
	PaidTotal   models.Cents `json:"paidTotal"`
	UnpaidTotal models.Cents `json:"unpaidTotal"`

	CustomerCount int `json:"customerCount"`
	PaidCount     int `json:"paidCount"`
	UnpaidCount   int `json:"unpaidCount"`
}

// Aggregate partitions rows by the paid flag and sums each side. Amounts are
// integer cents, so PaidTotal + UnpaidTotal == GrandTotal exactly. The
// summary is recomputed from scratch on every call; nothing accumulates
// between calls, so repeated aggregation of the same rows is identical.
func Aggregate(rows []models.InvoiceRow) Summary {
	var s Summary
	for _, r := range rows {
		s.GrandTotal += r.Amount
		s.CustomerCount++
		if r.Paid {
			s.PaidTotal += r.Amount
			s.PaidCount++
		} else {
			s.UnpaidTotal += r.Amount
			s.UnpaidCount++
		}
	}
	return s
}

// SortRows orders invoice rows by customer name, case-insensitively, the way
// the billing tab lists them. Ties keep their incoming order.
func SortRows(rows []models.InvoiceRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a := strings.ToLower(rows[i].CustomerName)
		b := strings.ToLower(rows[j].CustomerName)
		return a < b
	})
}
