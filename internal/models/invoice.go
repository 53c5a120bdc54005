package models

// InvoiceRow is one customer's aggregate billing line for a week.
// CustomerEmail is unique within a single week's row set.
type InvoiceRow struct {
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	DogName       string `json:"dogName,omitempty"`
	Amount        Cents  `json:"amount"`
	Paid          bool   `json:"paid"`
}
