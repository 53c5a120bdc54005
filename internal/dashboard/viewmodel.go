package dashboard

import (
	"time"

	"pawboard/internal/capacity"
	"pawboard/internal/classify"
	"pawboard/internal/invoice"
	"pawboard/internal/models"
)

// BookingsPane is the classified booking table for the focus date.
type BookingsPane struct {
	Date   string          `json:"date"`
	Result classify.Result `json:"result"`

	// Stale marks content carried over from an earlier fetch (or the
	// snapshot store) after a failed refresh.
	Stale bool `json:"stale,omitempty"`
}

// InvoicesPane is the weekly billing table plus its aggregate header.
type InvoicesPane struct {
	WeekStart string              `json:"weekStart"`
	WeekEnd   string              `json:"weekEnd"`
	Rows      []models.InvoiceRow `json:"rows"`
	Summary   invoice.Summary     `json:"summary"`
	Stale     bool                `json:"stale,omitempty"`
}

// CapacityPane is the utilization ribbon for the focus date.
type CapacityPane struct {
	Date  string        `json:"date"`
	View  capacity.View `json:"view"`
	Stale bool          `json:"stale,omitempty"`
}

// ViewModel is the complete render-ready state of the dashboard. The render
// collaborator consumes it as-is; the controller never touches markup.
type ViewModel struct {
	Bookings  BookingsPane `json:"bookings"`
	Invoices  InvoicesPane `json:"invoices"`
	Capacity  CapacityPane `json:"capacity"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
