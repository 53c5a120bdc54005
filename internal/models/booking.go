package models

import "strings"

// Booking statuses used by the daycare server. Other values pass through
// unchanged; the dashboard only branches on these two.
const (
	StatusApproved = "APPROVED"
	StatusCanceled = "CANCELED"
)

// Booking is one reservation row as served by the admin bookings endpoint.
// The server owns the lifecycle; the dashboard only reads snapshots.
type Booking struct {
	ID               int64  `json:"id"`
	CustomerName     string `json:"customerName"`
	CustomerEmail    string `json:"customerEmail,omitempty"`
	DogName          string `json:"dogName,omitempty"`
	DogCount         int    `json:"dogCount,omitempty"`
	ServiceType      string `json:"serviceType"`
	Time             string `json:"time,omitempty"`
	Status           string `json:"status"`
	Paid             bool   `json:"paid"`
	WantsAdvancePay  bool   `json:"wantsAdvancePay"`
	AdvanceEligible  bool   `json:"advanceEligible"`
	LiveAmount       *Cents `json:"liveAmount,omitempty"`
	QuotedRateAtLock *Cents `json:"quotedRateAtLock,omitempty"`
}

// IsCanceled reports whether the booking is canceled, case-insensitively.
func (b *Booking) IsCanceled() bool {
	return strings.EqualFold(b.Status, StatusCanceled)
}

// IsApproved reports whether the booking is approved, case-insensitively.
func (b *Booking) IsApproved() bool {
	return strings.EqualFold(b.Status, StatusApproved)
}

// IsAfterHours reports whether the service label marks an after-hours slot.
func (b *Booking) IsAfterHours() bool {
	return strings.Contains(strings.ToLower(b.ServiceType), "after hours")
}

// Dogs returns the dog count, defaulting to 1 when the field is absent.
func (b *Booking) Dogs() int {
	if b.DogCount < 1 {
		return 1
	}
	return b.DogCount
}

// PriceTag returns the amount to show on the row's price chip.
// The live tier-aware amount wins over a stale locked quote; nil means
// no chip is rendered at all.
func (b *Booking) PriceTag() *Cents {
	if b.LiveAmount != nil {
		return b.LiveAmount
	}
	return b.QuotedRateAtLock
}
