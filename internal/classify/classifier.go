// Package classify groups booking rows into the fixed service buckets the
// admin table renders and derives each row's presentation state: status
// badge, price chip, after-hours flag, and which actions the operator may
// take.
package classify

import (
	"sort"
	"strings"

	"pawboard/internal/models"
)

// Bucket labels in render order. The order is fixed so operators always see
// the same four sections regardless of what the day's data contains.
var BucketNames = []string{
	"Daycare (6 AM - 3 PM)",
	"Daycare (6 AM - 8 PM)",
	"Daycare After Hours (6 AM - 11 PM)",
	"Boarding",
}

// Badge is the primary status badge of a row. Exactly one applies.
type Badge string

const (
	BadgeNone     Badge = ""
	BadgeCanceled Badge = "CANCELED"
	BadgePaid     Badge = "PAID"
	BadgePrepay   Badge = "PREPAY"
)

// Row is a booking with its derived presentation state.
type Row struct {
	Booking models.Booking `json:"booking"`

	Badge       Badge         `json:"badge,omitempty"`
	PriceTag    *models.Cents `json:"priceTag,omitempty"`
	AfterHours  bool          `json:"afterHours,omitempty"`
	MultiDog    bool          `json:"multiDog,omitempty"`
	CanCancel   bool          `json:"canCancel"`
	CanMarkPaid bool          `json:"canMarkPaid"`
}

// Group is one named service bucket. Empty groups are still emitted so the
// table renders a "no bookings" placeholder for every category.
type Group struct {
	Name string `json:"name"`
	Rows []Row  `json:"rows"`
}

// Result is the classified view of one day's bookings.
type Result struct {
	Groups []Group `json:"groups"`

	// Unclassified holds rows whose service label matched no bucket. They
	// are kept out of the rendered table but surfaced for diagnostics
	// instead of vanishing silently.
	Unclassified []models.Booking `json:"unclassified,omitempty"`
}

// Classify splits rows into the fixed ordered buckets, sorts each bucket by
// time (ascending string order, missing times first), and derives per-row
// presentation state. It never fails: malformed rows degrade field by field.
func Classify(rows []models.Booking) Result {
	groups := make([]Group, len(BucketNames))
	for i, name := range BucketNames {
		groups[i] = Group{Name: name, Rows: []Row{}}
	}

	var unclassified []models.Booking
	for _, b := range rows {
		idx, ok := bucketFor(b.ServiceType)
		if !ok {
			unclassified = append(unclassified, b)
			continue
		}
		groups[idx].Rows = append(groups[idx].Rows, deriveRow(b))
	}

	for i := range groups {
		rows := groups[i].Rows
		sort.SliceStable(rows, func(a, b int) bool {
			return rows[a].Booking.Time < rows[b].Booking.Time
		})
	}

	return Result{Groups: groups, Unclassified: unclassified}
}

// bucketFor maps a free-text service label to a bucket index. Matching is
// case-insensitive substring matching: the label is display text, not an
// enum, and future labels must not break the page.
func bucketFor(serviceType string) (int, bool) {
	s := strings.ToLower(serviceType)
	switch {
	case strings.Contains(s, "daycare") && strings.Contains(s, "6 am - 3 pm"):
		return 0, true
	case strings.Contains(s, "daycare") && strings.Contains(s, "6 am - 8 pm"):
		return 1, true
	case strings.Contains(s, "daycare") && strings.Contains(s, "after hours"):
		return 2, true
	case strings.Contains(s, "boarding"):
		return 3, true
	}
	return 0, false
}

// deriveRow computes the presentation state for one booking. The badge is an
// ordered first-match chain: canceled beats paid beats prepay. Actions are
// derived independently of the badge so a PREPAY row still offers mark-paid.
func deriveRow(b models.Booking) Row {
	row := Row{
		Booking:    b,
		PriceTag:   b.PriceTag(),
		AfterHours: b.IsAfterHours(),
		MultiDog:   b.Dogs() > 1,
	}

	switch {
	case b.IsCanceled():
		row.Badge = BadgeCanceled
	case b.Paid:
		row.Badge = BadgePaid
	case b.WantsAdvancePay && b.AdvanceEligible:
		row.Badge = BadgePrepay
	}

	row.CanMarkPaid = !b.Paid && !b.IsCanceled()
	// Approved rows can be canceled whether or not they are already paid
	// (a paid cancellation becomes a refund case handled server-side).
	row.CanCancel = b.IsApproved()

	return row
}
