// Package capacity turns a raw capacity snapshot into the flat set of
// display fields behind the dashboard's utilization ribbon.
package capacity

import (
	"math"
	"strconv"
	"strings"

	"pawboard/internal/models"
)

// Placeholder is rendered for counts the server did not provide, so "no
// data" never reads as zero usage.
const Placeholder = "—"

// View is the render-ready utilization ribbon for one date.
type View struct {
	Date string `json:"date"`

	Total         string `json:"total"`
	Daycare       string `json:"daycare"`
	Boarding      string `json:"boarding"`
	EmergencyUsed string `json:"emergencyUsed"`

	TotalCap     string `json:"totalCap"`
	DaycareCap   string `json:"daycareCap"`
	BoardingCap  string `json:"boardingCap"`
	EmergencyCap string `json:"emergencyCap"`

	TotalPercent     int `json:"totalPercent"`
	DaycarePercent   int `json:"daycarePercent"`
	BoardingPercent  int `json:"boardingPercent"`
	EmergencyPercent int `json:"emergencyPercent"`

	EmergencyRemaining string `json:"emergencyRemaining"`
}

// Present maps a snapshot to display fields. Pure formatting: every absent
// number becomes the placeholder and every percent degrades to 0.
func Present(s models.CapacitySnapshot) View {
	return View{
		Date: s.Date,

		Total:         display(s.Total),
		Daycare:       display(s.Daycare),
		Boarding:      display(s.Boarding),
		EmergencyUsed: display(s.EmergencyUsed),

		TotalCap:     display(s.TotalCap),
		DaycareCap:   display(s.DaycareCap),
		BoardingCap:  display(s.BoardingCap),
		EmergencyCap: display(s.EmergencyCap),

		TotalPercent:     Percent(s.Total, s.TotalCap),
		DaycarePercent:   Percent(s.Daycare, s.DaycareCap),
		BoardingPercent:  Percent(s.Boarding, s.BoardingCap),
		EmergencyPercent: Percent(s.EmergencyUsed, s.EmergencyCap),

		EmergencyRemaining: emergencyRemaining(s),
	}
}

// Percent returns used/cap as a whole percentage, rounded half-up. A missing
// or non-positive cap yields 0 rather than a division error.
func Percent(used, limit *int) int {
	if used == nil || limit == nil || *limit <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(*used) / float64(*limit)))
}

// EmergencyRemaining returns the unused emergency spots, floored at zero.
func EmergencyRemaining(used, limit *int) int {
	if used == nil || limit == nil {
		return 0
	}
	if rem := *limit - *used; rem > 0 {
		return rem
	}
	return 0
}

// CanBook reports whether a regular booking of the given service type still
// fits inside the normal caps for the snapshot's date.
func CanBook(s models.CapacitySnapshot, serviceType string) bool {
	if filled(s.Total, s.TotalCap) {
		return false
	}
	svc := strings.ToLower(serviceType)
	switch {
	case strings.Contains(svc, "daycare"):
		return !filled(s.Daycare, s.DaycareCap)
	case strings.Contains(svc, "boarding"):
		return !filled(s.Boarding, s.BoardingCap)
	}
	// Unknown service: be conservative.
	return false
}

// ShouldUseEmergency reports whether an admin booking of the given service
// would have to consume an emergency spot: the category cap is full but the
// day total and emergency pool still have room.
func ShouldUseEmergency(s models.CapacitySnapshot, serviceType string) bool {
	if filled(s.Total, s.TotalCap) || EmergencyRemaining(s.EmergencyUsed, s.EmergencyCap) == 0 {
		return false
	}
	svc := strings.ToLower(serviceType)
	switch {
	case strings.Contains(svc, "daycare"):
		return filled(s.Daycare, s.DaycareCap)
	case strings.Contains(svc, "boarding"):
		return filled(s.Boarding, s.BoardingCap)
	}
	return false
}

func filled(used, limit *int) bool {
	if used == nil || limit == nil {
		return false
	}
	return *used >= *limit
}

func emergencyRemaining(s models.CapacitySnapshot) string {
	if s.EmergencyUsed == nil || s.EmergencyCap == nil {
		return Placeholder
	}
	return strconv.Itoa(EmergencyRemaining(s.EmergencyUsed, s.EmergencyCap))
}

func display(v *int) string {
	if v == nil {
		return Placeholder
	}
	return strconv.Itoa(*v)
}
