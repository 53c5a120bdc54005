package models

// CapacitySnapshot holds per-category usage vs. configured ceilings for one
// date. Counts are pointers so a missing value ("no data") stays
// distinguishable from a genuine zero.
type CapacitySnapshot struct {
	Date string `json:"date"`

	Total         *int `json:"total,omitempty"`
	Daycare       *int `json:"daycare,omitempty"`
	Boarding      *int `json:"boarding,omitempty"`
	EmergencyUsed *int `json:"emergencyUsed,omitempty"`

	TotalCap     *int `json:"totalCap,omitempty"`
	DaycareCap   *int `json:"daycareCap,omitempty"`
	BoardingCap  *int `json:"boardingCap,omitempty"`
	EmergencyCap *int `json:"emergencyCap,omitempty"`
}
