// Package calendar implements the date arithmetic that drives which data
// window the dashboard fetches: Monday-anchored weeks, the "last completed
// week" default for invoicing, and day/week cursor navigation.
package calendar

import "time"

// WeekStartFor returns the Monday at midnight of the calendar week
// containing d. Sunday counts as day 7 of its week, so a Sunday maps to the
// Monday six days earlier, never forward.
func WeekStartFor(d time.Time) time.Time {
	offset := int(d.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday
	}
	d = d.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// LastCompletedWeekStart returns the Monday of the calendar week strictly
// before the week containing now.
func LastCompletedWeekStart(now time.Time) time.Time {
	return WeekStartFor(now).AddDate(0, 0, -7)
}

// WeekEnd returns the end of the Sunday closing the week that starts at ws.
func WeekEnd(ws time.Time) time.Time {
	sunday := ws.AddDate(0, 0, 6)
	return time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), sunday.Location())
}

// Cursor holds the two navigation positions of the dashboard: the focus date
// for the bookings pane and the week start for the invoice pane. Values are
// immutable; every navigation returns a new Cursor.
type Cursor struct {
	Focus     time.Time
	WeekStart time.Time
}

// NewCursor returns the initial cursor for now: bookings focused on today,
// invoices on the last completed week.
func NewCursor(now time.Time) Cursor {
	return Cursor{
		Focus:     midnight(now),
		WeekStart: LastCompletedWeekStart(now),
	}
}

// ShiftDay moves the focus date by days and re-derives the invoice week from
// the new focus, keeping the two panes on the same period.
func (c Cursor) ShiftDay(days int) Cursor {
	focus := c.Focus.AddDate(0, 0, days)
	return Cursor{Focus: focus, WeekStart: WeekStartFor(focus)}
}

// ShiftWeek moves the invoice week alone; the bookings focus stays put.
func (c Cursor) ShiftWeek(weeks int) Cursor {
	return Cursor{Focus: c.Focus, WeekStart: c.WeekStart.AddDate(0, 0, 7*weeks)}
}

// ResetToToday re-anchors the focus on now and the invoice week on the week
// containing now.
func (c Cursor) ResetToToday(now time.Time) Cursor {
	return Cursor{Focus: midnight(now), WeekStart: WeekStartFor(now)}
}

func midnight(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}
