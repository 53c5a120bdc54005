package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestWeekStartFor(t *testing.T) {
	// 2025-06-02 is a Monday.
	monday := date(2025, 6, 2)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday maps to itself", monday, monday},
		{"wednesday", date(2025, 6, 4), monday},
		{"saturday", date(2025, 6, 7), monday},
		{"sunday belongs to the preceding monday", date(2025, 6, 8), monday},
		{"next monday starts a new week", date(2025, 6, 9), date(2025, 6, 9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStartFor(tt.in))
		})
	}
}

func TestWeekStartFor_AlwaysMondayMidnight(t *testing.T) {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 400; i++ {
		ws := WeekStartFor(d)
		assert.Equal(t, time.Monday, ws.Weekday(), "input %s", d)
		assert.Equal(t, 0, ws.Hour())
		assert.Equal(t, 0, ws.Minute())
		// Idempotent once on a Monday.
		assert.Equal(t, ws, WeekStartFor(ws))
		d = d.AddDate(0, 0, 1)
	}
}

func TestWeekStartFor_IgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2025, 6, 4, 23, 45, 12, 999, time.UTC)
	assert.Equal(t, date(2025, 6, 2), WeekStartFor(late))
}

func TestLastCompletedWeekStart(t *testing.T) {
	// Wednesday of week W -> Monday of week W-1.
	wednesday := date(2025, 6, 4)
	assert.Equal(t, date(2025, 5, 26), LastCompletedWeekStart(wednesday))

	// Always exactly 7 days behind the current week start.
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		assert.Equal(t, WeekStartFor(d).AddDate(0, 0, -7), LastCompletedWeekStart(d))
		d = d.AddDate(0, 0, 1)
	}

	// Sunday is day 7 of its week, so it still points one week back, not
	// to the week just opened.
	sunday := date(2025, 6, 8)
	assert.Equal(t, date(2025, 5, 26), LastCompletedWeekStart(sunday))
}

func TestWeekEnd(t *testing.T) {
	end := WeekEnd(date(2025, 6, 2))
	assert.Equal(t, time.Sunday, end.Weekday())
	assert.Equal(t, 8, end.Day())
	assert.Equal(t, 23, end.Hour())
}

func TestCursor_Navigation(t *testing.T) {
	wednesday := time.Date(2025, 6, 4, 14, 30, 0, 0, time.UTC)

	t.Run("new cursor defaults to last completed week", func(t *testing.T) {
		c := NewCursor(wednesday)
		assert.Equal(t, date(2025, 6, 4), c.Focus)
		assert.Equal(t, date(2025, 5, 26), c.WeekStart)
	})

	t.Run("shift day re-derives the week", func(t *testing.T) {
		c := NewCursor(wednesday).ShiftDay(1)
		assert.Equal(t, date(2025, 6, 5), c.Focus)
		assert.Equal(t, date(2025, 6, 2), c.WeekStart)

		// Crossing into the next week moves the week start with it.
		c = c.ShiftDay(4) // Thursday + 4 = Monday 9th
		assert.Equal(t, date(2025, 6, 9), c.Focus)
		assert.Equal(t, date(2025, 6, 9), c.WeekStart)
	})

	t.Run("shift day backwards", func(t *testing.T) {
		c := NewCursor(wednesday).ShiftDay(-3) // Sunday 1st
		assert.Equal(t, date(2025, 6, 1), c.Focus)
		assert.Equal(t, date(2025, 5, 26), c.WeekStart)
	})

	t.Run("shift week leaves focus alone", func(t *testing.T) {
		c := NewCursor(wednesday)
		shifted := c.ShiftWeek(-2)
		assert.Equal(t, c.Focus, shifted.Focus)
		assert.Equal(t, date(2025, 5, 12), shifted.WeekStart)

		// No clamping in either direction.
		far := c.ShiftWeek(520)
		assert.Equal(t, time.Monday, far.WeekStart.Weekday())
	})

	t.Run("reset to today", func(t *testing.T) {
		c := NewCursor(wednesday).ShiftDay(-30).ResetToToday(wednesday)
		assert.Equal(t, date(2025, 6, 4), c.Focus)
		assert.Equal(t, date(2025, 6, 2), c.WeekStart)
	})
}
