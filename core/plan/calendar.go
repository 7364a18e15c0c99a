package plan

import (
	"time"

	"github.com/loanerfleet/loanerfleet/core/model"
)

// Calendar is the per-(office, date) slot ceiling for the scheduling
// horizon. Explicit rows win; otherwise weekends and holidays are
// blackouts and weekdays fall back to the office default.
type Calendar struct {
	office string
	slots  map[string]int
	notes  map[string]string
}

// buildCalendar materializes the ceiling for every day of the week from the
// explicit capacity rows, the holiday list and the weekday default.
func buildCalendar(rows []model.CapacityDay, cfg Config) *Calendar {
	cal := &Calendar{
		office: cfg.Office,
		slots:  make(map[string]int, 7),
		notes:  make(map[string]string),
	}
	explicit := make(map[string]model.CapacityDay)
	for _, r := range rows {
		if r.Office != cfg.Office {
			continue
		}
		explicit[model.DayKey(r.Date)] = r
	}
	holidays := cfg.holidaySet()
	for _, day := range cfg.week() {
		key := model.DayKey(day)
		if r, ok := explicit[key]; ok {
			slots := r.Slots
			if slots < 0 {
				slots = 0
			}
			cal.slots[key] = slots
			if r.Note != "" {
				cal.notes[key] = r.Note
			}
			continue
		}
		switch {
		case holidays[key]:
			cal.slots[key] = 0
			cal.notes[key] = "holiday"
		case day.Weekday() == time.Saturday || day.Weekday() == time.Sunday:
			cal.slots[key] = 0
			cal.notes[key] = "weekend"
		default:
			cal.slots[key] = cfg.DefaultWeekdaySlots
		}
	}
	return cal
}

// Slots returns the ceiling for a date. Dates outside the materialized
// window report zero.
func (c *Calendar) Slots(day time.Time) int {
	return c.slots[model.DayKey(day)]
}

// Note returns the audit note for a date, if any.
func (c *Calendar) Note(day time.Time) string {
	return c.notes[model.DayKey(day)]
}
