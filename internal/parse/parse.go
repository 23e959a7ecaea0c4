package parse

import (
	"errors"
	"fmt"
	"time"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/model"
)

// DateLayout is the wire format for booking dates.
const DateLayout = "2006-01-02"

// ErrFormat tags malformed caller input so the API layer can tell it apart
// from store failures.
var ErrFormat = errors.New("invalid")

// Date parses an ISO calendar date into midnight of that day in loc.
func Date(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w date %q: want YYYY-MM-DD", ErrFormat, s)
	}
	return t, nil
}

// Slot validates a slot identifier.
func Slot(s string) (string, error) {
	switch s {
	case model.SlotMorning, model.SlotEvening:
		return s, nil
	}
	return "", fmt.Errorf("%w slot %q: want %q or %q", ErrFormat, s, model.SlotMorning, model.SlotEvening)
}

// Window returns the start and end instants of a slot on the given day.
// day must be midnight in the slot timezone, as returned by Date.
func Window(cfg *config.SlotsConfig, day time.Time, slot string) (time.Time, time.Time) {
	if slot == model.SlotMorning {
		return day.Add(time.Duration(cfg.MorningStartHour) * time.Hour),
			day.Add(time.Duration(cfg.MorningEndHour) * time.Hour)
	}
	return day.Add(time.Duration(cfg.MorningEndHour) * time.Hour),
		day.Add(time.Duration(cfg.EveningEndHour) * time.Hour)
}

// SlotAt maps a wall-clock instant to the slot it falls into. The second
// return is false outside both windows (night hours).
func SlotAt(cfg *config.SlotsConfig, now time.Time) (string, bool) {
	h := now.Hour()
	switch {
	case h >= cfg.MorningStartHour && h < cfg.MorningEndHour:
		return model.SlotMorning, true
	case h >= cfg.MorningEndHour && h < cfg.EveningEndHour:
		return model.SlotEvening, true
	}
	return "", false
}

// IsWeekend reports whether the day is a prime (weekend) day.
func IsWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
