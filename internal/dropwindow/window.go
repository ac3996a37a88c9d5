// Package dropwindow computes the weekly rank-drop reset and whether a drop is claimable again.
package dropwindow

import "time"

// The weekly drop resets every Wednesday at 02:00 UTC.
const (
	ResetWeekday = time.Wednesday
	ResetHour    = 2
	Week         = 7 * 24 * time.Hour
)

// LastReset returns the most recent reset instant at or before now.
func LastReset(now time.Time) time.Time {
	now = now.UTC()
	daysBack := (int(now.Weekday()) - int(ResetWeekday) + 7) % 7
	reset := time.Date(now.Year(), now.Month(), now.Day()-daysBack, ResetHour, 0, 0, 0, time.UTC)

	// Wednesday before 02:00 belongs to the previous week's window
	if reset.After(now) {
		reset = reset.AddDate(0, 0, -7)
	}
	return reset
}

// NextReset returns the first reset instant strictly after now.
func NextReset(now time.Time) time.Time {
	return LastReset(now).AddDate(0, 0, 7)
}

// IsAvailable reports whether a drop received at dropTime can be claimed again at now.
func IsAvailable(dropTime, now time.Time) bool {
	return LastReset(now).After(dropTime)
}

// AvailableSince is used when only a lower bound is known: no drop was obtained since bound.
// It returns true when the current window opened after bound and nil (unknown) otherwise.
func AvailableSince(bound, now time.Time) *bool {
	if LastReset(now).After(bound) {
		available := true
		return &available
	}
	return nil
}
