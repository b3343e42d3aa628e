package recurring

import "time"

const week = 7 * 24 * time.Hour

// TodayAt returns today's date (UTC, relative to now) at the given clock
// time. Due and reminder times are always computed from the firing time,
// never from stored state.
func TodayAt(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
}

// ShouldFireBiweekly reports whether an alternating biweekly series fires
// on the given day. The series fires on its anchor date and every 14 days
// after; firings an odd number of weeks past the anchor, or before the
// anchor, are skipped. Each series carries its own anchor, so two series
// on the same weekday can run in opposite phase.
func ShouldFireBiweekly(today, anchor time.Time) bool {
	if today.Before(anchor) {
		return false
	}
	elapsedWeeks := int(today.Sub(anchor) / week)
	return elapsedWeeks%2 == 0
}
