package agent

import "time"

// #region quiet-hours

// quietHoursActive reports whether now falls inside the configured window.
// Both ends are inclusive and a start past the end wraps around midnight
// (22:00-07:00 covers the evening and the following morning).
func quietHoursActive(now time.Time, s Settings) bool {
	if !s.QuietHoursEnabled {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	start, end := s.QuietHoursStartMinute, s.QuietHoursEndMinute
	if start <= end {
		return minute >= start && minute <= end
	}
	return minute >= start || minute <= end
}

// #endregion quiet-hours
