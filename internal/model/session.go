package model

import "time"

// Session represents a legislative session. StartDate and EndDate are
// calculated from source data and are distinct from any official calendar
// dates; sessions whose window could not be computed carry nil bounds and
// are excluded from temporal reasoning.
type Session struct {
	StartDate *time.Time
	EndDate   *time.Time
	Name      string
	ID        int64
}

// HasWindow reports whether the session has a usable calculated date range.
func (s *Session) HasWindow() bool {
	return s.StartDate != nil && s.EndDate != nil
}

// Contains reports whether t falls within the session window, boundaries
// inclusive.
func (s *Session) Contains(t time.Time) bool {
	return s.HasWindow() && ClassifyPeriod(t, s) == PeriodDuring
}
