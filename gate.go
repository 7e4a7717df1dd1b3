package forecastcache

import "time"

// Publication cadence of the forecast provider: new rows are guaranteed to be
// in the backing file from Monday 10:00 on.
const (
	DefaultRefreshWeekday = time.Monday
	DefaultRefreshHour    = 10
)

// WeeklyGate permits one refresh per key per weekly publication cycle,
// and only inside the refresh window (the cycle weekday, at or after Hour).
// Times are evaluated in the location of the supplied clock value.
type WeeklyGate struct {
	Weekday time.Weekday
	Hour    int
}

var _ Gate = WeeklyGate{}

// DefaultGate is the provider's Monday 10:00 publication gate
var DefaultGate = WeeklyGate{Weekday: DefaultRefreshWeekday, Hour: DefaultRefreshHour}

// NewWeeklyGate creates a gate for a publication cadence other than the default
func NewWeeklyGate(weekday time.Weekday, hour int) WeeklyGate {
	if weekday < time.Sunday || weekday > time.Saturday {
		panic("weekday out of range")
	}
	if hour < 0 || hour > 23 {
		panic("hour must be in [0, 23]")
	}
	return WeeklyGate{Weekday: weekday, Hour: hour}
}

// InWindow reports whether now falls on the cycle weekday at or after the gate hour
func (g WeeklyGate) InWindow(now time.Time) bool {
	return now.Weekday() == g.Weekday && now.Hour() >= g.Hour
}

// CycleStart returns the most recent occurrence of the cycle weekday at 00:00:00 at or before now
func (g WeeklyGate) CycleStart(now time.Time) time.Time {
	daysBack := (int(now.Weekday()) - int(g.Weekday) + 7) % 7
	y, m, d := now.Date()
	return time.Date(y, m, d-daysBack, 0, 0, 0, 0, now.Location())
}

// NextCycleStart returns the start of the cycle following the one containing now
func (g WeeklyGate) NextCycleStart(now time.Time) time.Time {
	start := g.CycleStart(now)
	y, m, d := start.Date()
	return time.Date(y, m, d+7, 0, 0, 0, 0, start.Location())
}

// ShouldRefresh implements Gate.
// Outside the window the cached value is served as is, however old.
func (g WeeklyGate) ShouldRefresh(entry *Entry, now time.Time) bool {
	if !g.InWindow(now) {
		return false
	}
	if entry == nil || !entry.Valid {
		return true
	}
	return entry.LastRefreshed.Before(g.CycleStart(now))
}
