package forecastcache

import (
	"sync"
	"time"
)

// MockClock provides a controllable wall clock for testing refresh cycles
type MockClock struct {
	mu      sync.RWMutex
	current time.Time
}

// NewMockClock creates a new mock clock starting at the given time
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{
		current: start,
	}
}

// Now returns the current mocked time
func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Advance moves the clock forward by the given duration
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
}

// AdvanceTo moves the clock forward to the next weekday at hour:00:00,
// strictly after the current time
func (m *MockClock) AdvanceTo(weekday time.Weekday, hour int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	y, mo, d := m.current.Date()
	days := (int(weekday) - int(m.current.Weekday()) + 7) % 7
	next := time.Date(y, mo, d+days, hour, 0, 0, 0, m.current.Location())
	if !next.After(m.current) {
		next = time.Date(y, mo, d+days+7, hour, 0, 0, 0, m.current.Location())
	}
	m.current = next
}

// Set sets the clock to a specific time
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t
}

// Install replaces the global NowFunc with this mock clock
func (m *MockClock) Install() func() {
	originalNowFunc := NowFunc
	NowFunc = m.Now
	return func() {
		NowFunc = originalNowFunc
	}
}
