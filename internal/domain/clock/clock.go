package clock

import "time"

// Clock supplies the timestamps the settlement engine compares deadlines
// against. Injected so deadline behavior is testable without sleeping.
type Clock interface {
	Now() time.Time
}

// System reads the real wall clock in UTC.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant. Test helper.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}

// Manual is a settable clock for tests that advance time explicitly.
type Manual struct {
	T time.Time
}

func (m *Manual) Now() time.Time {
	return m.T
}

func (m *Manual) Advance(d time.Duration) {
	m.T = m.T.Add(d)
}
