package clock

import "time"

// Clock abstracts the time source so key dates and retention cutoffs can be
// pinned in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns the wall clock.
func System() Clock { return systemClock{} }

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// In wraps c so every Now is expressed in loc.
func In(c Clock, loc *time.Location) Clock {
	return located{c: c, loc: loc}
}

type located struct {
	c   Clock
	loc *time.Location
}

func (l located) Now() time.Time { return l.c.Now().In(l.loc) }
