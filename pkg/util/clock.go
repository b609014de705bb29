package util

import "time"

// Clock abstracts time for components that stamp orders and trades,
// so tests can pin timestamps.
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (RealClock) Now() time.Time                         { return time.Now() }

// FrozenClock always reports the same instant.
type FrozenClock struct {
	T time.Time
}

func (c FrozenClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (c FrozenClock) Now() time.Time                         { return c.T }
