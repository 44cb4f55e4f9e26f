package clock

import "time"

// Clock abstracts time.Now so billing-date logic stays testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func New() Clock { return systemClock{} }

// Fixed returns a clock pinned to t, for tests.
func Fixed(t time.Time) Clock { return fixedClock{t: t.UTC()} }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
