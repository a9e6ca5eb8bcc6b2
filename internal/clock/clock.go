package clock

import "time"

// Clock abstracts "now" so scheduling rules can be tested with fixed times.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func System() Clock { return systemClock{} }
