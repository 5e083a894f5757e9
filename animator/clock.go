package animator

import "time"

// Clock astrae il tempo usato dal sequencer
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer è il timer restituito da Clock
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// RealClock usa il tempo di sistema
type RealClock struct{}

// Now implementa Clock
func (RealClock) Now() time.Time {
	return time.Now()
}

// NewTimer implementa Clock
func (RealClock) NewTimer(d time.Duration) Timer {
	return realTimer{time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (rt realTimer) C() <-chan time.Time {
	return rt.t.C
}

func (rt realTimer) Stop() bool {
	return rt.t.Stop()
}
