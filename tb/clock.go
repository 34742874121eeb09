package tb

import (
	"github.com/sarchlab/rtltb/sim"
)

// A Clock toggles a signal with a fixed half period.
type Clock struct {
	Signal     *sim.Signal
	HalfPeriod sim.VTime
}

// Period returns the full clock period.
func (c Clock) Period() sim.VTime {
	return 2 * c.HalfPeriod
}

// Run drives 0, waits a half period, drives 1, waits a half period and
// repeats until the task is cancelled.
func (c Clock) Run(t *sim.Task) error {
	for {
		c.Signal.Set(0)
		t.Await(sim.Timer(c.HalfPeriod))
		c.Signal.Set(1)
		t.Await(sim.Timer(c.HalfPeriod))
	}
}
