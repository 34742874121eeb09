package tb

import (
	"github.com/sarchlab/rtltb/sim"
)

// A ResetSequencer holds a device in reset for a number of clock cycles and
// then lets it settle.
type ResetSequencer struct {
	Clock        *sim.Signal
	Reset        Line
	HoldCycles   int
	SettleCycles int

	// Idle lines are deasserted when the reset starts.
	Idle []Line
}

// Run drives the reset sequence. It returns once the device has settled.
func (r ResetSequencer) Run(t *sim.Task) error {
	sim.RisingEdgeReadWrite(t, r.Clock)

	for _, l := range r.Idle {
		l.Drive(false)
	}
	r.Reset.Drive(true)

	sim.ClockCycles(t, r.Clock, r.HoldCycles)
	r.Reset.Drive(false)
	sim.ClockCycles(t, r.Clock, r.SettleCycles)

	return nil
}
