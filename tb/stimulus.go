package tb

import (
	"math/rand"

	"github.com/sarchlab/rtltb/sim"
)

// ProgressReporter is notified of each stimulus cycle.
type ProgressReporter interface {
	IncrementFinished(amount uint64)
}

// A Stimulus drives random traffic into the valid/data side of a handshake.
//
// After each rising edge, in the read-write phase, it asserts valid with the
// given probability and drives the cycle number as data. Otherwise it
// deasserts valid. A negative number of cycles runs forever.
type Stimulus struct {
	Clock       *sim.Signal
	Valid       Line
	Data        *sim.Signal
	Probability float64
	Cycles      int
	Rand        *rand.Rand
	Progress    ProgressReporter
}

// Run drives the stimulus and deasserts valid at the end.
func (s *Stimulus) Run(t *sim.Task) error {
	for j := 0; s.Cycles < 0 || j < s.Cycles; j++ {
		sim.RisingEdgeReadWrite(t, s.Clock)

		if s.Rand.Float64() < s.Probability {
			s.Data.Set(uint64(j))
			s.Valid.Drive(true)
		} else {
			s.Valid.Drive(false)
		}

		if s.Progress != nil {
			s.Progress.IncrementFinished(1)
		}
	}

	s.Valid.Drive(false)

	return nil
}

// A ReadyToggler randomly asserts the ready side of a handshake.
type ReadyToggler struct {
	Clock       *sim.Signal
	Ready       Line
	Probability float64
	Rand        *rand.Rand
}

// Run toggles the line after every rising edge until cancelled.
func (r *ReadyToggler) Run(t *sim.Task) error {
	for {
		sim.RisingEdgeReadWrite(t, r.Clock)
		r.Ready.Drive(r.Rand.Float64() < r.Probability)
	}
}
