package tb

import "github.com/sarchlab/rtltb/sim"

// A Line is a one-bit control signal together with its polarity.
type Line struct {
	Signal    *sim.Signal
	ActiveLow bool
}

// ActiveHigh returns a line that is asserted when the signal is 1.
func ActiveHigh(s *sim.Signal) Line {
	return Line{Signal: s}
}

// ActiveLow returns a line that is asserted when the signal is 0.
func ActiveLow(s *sim.Signal) Line {
	return Line{Signal: s, ActiveLow: true}
}

// Connected returns true if the line has a signal.
func (l Line) Connected() bool {
	return l.Signal != nil
}

// Asserted returns true if the line carries its condition. A line without a
// signal is always asserted.
func (l Line) Asserted() bool {
	if l.Signal == nil {
		return true
	}

	return l.Signal.Bool() != l.ActiveLow
}

// Drive asserts or deasserts the line.
func (l Line) Drive(asserted bool) {
	l.Signal.SetBool(asserted != l.ActiveLow)
}
