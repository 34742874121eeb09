// Package device provides a behavioral FIFO that keeps its words in an
// external synchronous memory. It stands in for the design under test of a
// testbench.
package device

import (
	"github.com/sarchlab/rtltb/sim"
)

// A FIFO is a first-in first-out buffer with a stream interface on each side
// and a memory interface under the "mem" scope.
//
// The registered state changes on each rising clock edge, before any task
// waiting for that edge resumes. The memory interface is combinational: it
// follows the handshake lines as soon as they change. The read address looks
// ahead by one word when the output handshake completes, so that the memory
// presents the next word by the following edge.
//
// A pushed word only becomes visible on the output one cycle after its push,
// once the memory has stored it.
type FIFO struct {
	name           string
	style          PinStyle
	pins           Pins
	capacity       int
	addrMask       uint64
	resetActiveLow bool
	bundle         *sim.Bundle

	clk, rst                    *sim.Signal
	inValid, inReady, inData    *sim.Signal
	outValid, outReady, outData *sim.Signal
	memReadAddr, memWriteAddr   *sim.Signal
	memWrite                    *sim.Signal

	count    int
	avail    int
	lastPush bool
	wrPtr    uint64
	rdPtr    uint64
}

// Name returns the name of the FIFO.
func (f *FIFO) Name() string {
	return f.name
}

// Style returns the pin style.
func (f *FIFO) Style() PinStyle {
	return f.style
}

// Pins returns the data-path pin names.
func (f *FIFO) Pins() Pins {
	return f.pins
}

// Capacity returns the number of words the FIFO can hold.
func (f *FIFO) Capacity() int {
	return f.capacity
}

// Bundle returns the signals of the FIFO.
func (f *FIFO) Bundle() *sim.Bundle {
	return f.bundle
}

// Signal looks up a signal of the FIFO by name.
func (f *FIFO) Signal(name string) (*sim.Signal, bool) {
	return f.bundle.Signal(name)
}

// Occupancy returns the number of words pushed and not yet popped.
func (f *FIFO) Occupancy() int {
	return f.count
}

func (f *FIFO) inResetState() bool {
	return f.rst.Bool() != f.resetActiveLow
}

func (f *FIFO) inputReady() bool {
	return f.inReady.Bool() != f.pins.InReadyActiveLow
}

func (f *FIFO) outputValid() bool {
	return f.outValid.Bool() != f.pins.OutValidActiveLow
}

func (f *FIFO) driveInputReady(ready bool) {
	f.inReady.SetBool(ready != f.pins.InReadyActiveLow)
}

func (f *FIFO) driveOutputValid(valid bool) {
	f.outValid.SetBool(valid != f.pins.OutValidActiveLow)
}

func (f *FIFO) tick() {
	if f.inResetState() {
		f.reset()
		return
	}

	push := f.inValid.Bool() && f.inputReady() && f.count < f.capacity
	pop := f.outputValid() && f.outReady.Bool() && f.avail > 0

	if push {
		f.wrPtr = (f.wrPtr + 1) & f.addrMask
		f.count++
	}

	if pop {
		f.rdPtr = (f.rdPtr + 1) & f.addrMask
		f.count--
		f.avail--
	}

	if f.lastPush {
		f.avail++
	}
	f.lastPush = push

	f.driveInputReady(f.count < f.capacity)
	f.driveOutputValid(f.avail > 0)
	f.updateMemoryInterface()
}

func (f *FIFO) reset() {
	f.count = 0
	f.avail = 0
	f.lastPush = false
	f.wrPtr = 0
	f.rdPtr = 0

	f.driveInputReady(false)
	f.driveOutputValid(false)
	f.updateMemoryInterface()
}

func (f *FIFO) updateMemoryInterface() {
	write := f.inValid.Bool() && f.inputReady() && f.count < f.capacity
	f.memWrite.SetBool(write)
	f.memWriteAddr.Set(f.wrPtr)

	raddr := f.rdPtr
	if f.outputValid() && f.outReady.Bool() && f.avail > 0 {
		raddr = (raddr + 1) & f.addrMask
	}
	f.memReadAddr.Set(raddr)
}
