// Package mem provides a behavioral model of a synchronous memory that a
// device under test uses as its storage.
package mem

import (
	"fmt"
	"log"

	"github.com/pkg/errors"

	"github.com/sarchlab/rtltb/sim"
)

// ErrAddressRange is the cause of every AddressRangeError.
var ErrAddressRange = errors.New("address out of range")

// ErrMissingSignal is returned when the memory interface lacks a signal.
var ErrMissingSignal = errors.New("signal not found")

// An AddressRangeError reports an access beyond the depth of a memory.
type AddressRangeError struct {
	Model   string
	Op      string
	Address uint64
	Depth   int
	Time    sim.VTime
}

func (e *AddressRangeError) Error() string {
	return fmt.Sprintf("%s: %s at address %d of a %d-word memory at %s",
		e.Model, e.Op, e.Address, e.Depth, e.Time)
}

// Unwrap returns ErrAddressRange.
func (e *AddressRangeError) Unwrap() error {
	return ErrAddressRange
}

// SignalSource looks up the signals of a device by name.
type SignalSource interface {
	Signal(name string) (*sim.Signal, bool)
}

// Pin names of a memory interface.
const (
	PinClock     = "clk"
	PinReadAddr  = "raddr"
	PinWriteAddr = "waddr"
	PinDataIn    = "din"
	PinDataOut   = "dout"
	PinWrite     = "we"
)

// A Model is a memory with one synchronous read port and one synchronous
// write port.
//
// Every rising clock edge, once the device has settled, the model drives
// dout with the word at raddr and then, if we is set, stores din at waddr.
// A read and a write of the same address in one cycle returns the old word.
type Model struct {
	name        string
	depth       int
	settleDelay sim.VTime
	words       []uint64

	clk, raddr, waddr, din, dout, we *sim.Signal
}

// NewModel binds a memory of the given depth to the memory interface found in
// scope.
func NewModel(name string, scope SignalSource, depth int) (*Model, error) {
	if depth <= 0 {
		return nil, errors.Errorf("memory %s: depth must be positive, got %d",
			name, depth)
	}

	m := &Model{
		name:        name,
		depth:       depth,
		settleDelay: 1 * sim.Ps,
		words:       make([]uint64, depth),
	}

	pins := []struct {
		name string
		sig  **sim.Signal
	}{
		{PinClock, &m.clk},
		{PinReadAddr, &m.raddr},
		{PinWriteAddr, &m.waddr},
		{PinDataIn, &m.din},
		{PinDataOut, &m.dout},
		{PinWrite, &m.we},
	}

	for _, p := range pins {
		s, found := scope.Signal(p.name)
		if !found {
			return nil, errors.Wrapf(ErrMissingSignal, "memory %s: signal %s",
				name, p.name)
		}

		*p.sig = s
	}

	return m, nil
}

// WithSettleDelay changes how long after the clock edge the model samples
// its inputs.
func (m *Model) WithSettleDelay(d sim.VTime) *Model {
	if d == 0 {
		log.Panic("settle delay must be positive")
	}

	m.settleDelay = d

	return m
}

// Name returns the name of the model.
func (m *Model) Name() string {
	return m.name
}

// Depth returns the number of words.
func (m *Model) Depth() int {
	return m.depth
}

// Run serves the memory interface forever. It only returns when an access
// is out of range.
func (m *Model) Run(t *sim.Task) error {
	for {
		t.Await(sim.RisingEdge(m.clk))
		t.Await(sim.Timer(m.settleDelay))

		err := m.step(t.Now())
		if err != nil {
			return err
		}
	}
}

func (m *Model) step(now sim.VTime) error {
	data, err := m.read(m.raddr.Value(), now)
	if err != nil {
		return err
	}

	m.dout.Set(data)

	if m.we.Bool() {
		return m.write(m.waddr.Value(), m.din.Value(), now)
	}

	return nil
}

func (m *Model) read(addr uint64, now sim.VTime) (uint64, error) {
	if addr >= uint64(m.depth) {
		return 0, m.rangeError("read", addr, now)
	}

	return m.words[addr], nil
}

func (m *Model) write(addr, data uint64, now sim.VTime) error {
	if addr >= uint64(m.depth) {
		return m.rangeError("write", addr, now)
	}

	m.words[addr] = data

	return nil
}

func (m *Model) rangeError(op string, addr uint64, now sim.VTime) error {
	return &AddressRangeError{
		Model:   m.name,
		Op:      op,
		Address: addr,
		Depth:   m.depth,
		Time:    now,
	}
}

// Load writes words starting at addr, bypassing the clocked interface.
func (m *Model) Load(addr uint64, words ...uint64) error {
	for i, w := range words {
		err := m.write(addr+uint64(i), w, 0)
		if err != nil {
			return err
		}
	}

	return nil
}

// Peek reads a word, bypassing the clocked interface.
func (m *Model) Peek(addr uint64) (uint64, error) {
	return m.read(addr, 0)
}
