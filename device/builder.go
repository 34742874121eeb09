package device

import (
	"log"

	"github.com/sarchlab/rtltb/mem"
	"github.com/sarchlab/rtltb/sim"
)

// A Builder can build FIFOs.
type Builder struct {
	engine         sim.Engine
	style          PinStyle
	capacity       int
	addressBits    int
	dataWidth      int
	resetActiveLow bool
}

// MakeBuilder returns a Builder with a 16-entry, 32-bit AXI-Stream FIFO.
func MakeBuilder() Builder {
	return Builder{
		style:       AXIStream,
		capacity:    16,
		addressBits: 4,
		dataWidth:   32,
	}
}

// WithEngine sets the engine that drives the signals of the FIFO.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithPinStyle sets the pin style.
func (b Builder) WithPinStyle(style PinStyle) Builder {
	b.style = style
	return b
}

// WithCapacity sets how many words the FIFO accepts before it stops being
// ready.
func (b Builder) WithCapacity(capacity int) Builder {
	b.capacity = capacity
	return b
}

// WithAddressBits sets the width of the memory address pins. Pointers wrap
// at 2^bits regardless of the capacity.
func (b Builder) WithAddressBits(bits int) Builder {
	b.addressBits = bits
	return b
}

// WithDataWidth sets the width of the data pins.
func (b Builder) WithDataWidth(width int) Builder {
	b.dataWidth = width
	return b
}

// WithResetActiveLow makes the FIFO reset while rst is 0.
func (b Builder) WithResetActiveLow(activeLow bool) Builder {
	b.resetActiveLow = activeLow
	return b
}

// Build creates the FIFO together with its signals.
func (b Builder) Build(name string) *FIFO {
	if b.engine == nil {
		log.Panic("engine is not set")
	}

	if b.capacity <= 0 {
		log.Panicf("FIFO %s: capacity must be positive", name)
	}

	if b.addressBits <= 0 || b.addressBits > 32 {
		log.Panicf("FIFO %s: address width %d not supported",
			name, b.addressBits)
	}

	f := &FIFO{
		name:           name,
		style:          b.style,
		pins:           b.style.Pins(),
		capacity:       b.capacity,
		addrMask:       (uint64(1) << uint(b.addressBits)) - 1,
		resetActiveLow: b.resetActiveLow,
		bundle:         sim.NewBundle(b.engine),
	}

	f.createSignals(b)
	f.connect()

	return f
}

func (f *FIFO) createSignals(b Builder) {
	f.clk = f.bundle.Add(PinClock, 1)
	f.rst = f.bundle.Add(PinReset, 1)

	f.inValid = f.bundle.Add(f.pins.InValid, 1)
	f.inReady = f.bundle.Add(f.pins.InReady, 1)
	f.inData = f.bundle.Add(f.pins.InData, b.dataWidth)
	f.outValid = f.bundle.Add(f.pins.OutValid, 1)
	f.outReady = f.bundle.Add(f.pins.OutReady, 1)
	f.outData = f.bundle.Add(f.pins.OutData, b.dataWidth)

	memScope := f.bundle.Scope(ScopeMem)
	memScope.Alias(mem.PinClock, f.clk)
	memScope.Alias(mem.PinDataIn, f.inData)
	memScope.Alias(mem.PinDataOut, f.outData)
	f.memReadAddr = memScope.Add(mem.PinReadAddr, b.addressBits)
	f.memWriteAddr = memScope.Add(mem.PinWriteAddr, b.addressBits)
	f.memWrite = memScope.Add(mem.PinWrite, 1)
}

func (f *FIFO) connect() {
	f.clk.OnEdge(sim.EdgeRising, f.tick)

	for _, s := range []*sim.Signal{
		f.inValid, f.inReady, f.outValid, f.outReady,
	} {
		s.OnChange(f.updateMemoryInterface)
	}
}
