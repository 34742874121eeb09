package device

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rtltb/mem"
	"github.com/sarchlab/rtltb/sim"
)

type scopedSource struct {
	fifo   *FIFO
	prefix string
}

func (s scopedSource) Signal(name string) (*sim.Signal, bool) {
	return s.fifo.Signal(s.prefix + "." + name)
}

var _ = Describe("FIFO", func() {
	var (
		engine *sim.SerialEngine
		fifo   *FIFO
		memory *mem.Model
	)

	startClockAndMemory := func(t *sim.Task) {
		clk := fifo.Bundle().MustSignal(PinClock)
		t.Spawn("clock", func(t *sim.Task) error {
			for {
				clk.Set(0)
				t.Await(sim.Timer(5 * sim.Ns))
				clk.Set(1)
				t.Await(sim.Timer(5 * sim.Ns))
			}
		})
		t.Spawn("mem", memory.Run)
	}

	reset := func(t *sim.Task) {
		clk := fifo.Bundle().MustSignal(PinClock)
		rst := fifo.Bundle().MustSignal(PinReset)

		sim.RisingEdgeReadWrite(t, clk)
		rst.Set(1)
		sim.ClockCycles(t, clk, 2)
		rst.Set(0)
		sim.ClockCycles(t, clk, 1)
	}

	build := func(style PinStyle) {
		engine = sim.NewSerialEngine()
		fifo = MakeBuilder().
			WithEngine(engine).
			WithPinStyle(style).
			Build("FIFO")

		var err error
		memory, err = mem.NewModel("Mem", scopedSource{fifo, ScopeMem}, 16)
		Expect(err).To(Succeed())
	}

	Context("with AXI-Stream pins", func() {
		BeforeEach(func() {
			build(AXIStream)
		})

		It("should expose the memory interface", func() {
			b := fifo.Bundle()

			Expect(b.Scope(ScopeMem).Names()).To(ConsistOf(
				"clk", "raddr", "waddr", "din", "dout", "we"))
			Expect(b.MustSignal("mem.din")).To(BeIdenticalTo(b.MustSignal("s_tdata")))
			Expect(b.MustSignal("mem.dout")).To(BeIdenticalTo(b.MustSignal("m_tdata")))
		})

		It("should pass words through in order", func() {
			b := fifo.Bundle()
			clk := b.MustSignal(PinClock)
			var received []uint64

			err := engine.RunTask("main", func(t *sim.Task) error {
				startClockAndMemory(t)
				b.MustSignal("m_tready").Set(1)

				t.Spawn("collector", func(t *sim.Task) error {
					for {
						sim.RisingEdgeReadOnly(t, clk)
						if b.MustSignal("m_tvalid").Bool() &&
							b.MustSignal("m_tready").Bool() {
							received = append(received,
								b.MustSignal("m_tdata").Value())
						}
					}
				})

				reset(t)

				for _, w := range []uint64{10, 20, 30} {
					sim.RisingEdgeReadWrite(t, clk)
					b.MustSignal("s_tvalid").Set(1)
					b.MustSignal("s_tdata").Set(w)
				}
				sim.RisingEdgeReadWrite(t, clk)
				b.MustSignal("s_tvalid").Set(0)

				sim.ClockCycles(t, clk, 10)

				return nil
			})

			Expect(err).To(Succeed())
			Expect(received).To(Equal([]uint64{10, 20, 30}))
			Expect(fifo.Occupancy()).To(Equal(0))
		})

		It("should stop accepting words when full", func() {
			b := fifo.Bundle()
			clk := b.MustSignal(PinClock)
			accepted := 0

			err := engine.RunTask("main", func(t *sim.Task) error {
				startClockAndMemory(t)
				reset(t)

				for i := 0; i < 20; i++ {
					sim.RisingEdgeReadWrite(t, clk)
					b.MustSignal("s_tvalid").Set(1)
					b.MustSignal("s_tdata").Set(uint64(i))

					t.Await(sim.ReadOnly())
					if b.MustSignal("s_tready").Bool() {
						accepted++
					}
				}

				sim.RisingEdgeReadWrite(t, clk)
				b.MustSignal("s_tvalid").Set(0)

				return nil
			})

			Expect(err).To(Succeed())
			Expect(accepted).To(Equal(16))
			Expect(fifo.Occupancy()).To(Equal(16))
			Expect(b.MustSignal("s_tready").Bool()).To(BeFalse())

			for addr := uint64(0); addr < 16; addr++ {
				Expect(memory.Peek(addr)).To(Equal(addr))
			}
		})
	})

	Context("with native pins", func() {
		BeforeEach(func() {
			build(Native)
		})

		It("should use active-low full and empty lines", func() {
			b := fifo.Bundle()
			clk := b.MustSignal(PinClock)

			err := engine.RunTask("main", func(t *sim.Task) error {
				startClockAndMemory(t)

				sim.RisingEdgeReadWrite(t, clk)
				b.MustSignal(PinReset).Set(1)
				sim.RisingEdgeReadOnly(t, clk)
				Expect(b.MustSignal("full").Bool()).To(BeTrue())
				Expect(b.MustSignal("empty").Bool()).To(BeTrue())

				sim.RisingEdgeReadWrite(t, clk)
				b.MustSignal(PinReset).Set(0)
				sim.RisingEdgeReadOnly(t, clk)
				Expect(b.MustSignal("full").Bool()).To(BeFalse())
				Expect(b.MustSignal("empty").Bool()).To(BeTrue())

				return nil
			})

			Expect(err).To(Succeed())
		})

		It("should accept a write and present it for reading", func() {
			b := fifo.Bundle()
			clk := b.MustSignal(PinClock)
			var readBack uint64

			err := engine.RunTask("main", func(t *sim.Task) error {
				startClockAndMemory(t)
				reset(t)

				sim.RisingEdgeReadWrite(t, clk)
				b.MustSignal("wr_en").Set(1)
				b.MustSignal("din").Set(0xcafe)

				sim.RisingEdgeReadWrite(t, clk)
				b.MustSignal("wr_en").Set(0)

				for b.MustSignal("empty").Bool() {
					sim.RisingEdgeReadOnly(t, clk)
				}
				readBack = b.MustSignal("dout").Value()

				return nil
			})

			Expect(err).To(Succeed())
			Expect(readBack).To(Equal(uint64(0xcafe)))
		})
	})

	It("should parse pin styles", func() {
		style, err := ParsePinStyle("native")
		Expect(err).To(Succeed())
		Expect(style).To(Equal(Native))

		_, err = ParsePinStyle("wishbone")
		Expect(err).To(HaveOccurred())
	})
})
