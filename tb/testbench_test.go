package tb

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/rtltb/device"
	"github.com/sarchlab/rtltb/mem"
	"github.com/sarchlab/rtltb/scoreboard"
	"github.com/sarchlab/rtltb/sim"
)

var _ = Describe("Testbench", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *sim.SerialEngine
		cfg      Config
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = sim.NewSerialEngine()
		cfg = DefaultConfig()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	build := func(style device.PinStyle) *Testbench {
		fifo := device.MakeBuilder().
			WithEngine(engine).
			WithPinStyle(style).
			WithDataWidth(cfg.DataWidth).
			Build("FIFO")

		bench, err := NewTestbench(engine, fifo, cfg)
		Expect(err).To(Succeed())

		return bench
	}

	expectPass := func(v Verdict, err error) {
		Expect(err).To(Succeed())
		Expect(v.Passed).To(BeTrue(), v.Reason)
		Expect(v.Reason).To(BeEmpty())
		Expect(v.Stats.Errors).To(BeZero())
		Expect(v.Stats.Expected).To(BeNumerically(">", 0))
		Expect(v.Stats.Received).To(Equal(v.Stats.Expected))
		Expect(v.Stats.Matched).To(Equal(v.Stats.Expected))
		Expect(v.Stats.ExpectedPending).To(BeZero())
		Expect(v.Stats.ReceivedPending).To(BeZero())
		Expect(engine.NumTasks()).To(BeZero())
	}

	It("should pass 100000 random cycles through an AXI-Stream FIFO", func() {
		bench := build(device.AXIStream)

		v, err := bench.Run()

		expectPass(v, err)
		Expect(v.Stats.Expected).To(BeNumerically(">", 10000))

		// clock edges every 10ns, the stimulus starts after the reset and
		// settle cycles, and the run ends after the drain delay.
		Expect(v.SimTime).To(BeNumerically(">", 100000*10*sim.Ns))
		Expect(v.SimTime).To(BeNumerically("<", 100020*10*sim.Ns+cfg.Drain))
	})

	It("should pass 100000 random cycles through a native FIFO", func() {
		cfg.Pins = NativePins()
		bench := build(device.Native)

		v, err := bench.Run()

		expectPass(v, err)
	})

	It("should pass with the drain one policy", func() {
		cfg.Cycles = 5000
		cfg.DrainPolicy = scoreboard.DrainOne
		bench := build(device.AXIStream)

		v, err := bench.Run()

		expectPass(v, err)
		Expect(bench.Scoreboard().Policy()).To(Equal(scoreboard.DrainOne))
	})

	It("should check that every word leaves the FIFO", func() {
		cfg.Cycles = 5000
		cfg.Assertions = true
		bench := build(device.AXIStream)

		v, err := bench.Run()

		expectPass(v, err)
		Expect(v.Assertions).To(HaveLen(1))
		a := v.Assertions[0]
		Expect(a.Failed).To(BeZero())
		Expect(a.Triggered).To(Equal(v.Stats.Expected))
		Expect(a.Passed).To(Equal(a.Triggered))
	})

	It("should fail an assertion with a window that is too short", func() {
		cfg.Cycles = 5000
		cfg.Assertions = true
		cfg.AssertionWindow = 1
		cfg.ReadyProbability = 0.1
		cfg.Drain = 20 * sim.Us
		bench := build(device.AXIStream)

		v, err := bench.Run()

		Expect(err).To(Succeed())
		Expect(v.Passed).To(BeFalse())
		Expect(v.Stats.Errors).To(BeZero())
		Expect(v.Assertions[0].Failed).To(BeNumerically(">", 0))
		Expect(v.Reason).To(ContainSubstring("InputToOutput"))
	})

	It("should report progress", func() {
		cfg.Cycles = 100
		progress := NewMockProgressReporter(mockCtrl)
		progress.EXPECT().IncrementFinished(uint64(1)).Times(100)
		bench := build(device.AXIStream).WithProgress(progress)

		v, err := bench.Run()

		expectPass(v, err)
	})

	It("should fail without activity", func() {
		cfg.Cycles = 1000
		cfg.ValidProbability = 0
		bench := build(device.AXIStream)

		v, err := bench.Run()

		Expect(err).To(Succeed())
		Expect(v.Passed).To(BeFalse())
		Expect(v.Reason).To(ContainSubstring(scoreboard.ErrNoActivity.Error()))
		Expect(errors.Is(bench.Scoreboard().Check(), scoreboard.ErrNoActivity)).
			To(BeTrue())
	})

	It("should abort on an out-of-range memory access", func() {
		cfg.MemDepth = 8
		bench := build(device.AXIStream)

		v, err := bench.Run()

		Expect(errors.Is(err, mem.ErrAddressRange)).To(BeTrue())

		var rangeErr *mem.AddressRangeError
		Expect(errors.As(err, &rangeErr)).To(BeTrue())
		Expect(rangeErr.Address).To(Equal(uint64(8)))
		Expect(rangeErr.Depth).To(Equal(8))

		Expect(v.Passed).To(BeFalse())
		Expect(v.Reason).NotTo(BeEmpty())
		Expect(engine.NumTasks()).To(BeZero())
	})

	It("should reject an invalid configuration", func() {
		cfg.ClockHalfPeriod = 1 * sim.Ps
		fifo := device.MakeBuilder().WithEngine(engine).Build("FIFO")

		_, err := NewTestbench(engine, fifo, cfg)

		Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
	})

	It("should reject a device without the configured pins", func() {
		cfg.Pins = NativePins()
		fifo := device.MakeBuilder().WithEngine(engine).Build("FIFO")

		_, err := NewTestbench(engine, fifo, cfg)

		Expect(errors.Is(err, ErrMissingSignal)).To(BeTrue())
	})

	It("should keep the cause when the memory interface is missing", func() {
		cfg.Pins.MemScope = "sram"
		fifo := device.MakeBuilder().WithEngine(engine).Build("FIFO")

		_, err := NewTestbench(engine, fifo, cfg)

		Expect(errors.Is(err, ErrMissingSignal)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring(`memory interface "sram"`))
		Expect(err.Error()).To(ContainSubstring("signal clk"))
	})
})

var _ = Describe("Config", func() {
	It("should accept the defaults", func() {
		Expect(DefaultConfig().Validate()).To(Succeed())
	})

	DescribeTable("invalid configurations",
		func(modify func(c *Config)) {
			c := DefaultConfig()
			modify(&c)

			err := c.Validate()

			Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
		},
		Entry("empty name", func(c *Config) { c.Name = "" }),
		Entry("half period too short", func(c *Config) { c.ClockHalfPeriod = 1 }),
		Entry("no reset", func(c *Config) { c.ResetCycles = 0 }),
		Entry("negative settle", func(c *Config) { c.SettleCycles = -1 }),
		Entry("negative cycles", func(c *Config) { c.Cycles = -1 }),
		Entry("valid probability", func(c *Config) { c.ValidProbability = 1.5 }),
		Entry("ready probability", func(c *Config) { c.ReadyProbability = -0.1 }),
		Entry("no drain", func(c *Config) { c.Drain = 0 }),
		Entry("no memory", func(c *Config) { c.MemDepth = 0 }),
		Entry("data width", func(c *Config) { c.DataWidth = 65 }),
		Entry("drain policy", func(c *Config) { c.DrainPolicy = 7 }),
		Entry("assertion window", func(c *Config) {
			c.Assertions = true
			c.AssertionWindow = 0
		}),
		Entry("unnamed pin", func(c *Config) { c.Pins.OutData = "" }),
	)
})
