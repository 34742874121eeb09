package tb

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/rtltb/scoreboard"
	"github.com/sarchlab/rtltb/sim"
)

var _ = Describe("Components", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *sim.SerialEngine
		bundle   *sim.Bundle
		clk      *sim.Signal
		clock    Clock
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = sim.NewSerialEngine()
		bundle = sim.NewBundle(engine)
		clk = bundle.Add("clk", 1)
		clock = Clock{Signal: clk, HalfPeriod: 5 * sim.Ns}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("Line", func() {
		It("should respect the polarity", func() {
			s := bundle.Add("full", 1)
			l := ActiveLow(s)

			Expect(l.Asserted()).To(BeTrue())

			l.Drive(false)
			Expect(s.Value()).To(Equal(uint64(1)))
			Expect(l.Asserted()).To(BeFalse())
		})

		It("should treat an unconnected line as asserted", func() {
			Expect(Line{}.Connected()).To(BeFalse())
			Expect(Line{}.Asserted()).To(BeTrue())
		})
	})

	Context("Clock", func() {
		It("should produce rising edges every period", func() {
			var edges []sim.VTime

			err := engine.RunTask("main", func(t *sim.Task) error {
				t.Spawn("clock", clock.Run)

				for i := 0; i < 3; i++ {
					t.Await(sim.RisingEdge(clk))
					edges = append(edges, t.Now())
				}

				return nil
			})

			Expect(err).To(Succeed())
			Expect(clock.Period()).To(Equal(10 * sim.Ns))
			Expect(edges).To(Equal([]sim.VTime{5 * sim.Ns, 15 * sim.Ns, 25 * sim.Ns}))
		})
	})

	Context("ResetSequencer", func() {
		It("should hold reset for the configured cycles", func() {
			rst := bundle.Add("rst", 1)
			idle := bundle.Add("valid", 1)
			idle.Set(1)
			var samples []uint64

			err := engine.RunTask("main", func(t *sim.Task) error {
				t.Spawn("clock", clock.Run)
				t.Spawn("observer", func(t *sim.Task) error {
					for {
						sim.RisingEdgeReadOnly(t, clk)
						samples = append(samples, rst.Value())
					}
				})

				seq := t.Spawn("reset", ResetSequencer{
					Clock:        clk,
					Reset:        ActiveHigh(rst),
					HoldCycles:   3,
					SettleCycles: 2,
					Idle:         []Line{ActiveHigh(idle)},
				}.Run)

				err := t.Join(seq)
				Expect(t.Now()).To(Equal(55 * sim.Ns))
				t.Await(sim.Timer(1 * sim.Ns))

				return err
			})

			Expect(err).To(Succeed())
			Expect(idle.Value()).To(Equal(uint64(0)))
			Expect(samples).To(Equal([]uint64{1, 1, 1, 0, 0, 0}))
		})
	})

	Context("Monitor", func() {
		var (
			valid, full, data *sim.Signal
			sink              *MockSink
			monitor           *Monitor
		)

		BeforeEach(func() {
			valid = bundle.Add("wr_en", 1)
			full = bundle.Add("full", 1)
			data = bundle.Add("din", 8)
			sink = NewMockSink(mockCtrl)
			monitor = &Monitor{
				Name:  "Monitor",
				Clock: clk,
				Valid: ActiveHigh(valid),
				Ack:   ActiveLow(full),
				Data:  data,
				Side:  scoreboard.Expected,
				Sink:  sink,
			}
		})

		drive := func(t *sim.Task) {
			steps := []struct{ valid, full, data uint64 }{
				{1, 0, 5},
				{1, 1, 6},
				{0, 0, 7},
				{1, 0, 9},
				{0, 0, 0},
			}

			for _, s := range steps {
				sim.RisingEdgeReadWrite(t, clk)
				valid.Set(s.valid)
				full.Set(s.full)
				data.Set(s.data)
			}

			t.Await(sim.Timer(1 * sim.Ns))
		}

		It("should forward acknowledged transfers", func() {
			gomock.InOrder(
				sink.EXPECT().Add(scoreboard.Expected, Transaction(5)),
				sink.EXPECT().Add(scoreboard.Expected, Transaction(9)),
			)

			err := engine.RunTask("main", func(t *sim.Task) error {
				t.Spawn("clock", clock.Run)
				t.Spawn("monitor", monitor.Run)
				drive(t)

				return nil
			})

			Expect(err).To(Succeed())
			Expect(monitor.Count()).To(Equal(uint64(2)))
		})

		It("should ignore the bus when disabled", func() {
			monitor.Disable()

			err := engine.RunTask("main", func(t *sim.Task) error {
				t.Spawn("clock", clock.Run)
				t.Spawn("monitor", monitor.Run)
				drive(t)

				return nil
			})

			Expect(err).To(Succeed())
			Expect(monitor.Count()).To(Equal(uint64(0)))
		})
	})

	Context("Stimulus", func() {
		var (
			valid, data *sim.Signal
		)

		BeforeEach(func() {
			valid = bundle.Add("s_tvalid", 1)
			data = bundle.Add("s_tdata", 32)
		})

		observe := func(t *sim.Task, words *[]uint64) {
			t.Spawn("observer", func(t *sim.Task) error {
				for {
					sim.RisingEdgeReadOnly(t, clk)
					if valid.Bool() {
						*words = append(*words, data.Value())
					}
				}
			})
		}

		It("should drive the cycle number and deassert at the end", func() {
			progress := NewMockProgressReporter(mockCtrl)
			progress.EXPECT().IncrementFinished(uint64(1)).Times(5)

			stimulus := &Stimulus{
				Clock:       clk,
				Valid:       ActiveHigh(valid),
				Data:        data,
				Probability: 1,
				Cycles:      5,
				Rand:        rand.New(rand.NewSource(1)),
				Progress:    progress,
			}
			var words []uint64

			err := engine.RunTask("main", func(t *sim.Task) error {
				t.Spawn("clock", clock.Run)
				observe(t, &words)

				err := stimulus.Run(t)
				t.Await(sim.Timer(1 * sim.Ns))

				return err
			})

			Expect(err).To(Succeed())
			Expect(words).To(Equal([]uint64{0, 1, 2, 3}))
			Expect(valid.Bool()).To(BeFalse())
		})

		It("should never assert valid with probability 0", func() {
			stimulus := &Stimulus{
				Clock:       clk,
				Valid:       ActiveHigh(valid),
				Data:        data,
				Probability: 0,
				Cycles:      20,
				Rand:        rand.New(rand.NewSource(1)),
			}
			var words []uint64

			err := engine.RunTask("main", func(t *sim.Task) error {
				t.Spawn("clock", clock.Run)
				observe(t, &words)

				return stimulus.Run(t)
			})

			Expect(err).To(Succeed())
			Expect(words).To(BeEmpty())
		})

		It("should toggle ready", func() {
			ready := bundle.Add("m_tready", 1)
			toggler := &ReadyToggler{
				Clock:       clk,
				Ready:       ActiveHigh(ready),
				Probability: 1,
				Rand:        rand.New(rand.NewSource(1)),
			}

			err := engine.RunTask("main", func(t *sim.Task) error {
				t.Spawn("clock", clock.Run)
				t.Spawn("ready", toggler.Run)
				sim.RisingEdgeReadOnly(t, clk)

				return nil
			})

			Expect(err).To(Succeed())
			Expect(ready.Bool()).To(BeTrue())
		})
	})

	Context("Assertion", func() {
		It("should count failing evaluations", func() {
			a := &ConcurrentAssertion{
				Name:      "AlwaysFails",
				Clock:     clk,
				Condition: func() bool { return true },
				Check: func(t *sim.Task) error {
					return errors.New("failed")
				},
			}

			err := engine.RunTask("main", func(t *sim.Task) error {
				t.Spawn("clock", clock.Run)
				t.Spawn("assertion", a.Run)
				sim.ClockCycles(t, clk, 3)
				t.Await(sim.Timer(1 * sim.Ns))

				return nil
			})

			Expect(err).To(Succeed())
			Expect(a.Stats()).To(Equal(AssertionStats{
				Name:      "AlwaysFails",
				Triggered: 3,
				Failed:    3,
			}))
		})

		It("should only trigger when the condition holds", func() {
			enable := bundle.Add("en", 1)
			a := &ConcurrentAssertion{
				Name:      "Conditional",
				Clock:     clk,
				Condition: enable.Bool,
				Check: func(t *sim.Task) error {
					sim.RisingEdgeReadOnly(t, clk)
					return nil
				},
			}

			err := engine.RunTask("main", func(t *sim.Task) error {
				t.Spawn("clock", clock.Run)
				t.Spawn("assertion", a.Run)

				sim.RisingEdgeReadWrite(t, clk)
				enable.Set(1)
				sim.RisingEdgeReadWrite(t, clk)
				enable.Set(0)
				sim.ClockCycles(t, clk, 3)

				return nil
			})

			Expect(err).To(Succeed())
			Expect(a.Stats().Triggered).To(Equal(uint64(1)))
			Expect(a.Stats().Passed).To(Equal(uint64(1)))
		})
	})
})
