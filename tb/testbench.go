// Package tb provides the building blocks of a testbench for a streaming
// device and an orchestrator that runs a randomized end-to-end test.
package tb

import (
	"log"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/sarchlab/rtltb/mem"
	"github.com/sarchlab/rtltb/scoreboard"
	"github.com/sarchlab/rtltb/sim"
)

// ErrMissingSignal is returned when the device does not have a signal the
// configuration names.
var ErrMissingSignal = mem.ErrMissingSignal

// SignalSource looks up the signals of a device by name.
type SignalSource interface {
	Signal(name string) (*sim.Signal, bool)
}

type scopedSource struct {
	src    SignalSource
	prefix string
}

func (s scopedSource) Signal(name string) (*sim.Signal, bool) {
	return s.src.Signal(s.prefix + "." + name)
}

// A Testbench verifies that a streaming device delivers every accepted word,
// unchanged and in order.
//
// It starts the clock and the memory model, resets the device, then drives
// random traffic into the input while randomly stalling the output. Monitors
// on both sides feed a scoreboard. After the stimulus, it waits for the
// device to drain and reads the verdict from the scoreboard.
type Testbench struct {
	cfg    Config
	engine *sim.SerialEngine
	logger *log.Logger

	clk, rst                    *sim.Signal
	inValid, inReady, inData    *sim.Signal
	outValid, outReady, outData *sim.Signal

	scoreboard *scoreboard.Scoreboard[Transaction]
	memory     *mem.Model
	assertions []*ConcurrentAssertion
	monitors   []*Monitor
	progress   ProgressReporter
}

// NewTestbench binds a testbench to the signals of a device.
func NewTestbench(
	engine *sim.SerialEngine,
	src SignalSource,
	cfg Config,
) (*Testbench, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	b := &Testbench{
		cfg:    cfg,
		engine: engine,
	}

	err = b.lookUpSignals(src)
	if err != nil {
		return nil, err
	}

	b.memory, err = mem.NewModel(
		cfg.Name+".Mem",
		scopedSource{src: src, prefix: cfg.Pins.MemScope},
		cfg.MemDepth,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "memory interface %q", cfg.Pins.MemScope)
	}

	b.scoreboard = scoreboard.New[Transaction](
		cfg.Name+".Scoreboard", cfg.DrainPolicy)

	if cfg.Assertions {
		b.assertions = append(b.assertions, InputToOutput(
			cfg.Name+".InputToOutput",
			b.clk,
			Handshake{
				Valid: ActiveHigh(b.inValid),
				Ready: b.inReadyLine(),
				Data:  b.inData,
			},
			Handshake{
				Valid: b.outValidLine(),
				Ready: ActiveHigh(b.outReady),
				Data:  b.outData,
			},
			cfg.AssertionWindow,
		))
	}

	return b, nil
}

func (b *Testbench) lookUpSignals(src SignalSource) error {
	p := b.cfg.Pins
	pins := []struct {
		name string
		sig  **sim.Signal
	}{
		{p.Clock, &b.clk},
		{p.Reset, &b.rst},
		{p.InValid, &b.inValid},
		{p.InReady, &b.inReady},
		{p.InData, &b.inData},
		{p.OutValid, &b.outValid},
		{p.OutReady, &b.outReady},
		{p.OutData, &b.outData},
	}

	for _, pin := range pins {
		s, found := src.Signal(pin.name)
		if !found {
			return errors.Wrapf(ErrMissingSignal, "pin %s", pin.name)
		}

		*pin.sig = s
	}

	return nil
}

// WithLogger makes the testbench and its scoreboard report to the logger.
func (b *Testbench) WithLogger(logger *log.Logger) *Testbench {
	b.logger = logger
	b.scoreboard.WithLogger(logger)

	for _, a := range b.assertions {
		a.WithLogger(logger)
	}

	return b
}

// WithProgress makes the testbench report every stimulus cycle.
func (b *Testbench) WithProgress(p ProgressReporter) *Testbench {
	b.progress = p
	return b
}

// Name returns the name of the test.
func (b *Testbench) Name() string {
	return b.cfg.Name
}

// Config returns the configuration of the testbench.
func (b *Testbench) Config() Config {
	return b.cfg
}

// Scoreboard returns the scoreboard of the testbench.
func (b *Testbench) Scoreboard() *scoreboard.Scoreboard[Transaction] {
	return b.scoreboard
}

// Memory returns the memory model the device is attached to.
func (b *Testbench) Memory() *mem.Model {
	return b.memory
}

// Assertions returns the concurrent assertions of the testbench.
func (b *Testbench) Assertions() []*ConcurrentAssertion {
	return b.assertions
}

func (b *Testbench) inReadyLine() Line {
	return Line{Signal: b.inReady, ActiveLow: b.cfg.Pins.InReadyActiveLow}
}

func (b *Testbench) outValidLine() Line {
	return Line{Signal: b.outValid, ActiveLow: b.cfg.Pins.OutValidActiveLow}
}

func (b *Testbench) logf(format string, args ...any) {
	if b.logger != nil {
		b.logger.Printf(format, args...)
	}
}

// Run executes the test. The returned error is only set if the simulation
// itself failed, for example on an out-of-range memory access. A run that
// completes but does not pass is reported by the verdict alone.
func (b *Testbench) Run() (Verdict, error) {
	start := time.Now()

	runErr := b.engine.RunTask(b.cfg.Name, b.main)

	v := Verdict{
		Name:     b.cfg.Name,
		Stats:    b.scoreboard.Stats(),
		SimTime:  b.engine.CurrentTime(),
		WallTime: time.Since(start),
	}

	for _, a := range b.assertions {
		v.Assertions = append(v.Assertions, a.Stats())
	}

	if runErr != nil {
		v.Reason = runErr.Error()
		b.logf("%s: %s aborted: %v", v.SimTime, b.cfg.Name, runErr)

		return v, runErr
	}

	err := b.check(v)
	if err != nil {
		v.Reason = err.Error()
	} else {
		v.Passed = true
	}

	b.logf("%s", v)

	return v, nil
}

func (b *Testbench) check(v Verdict) error {
	err := b.scoreboard.Check()
	if err != nil {
		return err
	}

	for _, a := range v.Assertions {
		if a.Failed > 0 {
			return errors.Errorf("%d evaluations of %s failed",
				a.Failed, a.Name)
		}
	}

	return nil
}

func (b *Testbench) main(t *sim.Task) error {
	clock := Clock{Signal: b.clk, HalfPeriod: b.cfg.ClockHalfPeriod}
	t.Spawn(b.cfg.Name+".Clock", clock.Run)
	t.Spawn(b.cfg.Name+".Mem", b.memory.Run)

	reset := t.Spawn(b.cfg.Name+".Reset", ResetSequencer{
		Clock:        b.clk,
		Reset:        Line{Signal: b.rst, ActiveLow: b.cfg.Pins.ResetActiveLow},
		HoldCycles:   b.cfg.ResetCycles,
		SettleCycles: b.cfg.SettleCycles,
		Idle:         []Line{ActiveHigh(b.inValid), ActiveHigh(b.outReady)},
	}.Run)

	err := t.Join(reset)
	if err != nil {
		return err
	}

	b.logf("%s: %s reset done", t.Now(), b.cfg.Name)

	b.startMonitors(t)

	toggler := &ReadyToggler{
		Clock:       b.clk,
		Ready:       ActiveHigh(b.outReady),
		Probability: b.cfg.ReadyProbability,
		Rand:        rand.New(rand.NewSource(b.cfg.Seed + 1)),
	}
	t.Spawn(b.cfg.Name+".Ready", toggler.Run)

	for _, a := range b.assertions {
		t.Spawn(a.Name, a.Run)
	}

	stimulus := &Stimulus{
		Clock:       b.clk,
		Valid:       ActiveHigh(b.inValid),
		Data:        b.inData,
		Probability: b.cfg.ValidProbability,
		Cycles:      b.cfg.Cycles,
		Rand:        rand.New(rand.NewSource(b.cfg.Seed)),
		Progress:    b.progress,
	}

	err = stimulus.Run(t)
	if err != nil {
		return err
	}

	b.logf("%s: %s stimulus done, draining", t.Now(), b.cfg.Name)

	t.Await(sim.Timer(b.cfg.Drain))

	return nil
}

func (b *Testbench) startMonitors(t *sim.Task) {
	b.monitors = []*Monitor{
		{
			Name:  b.cfg.Name + ".InputMonitor",
			Clock: b.clk,
			Valid: ActiveHigh(b.inValid),
			Ack:   b.inReadyLine(),
			Data:  b.inData,
			Side:  scoreboard.Expected,
			Sink:  b.scoreboard,
		},
		{
			Name:  b.cfg.Name + ".OutputMonitor",
			Clock: b.clk,
			Valid: b.outValidLine(),
			Ack:   ActiveHigh(b.outReady),
			Data:  b.outData,
			Side:  scoreboard.Received,
			Sink:  b.scoreboard,
		},
	}

	for _, m := range b.monitors {
		t.Spawn(m.Name, m.Run)
	}
}
