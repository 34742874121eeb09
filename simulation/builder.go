package simulation

import (
	"encoding/json"
	"log"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/xid"

	"github.com/sarchlab/rtltb/datarecording"
	"github.com/sarchlab/rtltb/device"
	"github.com/sarchlab/rtltb/monitoring"
	"github.com/sarchlab/rtltb/sim"
	"github.com/sarchlab/rtltb/tb"
)

// Builder can be used to build a simulation.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	recordOn       bool
	recordMatches  bool
	outputFileName string
	clickHouse     *datarecording.ClickHouseOptions
	logger         *log.Logger
	logEvents      bool

	config      tb.Config
	style       device.PinStyle
	capacity    int
	addressBits int
}

// MakeBuilder creates a new builder that tests a 16-entry AXI-Stream FIFO
// with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		monitorOn:   true,
		recordOn:    true,
		config:      tb.DefaultConfig(),
		style:       device.AXIStream,
		capacity:    16,
		addressBits: 4,
	}
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithoutRecording sets the simulation to not write a recording database.
func (b Builder) WithoutRecording() Builder {
	b.recordOn = false
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithClickHouse makes the simulation record into a ClickHouse server rather
// than into a SQLite file.
func (b Builder) WithClickHouse(opts datarecording.ClickHouseOptions) Builder {
	b.clickHouse = &opts
	return b
}

// WithMatchRecording records every scoreboard comparison. By default, only
// the mismatches are recorded.
func (b Builder) WithMatchRecording() Builder {
	b.recordMatches = true
	return b
}

// WithLogger sets the logger that the testbench reports to.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithEventLogging logs every event the engine handles. It requires a
// logger.
func (b Builder) WithEventLogging() Builder {
	b.logEvents = true
	return b
}

// WithConfig sets the testbench configuration. The pin names are taken from
// the device.
func (b Builder) WithConfig(cfg tb.Config) Builder {
	b.config = cfg
	return b
}

// WithPinStyle sets the pin style of the device.
func (b Builder) WithPinStyle(style device.PinStyle) Builder {
	b.style = style
	return b
}

// WithCapacity sets the number of words the device holds.
func (b Builder) WithCapacity(capacity int) Builder {
	b.capacity = capacity
	return b
}

// WithAddressBits sets the width of the device's memory address pins.
func (b Builder) WithAddressBits(bits int) Builder {
	b.addressBits = bits
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordOn && (b.outputFileName != "" || b.clickHouse != nil) {
		panic("recording output cannot be set when recording is disabled")
	}

	if b.logEvents && b.logger == nil {
		panic("event logging requires a logger")
	}
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	err := b.config.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "build testbench")
	}

	s := &Simulation{
		id:     xid.New().String(),
		engine: sim.NewSerialEngine(),
	}

	s.device = device.MakeBuilder().
		WithEngine(s.engine).
		WithPinStyle(b.style).
		WithCapacity(b.capacity).
		WithAddressBits(b.addressBits).
		WithDataWidth(b.config.DataWidth).
		WithResetActiveLow(b.config.Pins.ResetActiveLow).
		Build(b.config.Name + ".DUT")

	cfg := b.config
	cfg.Pins = TestbenchPins(s.device, cfg.Pins.ResetActiveLow)

	bench, err := tb.NewTestbench(s.engine, s.device, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "build testbench")
	}

	s.testbench = bench

	if b.logger != nil {
		bench.WithLogger(b.logger)
	}

	if b.logEvents {
		s.engine.AcceptHook(sim.NewEventLogger(b.logger))
	}

	if b.recordOn {
		err = b.buildRecorder(s, cfg)
		if err != nil {
			return nil, err
		}
	}

	if b.monitorOn {
		b.buildMonitor(s, cfg)
	}

	return s, nil
}

func (b Builder) buildRecorder(s *Simulation, cfg tb.Config) error {
	if b.clickHouse != nil {
		r, err := datarecording.NewClickHouseRecorder(*b.clickHouse)
		if err != nil {
			return err
		}

		s.dataRecorder = r
	} else {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "rtltb_sim_" + s.id
		}

		s.dataRecorder = datarecording.New(outputPath)
	}

	s.runRecorder = datarecording.NewRunRecorder(s.dataRecorder, s.id)
	s.runRecorder.Start()
	s.runRecorder.Set("Testbench", cfg.Name)
	s.runRecorder.Set("Pin Style", b.style.String())
	s.runRecorder.Set("Capacity", strconv.Itoa(b.capacity))
	s.runRecorder.Set("Address Bits", strconv.Itoa(b.addressBits))
	s.runRecorder.Set("Seed", strconv.FormatInt(cfg.Seed, 10))

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode configuration")
	}

	s.runRecorder.Set("Config", string(cfgJSON))
	s.engine.RegisterSimulationEndHandler(s.runRecorder)

	tracer := datarecording.NewScoreboardTracer(
		s.dataRecorder, s.engine, s.id)
	if !b.recordMatches {
		tracer.MismatchesOnly()
	}

	s.testbench.Scoreboard().AcceptHook(tracer)

	return nil
}

func (b Builder) buildMonitor(s *Simulation, cfg tb.Config) {
	s.monitor = monitoring.NewMonitor()
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	s.monitor.RegisterEngine(s.engine)
	s.monitor.RegisterScoreboard(s.testbench.Scoreboard())
	s.monitor.RegisterComponent(s.testbench)
	s.monitor.RegisterComponent(s.testbench.Memory())
	s.monitor.RegisterComponent(s.device)

	if cfg.Cycles > 0 {
		s.progress = s.monitor.CreateProgressBar(
			cfg.Name+".Stimulus", uint64(cfg.Cycles))
		s.testbench.WithProgress(s.progress)
	}

	s.monitor.StartServer()
}

// TestbenchPins returns the pin names a testbench uses to drive the FIFO.
func TestbenchPins(f *device.FIFO, resetActiveLow bool) tb.Pins {
	p := f.Pins()

	return tb.Pins{
		Clock:             device.PinClock,
		Reset:             device.PinReset,
		InValid:           p.InValid,
		InReady:           p.InReady,
		InData:            p.InData,
		OutValid:          p.OutValid,
		OutReady:          p.OutReady,
		OutData:           p.OutData,
		MemScope:          device.ScopeMem,
		ResetActiveLow:    resetActiveLow,
		InReadyActiveLow:  p.InReadyActiveLow,
		OutValidActiveLow: p.OutValidActiveLow,
	}
}
