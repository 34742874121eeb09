package tb

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/rtltb/scoreboard"
	"github.com/sarchlab/rtltb/sim"
)

// ErrInvalidConfig is the cause of every configuration error.
var ErrInvalidConfig = errors.New("invalid testbench configuration")

// Pins names the signals the testbench drives and observes.
type Pins struct {
	Clock    string `json:"clock"`
	Reset    string `json:"reset"`
	InValid  string `json:"in_valid"`
	InReady  string `json:"in_ready"`
	InData   string `json:"in_data"`
	OutValid string `json:"out_valid"`
	OutReady string `json:"out_ready"`
	OutData  string `json:"out_data"`

	// MemScope is the prefix of the memory interface signals.
	MemScope string `json:"mem_scope"`

	ResetActiveLow    bool `json:"reset_active_low"`
	InReadyActiveLow  bool `json:"in_ready_active_low"`
	OutValidActiveLow bool `json:"out_valid_active_low"`
}

// AXIStreamPins returns the pin names of a FIFO with AXI-Stream ports.
func AXIStreamPins() Pins {
	return Pins{
		Clock:    "clk",
		Reset:    "rst",
		InValid:  "s_tvalid",
		InReady:  "s_tready",
		InData:   "s_tdata",
		OutValid: "m_tvalid",
		OutReady: "m_tready",
		OutData:  "m_tdata",
		MemScope: "mem",
	}
}

// NativePins returns the pin names of a FIFO with write-enable/full and
// read-enable/empty ports.
func NativePins() Pins {
	return Pins{
		Clock:             "clk",
		Reset:             "rst",
		InValid:           "wr_en",
		InReady:           "full",
		InData:            "din",
		OutValid:          "empty",
		OutReady:          "rd_en",
		OutData:           "dout",
		MemScope:          "mem",
		InReadyActiveLow:  true,
		OutValidActiveLow: true,
	}
}

// Config holds the parameters of a testbench run.
type Config struct {
	Name string `json:"name"`

	ClockHalfPeriod sim.VTime `json:"clock_half_period"`
	ResetCycles     int       `json:"reset_cycles"`
	SettleCycles    int       `json:"settle_cycles"`

	Cycles           int       `json:"cycles"`
	ValidProbability float64   `json:"valid_probability"`
	ReadyProbability float64   `json:"ready_probability"`
	Drain            sim.VTime `json:"drain"`
	Seed             int64     `json:"seed"`

	MemDepth  int `json:"mem_depth"`
	DataWidth int `json:"data_width"`

	DrainPolicy scoreboard.DrainPolicy `json:"drain_policy"`
	Pins        Pins                   `json:"pins"`

	Assertions      bool `json:"assertions"`
	AssertionWindow int  `json:"assertion_window"`
}

// DefaultConfig returns the configuration of the reference FIFO test.
func DefaultConfig() Config {
	return Config{
		Name:             "fifo",
		ClockHalfPeriod:  5 * sim.Ns,
		ResetCycles:      10,
		SettleCycles:     2,
		Cycles:           100000,
		ValidProbability: 0.5,
		ReadyProbability: 0.5,
		Drain:            1 * sim.Us,
		Seed:             1,
		MemDepth:         16,
		DataWidth:        32,
		DrainPolicy:      scoreboard.DrainAll,
		Pins:             AXIStreamPins(),
		AssertionWindow:  16,
	}
}

// Validate returns an error wrapping ErrInvalidConfig if the configuration
// cannot run.
func (c Config) Validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{c.Name != "", "name is empty"},
		{c.ClockHalfPeriod >= 2*sim.Ps, "clock half period must be at least 2ps"},
		{c.ResetCycles >= 1, "reset must last at least one cycle"},
		{c.SettleCycles >= 0, "settle cycles must not be negative"},
		{c.Cycles >= 0, "cycles must not be negative"},
		{validProbability(c.ValidProbability), "valid probability must be within [0, 1]"},
		{validProbability(c.ReadyProbability), "ready probability must be within [0, 1]"},
		{c.Drain > 0, "drain delay must be positive"},
		{c.MemDepth > 0, "memory depth must be positive"},
		{c.DataWidth >= 1 && c.DataWidth <= 64, "data width must be within [1, 64]"},
		{c.DrainPolicy == scoreboard.DrainAll || c.DrainPolicy == scoreboard.DrainOne,
			"unknown drain policy"},
		{!c.Assertions || c.AssertionWindow > 0, "assertion window must be positive"},
	}

	for _, check := range checks {
		if !check.ok {
			return errors.Wrap(ErrInvalidConfig, check.msg)
		}
	}

	return c.Pins.validate()
}

func validProbability(p float64) bool {
	return p >= 0 && p <= 1
}

func (p Pins) validate() error {
	names := []struct {
		role, name string
	}{
		{"clock", p.Clock},
		{"reset", p.Reset},
		{"in valid", p.InValid},
		{"in ready", p.InReady},
		{"in data", p.InData},
		{"out valid", p.OutValid},
		{"out ready", p.OutReady},
		{"out data", p.OutData},
		{"mem scope", p.MemScope},
	}

	for _, n := range names {
		if n.name == "" {
			return errors.Wrapf(ErrInvalidConfig, "%s pin is not named", n.role)
		}
	}

	return nil
}
