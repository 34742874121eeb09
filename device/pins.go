package device

import "github.com/pkg/errors"

// PinStyle selects the names and polarities of the FIFO's data-path pins.
type PinStyle int

const (
	// AXIStream exposes a valid/ready stream on each side.
	AXIStream PinStyle = iota

	// Native exposes write-enable/full and read-enable/empty lines.
	Native
)

func (s PinStyle) String() string {
	switch s {
	case AXIStream:
		return "axis"
	case Native:
		return "native"
	default:
		return "unknown"
	}
}

// ParsePinStyle turns "axis" or "native" into a PinStyle.
func ParsePinStyle(s string) (PinStyle, error) {
	switch s {
	case "axis", "axi-stream", "axistream":
		return AXIStream, nil
	case "native":
		return Native, nil
	default:
		return 0, errors.Errorf("unknown pin style %q", s)
	}
}

// Pins names the six data-path pins of a FIFO. A pin marked active-low
// carries its condition when the line is 0.
type Pins struct {
	InValid  string
	InReady  string
	InData   string
	OutValid string
	OutReady string
	OutData  string

	InReadyActiveLow  bool
	OutValidActiveLow bool
}

// Pins returns the pin names of the style.
func (s PinStyle) Pins() Pins {
	switch s {
	case Native:
		return Pins{
			InValid:           "wr_en",
			InReady:           "full",
			InData:            "din",
			OutValid:          "empty",
			OutReady:          "rd_en",
			OutData:           "dout",
			InReadyActiveLow:  true,
			OutValidActiveLow: true,
		}
	default:
		return Pins{
			InValid:  "s_tvalid",
			InReady:  "s_tready",
			InData:   "s_tdata",
			OutValid: "m_tvalid",
			OutReady: "m_tready",
			OutData:  "m_tdata",
		}
	}
}

// Names of the pins shared by all the styles.
const (
	PinClock = "clk"
	PinReset = "rst"
	ScopeMem = "mem"
)
