package tb

import (
	"fmt"
	"time"

	"github.com/sarchlab/rtltb/scoreboard"
	"github.com/sarchlab/rtltb/sim"
)

// A Verdict is the outcome of a testbench run.
type Verdict struct {
	Name       string           `json:"name"`
	Passed     bool             `json:"passed"`
	Stats      scoreboard.Stats `json:"stats"`
	Reason     string           `json:"reason,omitempty"`
	SimTime    sim.VTime        `json:"sim_time"`
	WallTime   time.Duration    `json:"wall_time"`
	Assertions []AssertionStats `json:"assertions,omitempty"`
}

func (v Verdict) String() string {
	result := "PASS"
	if !v.Passed {
		result = "FAIL"
	}

	s := fmt.Sprintf("%s %s: %s, sim time %s, wall time %s",
		result, v.Name, v.Stats, v.SimTime, v.WallTime.Round(time.Millisecond))
	if v.Reason != "" {
		s += "\n  " + v.Reason
	}

	for _, a := range v.Assertions {
		s += "\n  " + a.String()
	}

	return s
}
