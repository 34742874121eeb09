package tb

import (
	"fmt"
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/sarchlab/rtltb/sim"
)

// AssertionStats counts the evaluations of an assertion.
type AssertionStats struct {
	Name      string `json:"name"`
	Triggered uint64 `json:"triggered"`
	Passed    uint64 `json:"passed"`
	Failed    uint64 `json:"failed"`
}

func (s AssertionStats) String() string {
	return fmt.Sprintf("assertion %s: triggered=%d, passed=%d, failed=%d",
		s.Name, s.Triggered, s.Passed, s.Failed)
}

// A ConcurrentAssertion is a concurrent property of the design.
//
// At the settle point of every rising clock edge, if Condition holds, Check
// starts in a task of its own. Several checks can be in flight at the same
// time. A check that returns nil passes.
type ConcurrentAssertion struct {
	Name      string
	Clock     *sim.Signal
	Condition func() bool
	Check     func(t *sim.Task) error

	logger *log.Logger

	lock      sync.Mutex
	triggered uint64
	passed    uint64
	failed    uint64
}

// WithLogger makes the assertion report each failure to the logger.
func (a *ConcurrentAssertion) WithLogger(
	logger *log.Logger,
) *ConcurrentAssertion {
	a.logger = logger
	return a
}

// Stats returns the counters of the assertion.
func (a *ConcurrentAssertion) Stats() AssertionStats {
	a.lock.Lock()
	defer a.lock.Unlock()

	return AssertionStats{
		Name:      a.Name,
		Triggered: a.triggered,
		Passed:    a.passed,
		Failed:    a.failed,
	}
}

// Run evaluates the assertion until cancelled.
func (a *ConcurrentAssertion) Run(t *sim.Task) error {
	for {
		sim.RisingEdgeReadOnly(t, a.Clock)

		if !a.Condition() {
			continue
		}

		a.lock.Lock()
		a.triggered++
		a.lock.Unlock()

		t.Spawn(a.Name+".Check", a.runCheck)
	}
}

func (a *ConcurrentAssertion) runCheck(t *sim.Task) error {
	err := a.Check(t)

	a.lock.Lock()
	defer a.lock.Unlock()

	if err != nil {
		a.failed++

		if a.logger != nil {
			a.logger.Printf("%s: %s failed: %v", t.Now(), a.Name, err)
		}

		return nil
	}

	a.passed++

	return nil
}

// Handshake is one side of a valid/ready interface.
type Handshake struct {
	Valid Line
	Ready Line
	Data  *sim.Signal
}

// Fire returns true if a word moves across the interface in this cycle.
func (h Handshake) Fire() bool {
	return h.Valid.Asserted() && h.Ready.Asserted()
}

// InputToOutput builds an assertion that every word accepted at the input
// leaves the output within the next window output transfers.
func InputToOutput(
	name string,
	clk *sim.Signal,
	in, out Handshake,
	window int,
) *ConcurrentAssertion {
	return &ConcurrentAssertion{
		Name:      name,
		Clock:     clk,
		Condition: in.Fire,
		Check: func(t *sim.Task) error {
			word := in.Data.Value()

			for transfers := 0; transfers < window; {
				sim.RisingEdgeReadOnly(t, clk)

				if !out.Fire() {
					continue
				}

				if out.Data.Value() == word {
					return nil
				}

				transfers++
			}

			return errors.Errorf("word %#x did not leave within %d transfers",
				word, window)
		},
	}
}
