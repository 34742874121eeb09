package tb

import (
	"github.com/sarchlab/rtltb/scoreboard"
	"github.com/sarchlab/rtltb/sim"
)

// Transaction is one data word observed on a bus.
type Transaction uint64

// A Sink consumes observed transactions.
type Sink interface {
	Add(side scoreboard.Side, t Transaction)
}

// A Monitor watches one side of a handshake. On each rising clock edge, at
// the settle point, it forwards the data to the sink if the valid and
// acknowledge lines are both asserted.
type Monitor struct {
	Name  string
	Clock *sim.Signal
	Valid Line

	// Ack is optional. A monitor without an acknowledge line samples on
	// every valid cycle.
	Ack  Line
	Data *sim.Signal
	Side scoreboard.Side
	Sink Sink

	disabled bool
	count    uint64
}

// Enable makes the monitor forward transactions. Monitors start enabled.
func (m *Monitor) Enable() {
	m.disabled = false
}

// Disable makes the monitor ignore the bus.
func (m *Monitor) Disable() {
	m.disabled = true
}

// Count returns the number of transactions forwarded.
func (m *Monitor) Count() uint64 {
	return m.count
}

// Run samples the bus forever.
func (m *Monitor) Run(t *sim.Task) error {
	for {
		sim.RisingEdgeReadOnly(t, m.Clock)

		if m.disabled || !m.Valid.Asserted() || !m.Ack.Asserted() {
			continue
		}

		m.count++
		m.Sink.Add(m.Side, Transaction(m.Data.Value()))
	}
}
