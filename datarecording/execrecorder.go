package datarecording

import (
	"os"
	"strings"
	"time"

	"github.com/sarchlab/rtltb/sim"
)

const runInfoTable = "run_info"

// RunInfo is one property of a testbench run.
type RunInfo struct {
	RunID    string
	Property string
	Value    string
}

// A RunRecorder records how and when a testbench run was started.
type RunRecorder struct {
	runID    string
	recorder DataRecorder
	entries  []RunInfo
}

// NewRunRecorder creates a RunRecorder that writes to the run_info table.
func NewRunRecorder(recorder DataRecorder, runID string) *RunRecorder {
	recorder.CreateTable(runInfoTable, RunInfo{})

	return &RunRecorder{
		runID:    runID,
		recorder: recorder,
	}
}

// Start records the start time, the command line, and the working directory.
func (e *RunRecorder) Start() {
	e.Set("Start Time", timestamp(time.Now()))
	e.Set("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	e.Set("Working Directory", cwd)
}

// Set records an extra property, such as the seed of the run.
func (e *RunRecorder) Set(property, value string) {
	e.entries = append(e.entries, RunInfo{
		RunID:    e.runID,
		Property: property,
		Value:    value,
	})
}

// Handle records the simulated time when the engine reports the end of the
// simulation.
func (e *RunRecorder) Handle(now sim.VTime) {
	e.Set("Simulated Time", now.String())
}

// End writes the properties along with the end time and flushes the
// recorder.
func (e *RunRecorder) End() {
	e.Set("End Time", timestamp(time.Now()))

	for _, entry := range e.entries {
		e.recorder.InsertData(runInfoTable, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}

func timestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000000000")
}
