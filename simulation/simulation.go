// Package simulation assembles a complete testbench run: the engine, the
// device, the testbench, and the optional recording and monitoring services.
package simulation

import (
	"github.com/sarchlab/rtltb/datarecording"
	"github.com/sarchlab/rtltb/device"
	"github.com/sarchlab/rtltb/monitoring"
	"github.com/sarchlab/rtltb/sim"
	"github.com/sarchlab/rtltb/tb"
)

// A Simulation provides the services a testbench run needs.
type Simulation struct {
	id     string
	engine *sim.SerialEngine

	device    *device.FIFO
	testbench *tb.Testbench

	dataRecorder datarecording.DataRecorder
	runRecorder  *datarecording.RunRecorder
	monitor      *monitoring.Monitor
	progress     *monitoring.ProgressBar
}

// ID returns the unique ID of the run.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() *sim.SerialEngine {
	return s.engine
}

// GetDevice returns the device under test.
func (s *Simulation) GetDevice() *device.FIFO {
	return s.device
}

// GetTestbench returns the testbench.
func (s *Simulation) GetTestbench() *tb.Testbench {
	return s.testbench
}

// GetDataRecorder returns the data recorder used in the simulation. It is nil
// if recording is disabled.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It is nil if
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// Run runs the testbench and records its verdict.
func (s *Simulation) Run() (tb.Verdict, error) {
	v, err := s.testbench.Run()
	s.engine.Finished()

	if s.dataRecorder != nil {
		datarecording.RecordVerdict(s.dataRecorder, s.id, v)
	}

	if s.progress != nil {
		s.monitor.CompleteProgressBar(s.progress)
	}

	return v, err
}

// Terminate writes the end of the run and closes the recorder.
func (s *Simulation) Terminate() error {
	if s.dataRecorder == nil {
		return nil
	}

	s.runRecorder.End()

	return s.dataRecorder.Close()
}
