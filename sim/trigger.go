package sim

import "log"

// A Trigger is a simulation condition that a task can wait for.
type Trigger interface {
	// arm registers the task to be resumed, for the wait identified by seq,
	// when the condition happens.
	arm(t *Task, seq uint64)
}

type timerTrigger struct {
	duration VTime
}

// Timer fires after the given amount of virtual time, in the active phase.
func Timer(d VTime) Trigger {
	return timerTrigger{duration: d}
}

func (tr timerTrigger) arm(t *Task, seq uint64) {
	if tr.duration == 0 {
		log.Panic("timer duration must be positive")
	}

	now := t.engine.CurrentTime()
	t.engine.Schedule(newWakeEvent(now+tr.duration, PhaseActive, t, seq))
}

type phaseTrigger struct {
	phase Phase
}

// ReadWrite fires in the read-write phase of the current time slot, after all
// the active events of the slot. Testbench tasks drive signals there.
func ReadWrite() Trigger {
	return phaseTrigger{phase: PhaseReadWrite}
}

// ReadOnly fires at the settle point of the current time slot, after every
// driver of the slot has updated its outputs.
func ReadOnly() Trigger {
	return phaseTrigger{phase: PhaseReadOnly}
}

func (tr phaseTrigger) arm(t *Task, seq uint64) {
	now, phase := t.engine.readNow()
	if phase > tr.phase {
		log.Panicf("cannot wait for the %s phase from the %s phase",
			tr.phase, phase)
	}

	t.engine.Schedule(newWakeEvent(now, tr.phase, t, seq))
}

type edgeTrigger struct {
	signal *Signal
	kind   EdgeKind
}

// RisingEdge fires when bit 0 of the signal goes from 0 to 1.
func RisingEdge(s *Signal) Trigger {
	return edgeTrigger{signal: s, kind: EdgeRising}
}

// FallingEdge fires when bit 0 of the signal goes from 1 to 0.
func FallingEdge(s *Signal) Trigger {
	return edgeTrigger{signal: s, kind: EdgeFalling}
}

// AnyEdge fires on any value change of the signal.
func AnyEdge(s *Signal) Trigger {
	return edgeTrigger{signal: s, kind: EdgeAny}
}

func (tr edgeTrigger) arm(t *Task, seq uint64) {
	tr.signal.addWaiter(edgeWaiter{task: t, seq: seq, kind: tr.kind})
}

type joinTrigger struct {
	other *Task
}

func (tr joinTrigger) arm(t *Task, seq uint64) {
	if tr.other.Finished() {
		now, phase := t.engine.readNow()
		t.engine.Schedule(newWakeEvent(now, phase, t, seq))

		return
	}

	tr.other.joiners = append(tr.other.joiners, joinRequest{task: t, seq: seq})
}

// ClockCycles waits for n rising edges of clk.
func ClockCycles(t *Task, clk *Signal, n int) {
	for i := 0; i < n; i++ {
		t.Await(RisingEdge(clk))
	}
}

// RisingEdgeReadOnly waits for the next rising edge of clk and then for its
// settle point.
func RisingEdgeReadOnly(t *Task, clk *Signal) {
	t.Await(RisingEdge(clk))
	t.Await(ReadOnly())
}

// RisingEdgeReadWrite waits for the next rising edge of clk and then for its
// read-write phase.
func RisingEdgeReadWrite(t *Task, clk *Signal) {
	t.Await(RisingEdge(clk))
	t.Await(ReadWrite())
}
