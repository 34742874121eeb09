package sim

import (
	"fmt"
	"log"
)

// EdgeKind tells which value changes of a signal wake a waiter.
type EdgeKind int

// Kinds of edges.
const (
	EdgeAny EdgeKind = iota
	EdgeRising
	EdgeFalling
)

func (k EdgeKind) matches(edge EdgeKind) bool {
	return k == EdgeAny || k == edge
}

// edgeOf classifies a value change by bit 0 of the old and new values.
// Changes that leave bit 0 untouched only match EdgeAny.
func edgeOf(old, v uint64) EdgeKind {
	switch {
	case old&1 == 0 && v&1 == 1:
		return EdgeRising
	case old&1 == 1 && v&1 == 0:
		return EdgeFalling
	default:
		return EdgeAny
	}
}

type edgeWaiter struct {
	task *Task
	seq  uint64
	kind EdgeKind
}

type edgeListener struct {
	kind EdgeKind
	fn   func()
}

// A Signal is a fixed-width value of the simulated device that can be read
// and driven.
//
// Driving a signal updates its value immediately. If the value changes, the
// edge is announced by one active-phase event in the current time slot. That
// event first runs the edge listeners, which model clocked device logic, and
// then resumes the tasks waiting for the edge, both in registration order.
type Signal struct {
	engine Engine
	name   string
	width  int
	mask   uint64
	value  uint64

	waiters         []edgeWaiter
	edgeListeners   []edgeListener
	changeListeners []func()
}

// NewSignal creates a signal of the given width, from 1 to 64 bits.
func NewSignal(engine Engine, name string, width int) *Signal {
	if width < 1 || width > 64 {
		log.Panicf("signal %s: width %d is not between 1 and 64", name, width)
	}

	mask := ^uint64(0)
	if width < 64 {
		mask = (uint64(1) << uint(width)) - 1
	}

	return &Signal{
		engine: engine,
		name:   name,
		width:  width,
		mask:   mask,
	}
}

// Name returns the full name of the signal.
func (s *Signal) Name() string {
	return s.name
}

// Width returns the number of bits of the signal.
func (s *Signal) Width() int {
	return s.width
}

// Mask returns a value with the low Width bits set.
func (s *Signal) Mask() uint64 {
	return s.mask
}

// Value returns the current value.
func (s *Signal) Value() uint64 {
	return s.value
}

// Bool returns true if the value is not zero.
func (s *Signal) Bool() bool {
	return s.value != 0
}

// Set drives the signal. Bits above the width are dropped. Driving a signal
// at the settle point is a testbench bug and panics.
func (s *Signal) Set(v uint64) {
	if s.engine.CurrentPhase() == PhaseReadOnly {
		log.Panicf("signal %s driven in the read-only phase", s.name)
	}

	v &= s.mask
	old := s.value
	if old == v {
		return
	}

	s.value = v

	s.announceEdge(edgeOf(old, v))

	for _, l := range s.changeListeners {
		l()
	}
}

// SetBool drives 1 for true and 0 for false.
func (s *Signal) SetBool(b bool) {
	if b {
		s.Set(1)
		return
	}

	s.Set(0)
}

// OnEdge registers fn to run every time the signal has an edge of the given
// kind, before any task waiting for that edge resumes.
func (s *Signal) OnEdge(kind EdgeKind, fn func()) {
	s.edgeListeners = append(s.edgeListeners, edgeListener{kind: kind, fn: fn})
}

// OnChange registers fn to run synchronously, inside Set, whenever the value
// changes.
func (s *Signal) OnChange(fn func()) {
	s.changeListeners = append(s.changeListeners, fn)
}

func (s *Signal) String() string {
	return fmt.Sprintf("%s=%#x", s.name, s.value)
}

func (s *Signal) addWaiter(w edgeWaiter) {
	s.waiters = append(s.waiters, w)
}

func (s *Signal) announceEdge(edge EdgeKind) {
	var woken []edgeWaiter

	kept := s.waiters[:0]
	for _, w := range s.waiters {
		if w.kind.matches(edge) {
			woken = append(woken, w)
		} else {
			kept = append(kept, w)
		}
	}

	for i := len(kept); i < len(s.waiters); i++ {
		s.waiters[i] = edgeWaiter{}
	}
	s.waiters = kept

	if len(woken) == 0 && !s.hasListenerFor(edge) {
		return
	}

	evt := &edgeEvent{
		EventBase: NewEventBase(s.engine.CurrentTime(), PhaseActive, s),
		edge:      edge,
		waiters:   woken,
	}
	s.engine.Schedule(evt)
}

func (s *Signal) hasListenerFor(edge EdgeKind) bool {
	for _, l := range s.edgeListeners {
		if l.kind.matches(edge) {
			return true
		}
	}

	return false
}

// Handle runs the edge listeners and resumes the waiting tasks.
func (s *Signal) Handle(e Event) error {
	evt := e.(*edgeEvent)

	for _, l := range s.edgeListeners {
		if l.kind.matches(evt.edge) {
			l.fn()
		}
	}

	for _, w := range evt.waiters {
		w.task.wakeUp(w.seq)
	}

	return nil
}

type edgeEvent struct {
	*EventBase
	edge    EdgeKind
	waiters []edgeWaiter
}
