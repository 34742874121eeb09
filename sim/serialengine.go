package sim

import (
	"log"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// ErrNoMoreEvents is returned by RunTask when the event queue drains before
// the main task finishes.
var ErrNoMoreEvents = errors.New("no more events to run")

// A SerialEngine is an Engine that always run events one after another. It
// also hosts the tasks of a testbench and hands control to exactly one of
// them at a time.
type SerialEngine struct {
	HookableBase

	timeLock sync.RWMutex
	time     VTime
	phase    Phase
	queue    EventQueue

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex

	stopped bool
	fatal   error

	tasks    map[*Task]struct{}
	current  *Task
	mainTask *Task

	simulationEndHandlers []SimulationEndHandler
}

// NewSerialEngine creates a SerialEngine.
func NewSerialEngine() *SerialEngine {
	e := new(SerialEngine)

	e.queue = NewEventQueue()
	e.tasks = make(map[*Task]struct{})

	return e
}

// Schedule registers an event to happen in the future. An event may target
// an earlier phase of the current time slot, but never an earlier time.
func (e *SerialEngine) Schedule(evt Event) {
	now, _ := e.readNow()
	if evt.Time() < now {
		log.Panic("scheduling an event earlier than current time")
	}

	e.queue.Push(evt)
}

func (e *SerialEngine) readNow() (VTime, Phase) {
	e.timeLock.RLock()
	t, p := e.time, e.phase
	e.timeLock.RUnlock()

	return t, p
}

func (e *SerialEngine) writeNow(t VTime, p Phase) {
	e.timeLock.Lock()
	e.time = t
	e.phase = p
	e.timeLock.Unlock()
}

// Run processes the scheduled events until the queue is empty, Stop is
// called, or an event handler or a task fails.
func (e *SerialEngine) Run() error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	e.stopped = false
	e.fatal = nil

	defer func() {
		now, _ := e.readNow()
		e.writeNow(now, PhaseActive)
	}()

	for {
		if e.fatal != nil {
			return e.fatal
		}

		if e.stopped || e.queue.Len() == 0 {
			return nil
		}

		e.pauseLock.Lock()

		evt := e.queue.Pop()
		now, _ := e.readNow()
		if evt.Time() < now {
			log.Panicf(
				"cannot run event in the past, evt %s @ %s, now %s",
				reflect.TypeOf(evt), evt.Time(), now,
			)
		}
		e.writeNow(evt.Time(), evt.Phase())

		hookCtx := HookCtx{
			Domain: e,
			Pos:    HookPosBeforeEvent,
			Item:   evt,
		}
		e.InvokeHook(hookCtx)

		err := evt.Handler().Handle(evt)
		if err != nil {
			e.fail(err)
		}

		hookCtx.Pos = HookPosAfterEvent
		e.InvokeHook(hookCtx)

		e.pauseLock.Unlock()
	}
}

// RunTask spawns fn as the main task and runs the simulation until it
// returns. All other tasks that are still alive afterwards are cancelled.
func (e *SerialEngine) RunTask(name string, fn TaskFunc) error {
	main := e.Spawn(name, fn)
	e.mainTask = main

	defer func() {
		e.mainTask = nil
		e.CancelAll()
	}()

	err := e.Run()
	if err != nil {
		return err
	}

	if !main.Finished() {
		return errors.Wrapf(ErrNoMoreEvents, "task %s did not finish", name)
	}

	return nil
}

// Stop makes Run return once the current event is handled.
func (e *SerialEngine) Stop() {
	e.stopped = true
}

// fail records the first fatal error of the run and stops the engine.
func (e *SerialEngine) fail(err error) {
	if e.fatal == nil {
		e.fatal = err
	}

	e.stopped = true
}

// Err returns the fatal error that aborted the last run, if any.
func (e *SerialEngine) Err() error {
	return e.fatal
}

// CancelAll cancels every task that has not finished.
func (e *SerialEngine) CancelAll() {
	alive := make([]*Task, 0, len(e.tasks))
	for t := range e.tasks {
		alive = append(alive, t)
	}

	for _, t := range alive {
		t.Cancel()
	}
}

// NumTasks returns the number of tasks that have not finished.
func (e *SerialEngine) NumTasks() int {
	return len(e.tasks)
}

// Pause prevents the SerialEngine to trigger more events.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue allows the SerialEngine to trigger more events.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// CurrentTime returns the current time at which the engine is at.
// Specifically, the run time of the current event.
func (e *SerialEngine) CurrentTime() VTime {
	t, _ := e.readNow()
	return t
}

// CurrentPhase returns the phase of the current event.
func (e *SerialEngine) CurrentPhase() Phase {
	_, p := e.readNow()
	return p
}

// RegisterSimulationEndHandler registers a handler to be called by Finished.
func (e *SerialEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.simulationEndHandlers = append(e.simulationEndHandlers, handler)
}

// Finished should be called after the simulation ends. This function
// calls all the registered SimulationEndHandler.
func (e *SerialEngine) Finished() {
	now, _ := e.readNow()
	for _, h := range e.simulationEndHandlers {
		h.Handle(now)
	}
}
