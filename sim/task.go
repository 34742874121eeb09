package sim

import (
	"runtime"

	"github.com/pkg/errors"
)

// TaskFunc is the body of a task. Returning a non-nil error aborts the
// simulation.
type TaskFunc func(t *Task) error

type taskState int

const (
	taskCreated taskState = iota
	taskRunning
	taskDone
	taskCancelled
)

type joinRequest struct {
	task *Task
	seq  uint64
}

// A Task is a cooperatively scheduled thread of simulation code.
//
// Each task owns a goroutine, but the engine only lets one of them run at a
// time: it resumes a task and blocks until the task suspends again in Await,
// returns, or is cancelled. Tasks therefore share signals and models without
// locks.
type Task struct {
	id     string
	name   string
	engine *SerialEngine

	resume chan bool
	yield  chan struct{}

	state   taskState
	waitSeq uint64
	err     error
	joiners []joinRequest
}

// Spawn creates a task that starts running in the current time slot, after
// the running code suspends.
func (e *SerialEngine) Spawn(name string, fn TaskFunc) *Task {
	t := &Task{
		id:     GetIDGenerator().Generate(),
		name:   name,
		engine: e,
		resume: make(chan bool),
		yield:  make(chan struct{}),
	}

	e.tasks[t] = struct{}{}

	go t.run(fn)

	now, phase := e.readNow()
	t.waitSeq++
	e.Schedule(newWakeEvent(now, phase, t, t.waitSeq))

	return t
}

// ID returns the unique ID of the task.
func (t *Task) ID() string {
	return t.id
}

// Name returns the name of the task.
func (t *Task) Name() string {
	return t.name
}

// Engine returns the engine that runs the task.
func (t *Task) Engine() *SerialEngine {
	return t.engine
}

// Now returns the current simulation time.
func (t *Task) Now() VTime {
	return t.engine.CurrentTime()
}

// Spawn starts a sibling task on the same engine.
func (t *Task) Spawn(name string, fn TaskFunc) *Task {
	return t.engine.Spawn(name, fn)
}

// Finished returns true if the task has returned or was cancelled.
func (t *Task) Finished() bool {
	return t.state == taskDone || t.state == taskCancelled
}

// Cancelled returns true if the task was cancelled.
func (t *Task) Cancelled() bool {
	return t.state == taskCancelled
}

// Err returns the error the task returned.
func (t *Task) Err() error {
	return t.err
}

// Await suspends the task until the trigger fires. It must only be called by
// the task itself.
func (t *Task) Await(trig Trigger) {
	t.waitSeq++
	trig.arm(t, t.waitSeq)
	t.park()
}

// Join suspends the task until other finishes and returns other's error.
func (t *Task) Join(other *Task) error {
	if !other.Finished() {
		t.Await(joinTrigger{other: other})
	}

	return other.err
}

// Cancel stops the task. A suspended task never resumes; a task that cancels
// itself stops immediately.
func (t *Task) Cancel() {
	if t.Finished() {
		return
	}

	if t.engine.current == t {
		t.state = taskCancelled
		runtime.Goexit()
	}

	t.switchTo(true)
}

func (t *Task) run(fn TaskFunc) {
	defer t.exit()

	if cancel := <-t.resume; cancel {
		t.state = taskCancelled
		return
	}

	t.state = taskRunning
	t.err = t.call(fn)
}

func (t *Task) call(fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("task %s panicked: %v", t.name, r)
		}
	}()

	return fn(t)
}

func (t *Task) exit() {
	if t.state != taskCancelled {
		t.state = taskDone
	}

	e := t.engine
	delete(e.tasks, t)

	if t.state == taskDone && t.err != nil {
		e.fail(errors.Wrapf(t.err, "task %s", t.name))
	}

	now, phase := e.readNow()
	for _, j := range t.joiners {
		e.Schedule(newWakeEvent(now, phase, j.task, j.seq))
	}
	t.joiners = nil

	if e.mainTask == t {
		e.Stop()
	}

	t.yield <- struct{}{}
}

// park hands control back to whoever resumed the task and blocks until the
// task is resumed or cancelled.
func (t *Task) park() {
	t.yield <- struct{}{}

	if cancel := <-t.resume; cancel {
		t.state = taskCancelled
		runtime.Goexit()
	}
}

// switchTo transfers control to the task and blocks until it suspends.
func (t *Task) switchTo(cancel bool) {
	e := t.engine
	prev := e.current
	e.current = t

	t.resume <- cancel
	<-t.yield

	e.current = prev
}

// wakeUp resumes the task if it is still waiting on the wait identified by
// seq. Stale wake-ups of cancelled or already resumed waits are dropped.
func (t *Task) wakeUp(seq uint64) {
	if t.Finished() || seq != t.waitSeq {
		return
	}

	t.switchTo(false)
}

type wakeEvent struct {
	*EventBase
	task *Task
	seq  uint64
}

func newWakeEvent(time VTime, phase Phase, t *Task, seq uint64) *wakeEvent {
	evt := &wakeEvent{task: t, seq: seq}
	evt.EventBase = NewEventBase(time, phase, wakeHandler{})

	return evt
}

type wakeHandler struct{}

func (wakeHandler) Handle(e Event) error {
	evt := e.(*wakeEvent)
	evt.task.wakeUp(evt.seq)

	return nil
}
