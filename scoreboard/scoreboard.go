// Package scoreboard compares the transactions a design produces against the
// transactions it is expected to produce, strictly in order.
package scoreboard

import (
	"fmt"
	"log"
	"sync"

	"github.com/sarchlab/rtltb/sim"
)

// Side tells whether a transaction is expected or received.
type Side int

// The two sides of a scoreboard.
const (
	Expected Side = iota
	Received
)

func (s Side) String() string {
	switch s {
	case Expected:
		return "expected"
	case Received:
		return "received"
	default:
		return "unknown"
	}
}

// DrainPolicy determines how many pairs one add call compares.
type DrainPolicy int

const (
	// DrainAll compares pairs until one of the queues is empty.
	DrainAll DrainPolicy = iota

	// DrainOne compares at most one pair per add call.
	DrainOne
)

func (p DrainPolicy) String() string {
	switch p {
	case DrainAll:
		return "all"
	case DrainOne:
		return "one"
	default:
		return "unknown"
	}
}

// HookPosMatch marks a comparison of two equal transactions.
var HookPosMatch = &sim.HookPos{Name: "Scoreboard Match"}

// HookPosMismatch marks a comparison of two different transactions.
var HookPosMismatch = &sim.HookPos{Name: "Scoreboard Mismatch"}

// Comparison is the item passed to the scoreboard hooks.
type Comparison[T comparable] struct {
	// Index counts the comparisons from 0.
	Index    uint64
	Expected T
	Received T
}

// Match returns true if the two transactions are equal.
func (c Comparison[T]) Match() bool {
	return c.Expected == c.Received
}

// ComparisonRecord is a Comparison with the transactions formatted as text,
// independent of the transaction type.
type ComparisonRecord struct {
	Index    uint64
	Expected string
	Received string
	Match    bool
}

// Record formats the comparison.
func (c Comparison[T]) Record() ComparisonRecord {
	return ComparisonRecord{
		Index:    c.Index,
		Expected: fmt.Sprintf("%v", c.Expected),
		Received: fmt.Sprintf("%v", c.Received),
		Match:    c.Match(),
	}
}

// Stats is a snapshot of the scoreboard counters.
type Stats struct {
	Expected        uint64 `json:"expected"`
	Received        uint64 `json:"received"`
	Matched         uint64 `json:"matched"`
	Errors          uint64 `json:"errors"`
	ExpectedPending int    `json:"expected_pending"`
	ReceivedPending int    `json:"received_pending"`
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"expected=%d, received=%d, matched=%d, errors=%d, expQ: %d, recvQ: %d",
		s.Expected, s.Received, s.Matched, s.Errors,
		s.ExpectedPending, s.ReceivedPending,
	)
}

// A Scoreboard pairs the Nth expected transaction with the Nth received
// transaction.
//
// The scoreboard is driven by simulation tasks, which never run concurrently.
// Stats and String may be called from any goroutine.
type Scoreboard[T comparable] struct {
	sim.HookableBase

	name   string
	policy DrainPolicy
	logger *log.Logger

	lock     sync.RWMutex
	expQ     *sim.Queue[T]
	recvQ    *sim.Queue[T]
	expected uint64
	received uint64
	matched  uint64
	errors   uint64
}

// New creates an empty scoreboard.
func New[T comparable](name string, policy DrainPolicy) *Scoreboard[T] {
	return &Scoreboard[T]{
		name:   name,
		policy: policy,
		expQ:   sim.NewQueue[T](name+".ExpectedQueue", 0),
		recvQ:  sim.NewQueue[T](name+".ReceivedQueue", 0),
	}
}

// WithLogger makes the scoreboard report every mismatch to the logger.
func (s *Scoreboard[T]) WithLogger(logger *log.Logger) *Scoreboard[T] {
	s.logger = logger
	return s
}

// Name returns the name of the scoreboard.
func (s *Scoreboard[T]) Name() string {
	return s.name
}

// Policy returns the drain policy.
func (s *Scoreboard[T]) Policy() DrainPolicy {
	return s.policy
}

// AddExpected records a transaction the design should produce.
func (s *Scoreboard[T]) AddExpected(t T) {
	s.Add(Expected, t)
}

// AddReceived records a transaction the design produced.
func (s *Scoreboard[T]) AddReceived(t T) {
	s.Add(Received, t)
}

// Add records a transaction on the given side and compares what can be
// compared.
func (s *Scoreboard[T]) Add(side Side, t T) {
	s.lock.Lock()

	switch side {
	case Expected:
		s.expQ.Push(t)
		s.expected++
	case Received:
		s.recvQ.Push(t)
		s.received++
	default:
		s.lock.Unlock()
		log.Panicf("scoreboard %s: unknown side %d", s.name, side)
	}

	comparisons := s.compare()

	s.lock.Unlock()

	s.report(comparisons)
}

func (s *Scoreboard[T]) compare() []Comparison[T] {
	var comparisons []Comparison[T]

	for s.expQ.Size() > 0 && s.recvQ.Size() > 0 {
		exp, _ := s.expQ.Pop()
		recv, _ := s.recvQ.Pop()

		c := Comparison[T]{
			Index:    s.matched + s.errors,
			Expected: exp,
			Received: recv,
		}

		if c.Match() {
			s.matched++
		} else {
			s.errors++
		}

		comparisons = append(comparisons, c)

		if s.policy == DrainOne {
			break
		}
	}

	return comparisons
}

func (s *Scoreboard[T]) report(comparisons []Comparison[T]) {
	for _, c := range comparisons {
		pos := HookPosMatch
		if !c.Match() {
			pos = HookPosMismatch

			if s.logger != nil {
				s.logger.Printf("%s: mismatch #%d, expected %v, received %v",
					s.name, c.Index, c.Expected, c.Received)
			}
		}

		if s.NumHooks() > 0 {
			s.InvokeHook(sim.HookCtx{
				Domain: s,
				Pos:    pos,
				Item:   c,
			})
		}
	}
}

// Stats returns a snapshot of the counters and the queue lengths.
func (s *Scoreboard[T]) Stats() Stats {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return Stats{
		Expected:        s.expected,
		Received:        s.received,
		Matched:         s.matched,
		Errors:          s.errors,
		ExpectedPending: s.expQ.Size(),
		ReceivedPending: s.recvQ.Size(),
	}
}

// Result returns true if every expected transaction was received, in order,
// with nothing left over, and at least one transaction was expected.
func (s *Scoreboard[T]) Result() bool {
	return s.Check() == nil
}

// Check returns nil if the scoreboard passes. Otherwise, it returns a
// *VerdictError that lists every reason of the failure.
func (s *Scoreboard[T]) Check() error {
	return s.Stats().Check(s.name)
}

func (s *Scoreboard[T]) String() string {
	return s.Stats().String()
}
