package datarecording

import (
	"github.com/sarchlab/rtltb/scoreboard"
	"github.com/sarchlab/rtltb/sim"
	"github.com/sarchlab/rtltb/tb"
)

const (
	comparisonTable = "scoreboard_comparisons"
	verdictTable    = "verdicts"
)

// ComparisonEntry is a row of the scoreboard_comparisons table.
type ComparisonEntry struct {
	RunID      string
	Scoreboard string
	Time       uint64
	Number     uint64
	Expected   string
	Received   string
	Matched    bool
}

type recordable interface {
	Record() scoreboard.ComparisonRecord
}

type named interface {
	Name() string
}

// A ScoreboardTracer is a hook that records the comparisons of a scoreboard.
type ScoreboardTracer struct {
	recorder       DataRecorder
	timeTeller     sim.TimeTeller
	runID          string
	mismatchesOnly bool
}

// NewScoreboardTracer creates a tracer. Attach it to scoreboards with
// AcceptHook.
func NewScoreboardTracer(
	recorder DataRecorder,
	timeTeller sim.TimeTeller,
	runID string,
) *ScoreboardTracer {
	recorder.CreateTable(comparisonTable, ComparisonEntry{})

	return &ScoreboardTracer{
		recorder:   recorder,
		timeTeller: timeTeller,
		runID:      runID,
	}
}

// MismatchesOnly makes the tracer skip matching comparisons.
func (t *ScoreboardTracer) MismatchesOnly() *ScoreboardTracer {
	t.mismatchesOnly = true
	return t
}

// Func records the comparison carried by the hook context.
func (t *ScoreboardTracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != scoreboard.HookPosMatch &&
		ctx.Pos != scoreboard.HookPosMismatch {
		return
	}

	if t.mismatchesOnly && ctx.Pos == scoreboard.HookPosMatch {
		return
	}

	c, ok := ctx.Item.(recordable)
	if !ok {
		return
	}

	r := c.Record()

	entry := ComparisonEntry{
		RunID:    t.runID,
		Time:     uint64(t.timeTeller.CurrentTime()),
		Number:   r.Index,
		Expected: r.Expected,
		Received: r.Received,
		Matched:  r.Match,
	}

	if n, ok := ctx.Domain.(named); ok {
		entry.Scoreboard = n.Name()
	}

	t.recorder.InsertData(comparisonTable, entry)
}

// VerdictEntry is a row of the verdicts table. Times are in picoseconds and
// wall times in nanoseconds.
type VerdictEntry struct {
	RunID             string
	Name              string
	Passed            bool
	Expected          uint64
	Received          uint64
	Matched           uint64
	Errors            uint64
	ExpectedPending   int
	ReceivedPending   int
	AssertionFailures uint64
	SimTime           uint64
	WallTime          int64
	Reason            string
}

// RecordVerdict writes the outcome of a run and flushes the recorder.
func RecordVerdict(recorder DataRecorder, runID string, v tb.Verdict) {
	recorder.CreateTable(verdictTable, VerdictEntry{})

	entry := VerdictEntry{
		RunID:           runID,
		Name:            v.Name,
		Passed:          v.Passed,
		Expected:        v.Stats.Expected,
		Received:        v.Stats.Received,
		Matched:         v.Stats.Matched,
		Errors:          v.Stats.Errors,
		ExpectedPending: v.Stats.ExpectedPending,
		ReceivedPending: v.Stats.ReceivedPending,
		SimTime:         uint64(v.SimTime),
		WallTime:        int64(v.WallTime),
		Reason:          v.Reason,
	}

	for _, a := range v.Assertions {
		entry.AssertionFailures += a.Failed
	}

	recorder.InsertData(verdictTable, entry)
	recorder.Flush()
}

// MapTables binds the tables written by this package to their row types.
func MapTables(r DataReader) {
	r.MapTable(runInfoTable, RunInfo{})
	r.MapTable(comparisonTable, ComparisonEntry{})
	r.MapTable(verdictTable, VerdictEntry{})
}
