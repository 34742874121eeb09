package scoreboard

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMismatch reports that a received transaction differs from the
	// expected transaction it was paired with.
	ErrMismatch = errors.New("transaction mismatch")

	// ErrNoActivity reports that no transaction was expected at all.
	ErrNoActivity = errors.New("no activity")

	// ErrResidue reports transactions that were never paired, either left in
	// a queue or visible as a difference between the counters.
	ErrResidue = errors.New("unmatched transactions")
)

// A VerdictError lists the reasons why a scoreboard failed.
type VerdictError struct {
	Scoreboard string
	Stats      Stats
	Reasons    []error
}

func (e *VerdictError) Error() string {
	msgs := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		msgs[i] = r.Error()
	}

	return "scoreboard " + e.Scoreboard + " failed: " +
		strings.Join(msgs, "; ") + " (" + e.Stats.String() + ")"
}

// Unwrap returns the reasons, so that errors.Is finds each of them.
func (e *VerdictError) Unwrap() []error {
	return e.Reasons
}

// Check returns nil if the counters describe a passing run and a
// *VerdictError otherwise.
func (s Stats) Check(name string) error {
	var reasons []error

	if s.Errors > 0 {
		reasons = append(reasons, errors.Wrapf(ErrMismatch,
			"%d of %d comparisons", s.Errors, s.Matched+s.Errors))
	}

	if s.Expected == 0 {
		reasons = append(reasons, errors.Wrap(ErrNoActivity,
			"nothing was expected"))
	}

	if s.Expected != s.Received {
		reasons = append(reasons, errors.Wrapf(ErrResidue,
			"expected %d transactions but received %d",
			s.Expected, s.Received))
	}

	if s.ExpectedPending > 0 || s.ReceivedPending > 0 {
		reasons = append(reasons, errors.Wrapf(ErrResidue,
			"%d expected and %d received transactions still queued",
			s.ExpectedPending, s.ReceivedPending))
	}

	if len(reasons) == 0 {
		return nil
	}

	return &VerdictError{
		Scoreboard: name,
		Stats:      s,
		Reasons:    reasons,
	}
}
