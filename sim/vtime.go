package sim

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// VTime is a point or a duration on the simulated time axis, in picoseconds.
type VTime uint64

// Units of virtual time.
const (
	Ps VTime = 1
	Ns VTime = 1000 * Ps
	Us VTime = 1000 * Ns
	Ms VTime = 1000 * Us
)

var timeUnits = []struct {
	suffix string
	unit   VTime
}{
	{"ps", Ps},
	{"ns", Ns},
	{"us", Us},
	{"µs", Us},
	{"ms", Ms},
}

// ParseVTime parses strings such as "5ns", "1us" or "250ps". A bare number is
// taken as picoseconds.
func ParseVTime(s string) (VTime, error) {
	str := strings.TrimSpace(s)
	unit := Ps

	for _, u := range timeUnits {
		if strings.HasSuffix(str, u.suffix) {
			str = strings.TrimSpace(strings.TrimSuffix(str, u.suffix))
			unit = u.unit

			break
		}
	}

	n, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid time %q", s)
	}

	return VTime(n) * unit, nil
}

// String prints the time with the largest unit that divides it exactly.
func (t VTime) String() string {
	if t == 0 {
		return "0ps"
	}

	for i := len(timeUnits) - 1; i >= 0; i-- {
		u := timeUnits[i]
		if u.suffix == "µs" {
			continue
		}

		if t%u.unit == 0 {
			return strconv.FormatUint(uint64(t/u.unit), 10) + u.suffix
		}
	}

	return strconv.FormatUint(uint64(t), 10) + "ps"
}
