package enrollment

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 microsecond-precision format used for
// every timestamp in this package. Fractional seconds are always printed
// with six digits, so formatted timestamps sort lexicographically.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// AddMicroseconds adds the given (possibly negative) number of
// microseconds to an ISO-8601 timestamp string, returning a timestamp in
// the same format. A missing fractional part is treated as .000000.
//
// The common case is pure string arithmetic on the microsecond field;
// only a carry across the seconds boundary falls back to calendar
// arithmetic via the time package.
func AddMicroseconds(timestamp string, microseconds int) (string, error) {
	base, frac, found := strings.Cut(timestamp, ".")
	if !found {
		frac = "0"
		timestamp = timestamp + ".000000"
	}
	if !validTimestampBase(base) {
		return "", fmt.Errorf("malformed timestamp %q", timestamp)
	}

	microsec, err := strconv.Atoi(frac)
	if err != nil {
		return "", fmt.Errorf("parse microseconds of %q: %w", timestamp, err)
	}
	microsec += microseconds
	if microsec >= 0 && microsec < 1000000 {
		return fmt.Sprintf("%s.%06d", base, microsec), nil
	}

	// Carry into (or borrow from) the seconds field.
	parsed, err := time.Parse(TimestampLayout, timestamp)
	if err != nil {
		return "", fmt.Errorf("parse timestamp %q: %w", timestamp, err)
	}
	shifted := parsed.Add(time.Duration(microseconds) * time.Microsecond)
	return shifted.Format(TimestampLayout), nil
}

// validTimestampBase checks the "2006-01-02T15:04:05" shape of a
// timestamp's non-fractional part, guarding the string fast path. Field
// values are not range-checked here; only the carry path needs a full
// parse and rejects them there.
func validTimestampBase(base string) bool {
	if len(base) != len("2006-01-02T15:04:05") {
		return false
	}
	for i := 0; i < len(base); i++ {
		c := base[i]
		switch i {
		case 4, 7:
			if c != '-' {
				return false
			}
		case 10:
			if c != 'T' {
				return false
			}
		case 13, 16:
			if c != ':' {
				return false
			}
		default:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

// PickGapTimestamp places a synthesized event strictly inside the gap
// bracketed by two real timestamps: one microsecond after the "after"
// bound when it is known, else one microsecond before the "before"
// bound. Callers guarantee at least one bound is non-empty.
func PickGapTimestamp(after, before string) (string, error) {
	if after != "" {
		return AddMicroseconds(after, 1)
	}
	return AddMicroseconds(before, -1)
}
