package ngsi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDuration is returned for strings that are not ISO 8601
// durations.
var ErrInvalidDuration = errors.New("ngsi: invalid ISO 8601 duration")

// Calendar components are approximated for scheduling purposes only; the
// broker receives the original string, so the wire contract is exact.
const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

// ParseDuration converts an ISO 8601 duration (the format NGSI uses for
// registration validity and throttling, e.g. "P1M" or "PT5S") into a
// time.Duration. Months and years are approximated as 30 and 365 days,
// which is sufficient for deciding when to renew a registration.
func ParseDuration(s string) (time.Duration, error) {
	if len(s) < 2 || s[0] != 'P' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	var (
		total    time.Duration
		num      strings.Builder
		inTime   bool
		consumed bool
	)
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9' || r == '.':
			num.WriteRune(r)
		case r == 'T':
			if inTime || num.Len() > 0 {
				return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
			}
			inTime = true
		default:
			unit, err := durationUnit(r, inTime)
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
			}
			value, err := strconv.ParseFloat(num.String(), 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
			}
			num.Reset()
			total += time.Duration(value * float64(unit))
			consumed = true
		}
	}
	if !consumed || num.Len() > 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	return total, nil
}

// durationUnit maps a designator to its duration. "M" means months in the
// date part and minutes in the time part.
func durationUnit(r rune, inTime bool) (time.Duration, error) {
	if inTime {
		switch r {
		case 'H':
			return time.Hour, nil
		case 'M':
			return time.Minute, nil
		case 'S':
			return time.Second, nil
		}
		return 0, ErrInvalidDuration
	}
	switch r {
	case 'Y':
		return year, nil
	case 'M':
		return month, nil
	case 'W':
		return week, nil
	case 'D':
		return day, nil
	}
	return 0, ErrInvalidDuration
}
