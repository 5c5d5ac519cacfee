package ticklake

import (
	"fmt"
	"iter"
	"time"
)

// dayLayout is the wire format for trade dates and expiration dates.
const dayLayout = "20060102"

// -----------------------------------------------------------------------------
// Date ranges
// -----------------------------------------------------------------------------

// DateRange is an inclusive calendar-day range. Construct with
// NewDateRange, SingleDay, or ParseDateRange so ordering is checked up
// front.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds an inclusive range, rejecting start after end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	start, end = midnight(start), midnight(end)
	if start.After(end) {
		return DateRange{}, &RangeError{Msg: fmt.Sprintf(
			"range start %s is after end %s",
			start.Format(dayLayout), end.Format(dayLayout))}
	}
	return DateRange{Start: start, End: end}, nil
}

// SingleDay normalizes one date to the degenerate range [d, d].
func SingleDay(d time.Time) DateRange {
	d = midnight(d)
	return DateRange{Start: d, End: d}
}

// ParseDay parses a yyyymmdd string (e.g. "20230729") into a UTC date.
func ParseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("ticklake: %q does not match the yyyymmdd format", s)
	}
	return d, nil
}

// ParseDateRange parses yyyymmdd endpoints into an inclusive range. An
// empty end normalizes to the single day at start.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDay(start)
	if err != nil {
		return DateRange{}, err
	}
	if end == "" {
		return SingleDay(s), nil
	}
	e, err := ParseDay(end)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

// Days yields every calendar day of the range in chronological order,
// both endpoints included.
func (r DateRange) Days() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// Months yields the first day of every calendar year-month the range
// touches, in chronological order.
func (r DateRange) Months() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		first := time.Date(r.Start.Year(), r.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
		last := time.Date(r.End.Year(), r.End.Month(), 1, 0, 0, 0, 0, time.UTC)
		for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
			if !yield(m) {
				return
			}
		}
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// -----------------------------------------------------------------------------
// Selection
// -----------------------------------------------------------------------------

// Selection is a caller's normalized choice of symbols, trade dates, and
// (for futures datasets) contract expirations.
//
// Symbols keep their caller order and are not deduplicated: a symbol
// listed twice legitimately yields its keys twice. Expiration is ignored
// unless the dataset's path format references the futures axis.
type Selection struct {
	Symbols    []string
	Dates      DateRange
	Expiration *DateRange
}

// NewSelection bundles symbols and a trade-date range.
func NewSelection(symbols []string, dates DateRange) Selection {
	return Selection{Symbols: symbols, Dates: dates}
}

// WithExpiration returns a copy of the selection carrying an expiration
// range for futures datasets.
func (s Selection) WithExpiration(r DateRange) Selection {
	s.Expiration = &r
	return s
}

// Validate checks the selection independently of any template: symbols
// must be a non-empty list of non-empty strings, and ranges must be
// ordered even when constructed as struct literals.
func (s Selection) Validate() error {
	if len(s.Symbols) == 0 {
		return &RangeError{Msg: "selection has no symbols"}
	}
	for _, sym := range s.Symbols {
		if sym == "" {
			return &RangeError{Msg: "selection contains an empty symbol"}
		}
	}
	if s.Dates.Start.After(s.Dates.End) {
		return &RangeError{Msg: "date range start is after end"}
	}
	if s.Expiration != nil && s.Expiration.Start.After(s.Expiration.End) {
		return &RangeError{Msg: "expiration range start is after end"}
	}
	return nil
}
