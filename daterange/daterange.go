// Package daterange splits calendar date ranges into adjacent windows,
// typically to page a time-ranged report API one sub-range at a time.
package daterange

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

// DefaultWindow is the window size, in days, used by callers that have no
// better choice.
const DefaultWindow = 30

var (
	// ErrInvalidRange start is not before end.
	ErrInvalidRange = errors.New("daterange: start must be before end")
	// ErrInvalidWindow window is not positive.
	ErrInvalidWindow = errors.New("daterange: window must be positive")
)

// Interval is a date range inclusive on both ends.
type Interval struct {
	Start civil.Date
	End   civil.Date
}

func (i Interval) String() string {
	return i.Start.String() + "/" + i.End.String()
}

// Days is the number of calendar days covered, both ends included.
func (i Interval) Days() int {
	return i.End.DaysSince(i.Start) + 1
}

// Split divides [start, end] into adjacent intervals. Every interval but the
// last starts a multiple of window days after start and ends the day before
// the next one begins; the last interval ends exactly at end.
//
// When end is at most window days after start, the whole range is returned
// as a single interval.
func Split(start, end civil.Date, window int) ([]Interval, error) {
	if !start.IsValid() || !end.IsValid() {
		return nil, fmt.Errorf("%w: invalid date %s or %s", ErrInvalidRange, start, end)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: %s >= %s", ErrInvalidRange, start, end)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}

	if end.DaysSince(start) <= window {
		return []Interval{{Start: start, End: end}}, nil
	}

	var bounds []civil.Date
	for d := start; d.Before(end); d = d.AddDays(window) {
		bounds = append(bounds, d)
	}
	bounds = append(bounds, end)

	intervals := make([]Interval, 0, len(bounds)-1)
	for i := 0; i < len(bounds)-2; i++ {
		intervals = append(intervals, Interval{Start: bounds[i], End: bounds[i+1].AddDays(-1)})
	}
	intervals = append(intervals, Interval{Start: bounds[len(bounds)-2], End: bounds[len(bounds)-1]})
	return intervals, nil
}

// SplitStrings is Split for YYYY-MM-DD strings.
func SplitStrings(start, end string, window int) ([]Interval, error) {
	s, err := civil.ParseDate(start)
	if err != nil {
		return nil, fmt.Errorf("parse start date: %w", err)
	}
	e, err := civil.ParseDate(end)
	if err != nil {
		return nil, fmt.Errorf("parse end date: %w", err)
	}
	return Split(s, e, window)
}
