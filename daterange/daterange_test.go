package daterange_test

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"

	"github.com/rushairer/kumpel/daterange"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		window     int
		want       []daterange.Interval
	}{
		{
			name:  "within_window",
			start: "2020-03-10", end: "2020-03-15", window: 30,
			want: []daterange.Interval{{Start: date("2020-03-10"), End: date("2020-03-15")}},
		},
		{
			name:  "exactly_window",
			start: "2020-01-01", end: "2020-01-31", window: 30,
			want: []daterange.Interval{{Start: date("2020-01-01"), End: date("2020-01-31")}},
		},
		{
			name:  "two_months",
			start: "2012-01-01", end: "2012-02-28", window: 31,
			want: []daterange.Interval{
				{Start: date("2012-01-01"), End: date("2012-01-31")},
				{Start: date("2012-02-01"), End: date("2012-02-28")},
			},
		},
		{
			name:  "boundary_hits_end",
			start: "2021-01-01", end: "2021-01-07", window: 3,
			want: []daterange.Interval{
				{Start: date("2021-01-01"), End: date("2021-01-03")},
				{Start: date("2021-01-04"), End: date("2021-01-07")},
			},
		},
		{
			name:  "short_tail",
			start: "2021-01-01", end: "2021-01-08", window: 3,
			want: []daterange.Interval{
				{Start: date("2021-01-01"), End: date("2021-01-03")},
				{Start: date("2021-01-04"), End: date("2021-01-06")},
				{Start: date("2021-01-07"), End: date("2021-01-08")},
			},
		},
		{
			name:  "leap_year",
			start: "2020-02-01", end: "2020-03-15", window: 29,
			want: []daterange.Interval{
				{Start: date("2020-02-01"), End: date("2020-02-29")},
				{Start: date("2020-03-01"), End: date("2020-03-15")},
			},
		},
		{
			name:  "daily",
			start: "2021-12-30", end: "2022-01-02", window: 1,
			want: []daterange.Interval{
				{Start: date("2021-12-30"), End: date("2021-12-30")},
				{Start: date("2021-12-31"), End: date("2021-12-31")},
				{Start: date("2022-01-01"), End: date("2022-01-02")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := daterange.Split(date(tt.start), date(tt.end), tt.window)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("intervals mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplit_Errors(t *testing.T) {
	d := date("2012-01-01")
	tests := []struct {
		name       string
		start, end civil.Date
		window     int
		want       error
	}{
		{"same_day", d, d, 30, daterange.ErrInvalidRange},
		{"reversed", d.AddDays(5), d, 30, daterange.ErrInvalidRange},
		{"invalid_date", civil.Date{Year: 2012, Month: 2, Day: 30}, d.AddDays(90), 30, daterange.ErrInvalidRange},
		{"zero_window", d, d.AddDays(5), 0, daterange.ErrInvalidWindow},
		{"negative_window", d, d.AddDays(5), -3, daterange.ErrInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := daterange.Split(tt.start, tt.end, tt.window)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if got != nil {
				t.Fatalf("expected no intervals, got %v", got)
			}
		})
	}
}

// 相邻区间不重叠、无空隙，并且覆盖 [start, end]
func TestSplit_Invariants(t *testing.T) {
	start := date("2019-06-15")
	for _, days := range []int{1, 2, 29, 30, 31, 59, 60, 61, 365, 1000} {
		for _, window := range []int{1, 7, 30, 31, 90} {
			end := start.AddDays(days)
			got, err := daterange.Split(start, end, window)
			if err != nil {
				t.Fatalf("Split(%d days, %d): %v", days, window, err)
			}
			if got[0].Start != start || got[len(got)-1].End != end {
				t.Fatalf("Split(%d days, %d) does not cover range: %v", days, window, got)
			}
			total := 0
			for i, iv := range got {
				if iv.End.Before(iv.Start) {
					t.Fatalf("interval %d inverted: %v", i, iv)
				}
				if i > 0 && got[i-1].End.AddDays(1) != iv.Start {
					t.Fatalf("intervals %d and %d not adjacent: %v %v", i-1, i, got[i-1], iv)
				}
				if i < len(got)-1 && iv.Days() != window {
					t.Fatalf("interval %d has %d days, want %d", i, iv.Days(), window)
				}
				total += iv.Days()
			}
			if total != days+1 {
				t.Fatalf("Split(%d days, %d) covers %d days, want %d", days, window, total, days+1)
			}
		}
	}
}

func TestSplit_Idempotent(t *testing.T) {
	start, end := date("2012-01-01"), date("2013-03-17")
	first, err := daterange.Split(start, end, daterange.DefaultWindow)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	second, _ := daterange.Split(start, end, daterange.DefaultWindow)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("Split is not deterministic (-first +second):\n%s", diff)
	}
}

func TestSplitStrings(t *testing.T) {
	got, err := daterange.SplitStrings("2012-01-01", "2012-02-28", 31)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 || got[1].String() != "2012-02-01/2012-02-28" {
		t.Fatalf("unexpected intervals: %v", got)
	}
	if _, err := daterange.SplitStrings("2012-13-01", "2012-02-28", 31); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := daterange.SplitStrings("2012-01-01", "tomorrow", 31); err == nil {
		t.Fatalf("expected parse error")
	}
}
