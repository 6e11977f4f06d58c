package delta

import "fmt"

// Interval is a half-open range [Start, End) of document positions.
type Interval struct {
	Start int
	End   int
}

// NewInterval creates an interval. A reversed range is collapsed to an empty
// interval at start.
func NewInterval(start, end int) Interval {
	if end < start {
		end = start
	}

	return Interval{Start: start, End: end}
}

// Size returns the number of positions covered by the interval.
func (i Interval) Size() int {
	if i.End <= i.Start {
		return 0
	}

	return i.End - i.Start
}

// IsEmpty reports whether the interval covers no positions.
func (i Interval) IsEmpty() bool {
	return i.End <= i.Start
}

// Contains reports whether pos lies inside the interval.
func (i Interval) Contains(pos int) bool {
	return pos >= i.Start && pos < i.End
}

// Prefix returns the part of i that lies before other.
func (i Interval) Prefix(other Interval) Interval {
	return Interval{
		Start: min(i.Start, other.Start),
		End:   min(i.End, other.Start),
	}
}

// Suffix returns the part of i that lies after other.
func (i Interval) Suffix(other Interval) Interval {
	return Interval{
		Start: max(i.Start, other.End),
		End:   max(i.End, other.End),
	}
}

// Intersect returns the overlap of both intervals, or an empty interval.
func (i Interval) Intersect(other Interval) Interval {
	start := max(i.Start, other.Start)
	end := min(i.End, other.End)

	if end < start {
		return Interval{Start: start, End: start}
	}

	return Interval{Start: start, End: end}
}

func (i Interval) String() string {
	return fmt.Sprintf("[%d,%d)", i.Start, i.End)
}
