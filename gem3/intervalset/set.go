// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package intervalset implements the range algebra over the intervals of
// text positions produced by index searching.
package intervalset

// Interval is a range [Lo, Hi) of positions. Distance is the edit distance
// bound of the positions, Length is the length of the originating seed.
type Interval struct {
	Lo, Hi   uint64
	Distance uint64
	Length   uint64
}

// Len returns the number of covered positions.
func (i *Interval) Len() uint64 {
	if i.Hi <= i.Lo {
		return 0
	}
	return i.Hi - i.Lo
}

// Set is an ordered collection of intervals, overlapping ones allowed.
// It is not safe for concurrent use.
type Set struct {
	Intervals []Interval
}

// New returns an empty set.
func New() *Set {
	return &Set{Intervals: make([]Interval, 0, 50)}
}

// Clear removes all intervals.
func (s *Set) Clear() {
	s.Intervals = s.Intervals[:0]
}

// Add appends an interval.
func (s *Set) Add(lo, hi, distance, length uint64) {
	s.Intervals = append(s.Intervals, Interval{Lo: lo, Hi: hi, Distance: distance, Length: length})
}

// CountIntervals returns the number of intervals.
func (s *Set) CountIntervals() int {
	return len(s.Intervals)
}

// CountLength returns the number of positions of all intervals,
// overlapped positions are counted more than once.
func (s *Set) CountLength() uint64 {
	var n uint64
	for i := range s.Intervals {
		n += s.Intervals[i].Len()
	}
	return n
}

// CountLengthThresholded is CountLength of intervals with distance <= maxDistance.
func (s *Set) CountLengthThresholded(maxDistance uint64) uint64 {
	var n uint64
	for i := range s.Intervals {
		if s.Intervals[i].Distance <= maxDistance {
			n += s.Intervals[i].Len()
		}
	}
	return n
}

// Union appends all intervals of b to a, without merging.
func Union(a, b *Set) {
	if a == nil || b == nil {
		panic("intervalset: nil set")
	}
	a.Intervals = append(a.Intervals, b.Intervals...)
}

// Subtract removes the positions of exclusion from result.
//
// Every interval of result present before the call is compared with every
// interval of exclusion. An interval split by an exclusion interval lying
// strictly inside it is shrunk to the left part, and the right part is
// appended to result; appended parts are not compared with the remaining
// exclusion intervals.
func Subtract(result, exclusion *Set) {
	if result == nil || exclusion == nil {
		panic("intervalset: nil set")
	}

	n := len(result.Intervals)
	var lo1, hi1, lo2, hi2 uint64
	var r *Interval
	for i := 0; i < n; i++ {
		for j := range exclusion.Intervals {
			r = &result.Intervals[i] // appending may move the slice
			lo1, hi1 = r.Lo, r.Hi
			lo2, hi2 = exclusion.Intervals[j].Lo, exclusion.Intervals[j].Hi

			switch {
			case hi1 <= lo2 || hi2 <= lo1: // disjoint
			case lo2 <= lo1 && hi1 <= hi2: // fully covered
				r.Lo = r.Hi
			case lo1 < lo2 && hi2 < hi1: // inside
				r.Hi = lo2
				result.Intervals = append(result.Intervals, Interval{
					Lo:       hi2,
					Hi:       hi1,
					Distance: r.Distance,
					Length:   r.Length,
				})
			case lo2 <= lo1: // overlapping the left edge
				r.Lo = hi2
			default: // overlapping the right edge
				r.Hi = lo2
			}
		}
	}
}
