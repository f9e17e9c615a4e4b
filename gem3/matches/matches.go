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

package matches

import (
	"slices"

	"github.com/MarziehLenjani/gem3-mapper/gem3/align"
	"github.com/rdleal/intervalst/interval"
)

// Matches is the collection of accepted traces of one query (one end).
// It is not safe for concurrent use.
type Matches struct {
	traces  []*MatchTrace
	pending []*MatchTrace // local matches waiting for promotion

	// locus index, one tree per strand, keyed by [begin, end-1]
	trees [2]*interval.SearchTree[*MatchTrace, int]

	Metrics Metrics

	// MaxCompleteStratum is the distance up to which all matches are known
	// to be found. It is 0 until the searcher sets it.
	MaxCompleteStratum int
}

var cmpInt = func(x, y int) int { return x - y }

// New returns an empty collection.
func New() *Matches {
	m := &Matches{
		traces:  make([]*MatchTrace, 0, 8),
		pending: make([]*MatchTrace, 0, 4),
	}
	m.Clear()
	return m
}

// Clear removes all traces and resets the metrics.
func (m *Matches) Clear() {
	clear(m.traces)
	m.traces = m.traces[:0]
	clear(m.pending)
	m.pending = m.pending[:0]
	m.trees[Forward] = interval.NewSearchTree[*MatchTrace, int](cmpInt)
	m.trees[Reverse] = interval.NewSearchTree[*MatchTrace, int](cmpInt)
	m.Metrics.Reset()
	m.MaxCompleteStratum = 0
}

// Len returns the number of accepted traces.
func (m *Matches) Len() int { return len(m.traces) }

// Traces returns the accepted traces. Do not modify the slice.
func (m *Matches) Traces() []*MatchTrace { return m.traces }

// IsMapped tells if any trace is accepted.
func (m *Matches) IsMapped() bool { return len(m.traces) > 0 }

func span(t *MatchTrace) (int, int) {
	b, e := t.Begin(), t.End()-1
	if e < b {
		e = b
	}
	return b, e
}

// sameLocus returns the accepted trace sharing the strand and the begin or
// end position with t.
func (m *Matches) sameLocus(t *MatchTrace) *MatchTrace {
	tree := m.trees[t.Strand&1]
	b, e := t.Begin(), t.End()

	hits, ok := tree.AllIntersections(b, b)
	if ok {
		for _, h := range hits {
			if h.Begin() == b {
				return h
			}
		}
	}
	last := e - 1
	if last < b {
		last = b
	}
	hits, ok = tree.AllIntersections(last, last)
	if ok {
		for _, h := range hits {
			if h.End() == e {
				return h
			}
		}
	}
	return nil
}

// Add inserts a trace, which is owned by the collection afterwards.
//
// If an accepted trace at the same locus (same strand, and same begin or
// end position) exists, it is replaced in place only when the new one has
// a strictly smaller distance, in which case the stored trace and true are
// returned. Otherwise the existing one is kept and nil is returned.
// Newly accepted traces are returned with false.
func (m *Matches) Add(t *MatchTrace) (*MatchTrace, bool) {
	if t == nil {
		panic("matches: nil trace")
	}

	if old := m.sameLocus(t); old != nil {
		if t.Distance >= old.Distance {
			return nil, false
		}

		tree := m.trees[old.Strand&1]
		b, e := span(old)
		tree.Delete(b, e)

		*old = *t
		b, e = span(old)
		tree.Insert(b, e, old)

		m.updateMinDistance(old.Distance)
		return old, true
	}

	b, e := span(t)
	m.trees[t.Strand&1].Insert(b, e, t)
	m.traces = append(m.traces, t)
	m.updateMinDistance(t.Distance)
	return t, false
}

func (m *Matches) updateMinDistance(d int) {
	if d < m.Metrics.MinDistance {
		m.Metrics.MinDistance = d
	}
}

// AddLocalPending files a local trace that is not committed.
// A pending trace at the same locus is replaced only by a strictly
// better one. It returns whether t is kept.
func (m *Matches) AddLocalPending(t *MatchTrace) bool {
	for i, p := range m.pending {
		if p.SeqIdx != t.SeqIdx || p.Strand != t.Strand ||
			(p.Begin() != t.Begin() && p.End() != t.End()) {
			continue
		}
		if t.Distance >= p.Distance {
			return false
		}
		m.pending[i] = t
		return true
	}
	m.pending = append(m.pending, t)
	return true
}

// LocalPending returns the pending local traces.
func (m *Matches) LocalPending() []*MatchTrace { return m.pending }

// WorstDistance returns the largest distance of accepted traces,
// or align.DistanceInf for an empty collection.
func (m *Matches) WorstDistance() int {
	if len(m.traces) == 0 {
		return align.DistanceInf
	}
	worst := 0
	for _, t := range m.traces {
		if t.Distance > worst {
			worst = t.Distance
		}
	}
	return worst
}

// BestDistance returns the smallest distance of accepted traces,
// or align.DistanceInf for an empty collection.
func (m *Matches) BestDistance() int {
	best := align.DistanceInf
	for _, t := range m.traces {
		if t.Distance < best {
			best = t.Distance
		}
	}
	return best
}

// SortByDistance sorts traces by distance, then by position.
func (m *Matches) SortByDistance() {
	slices.SortStableFunc(m.traces, func(a, b *MatchTrace) int {
		if a.Distance != b.Distance {
			return a.Distance - b.Distance
		}
		if a.TextPosition != b.TextPosition {
			return a.TextPosition - b.TextPosition
		}
		return int(a.Strand) - int(b.Strand)
	})
}
