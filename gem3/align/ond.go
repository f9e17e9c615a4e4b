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

// Package align computes bounded edit distances between a query (key) and a
// candidate text window with the O(ND) difference algorithm, and recovers
// CIGAR scripts by walking the retained contours backwards.
package align

import (
	"math"

	"github.com/MarziehLenjani/gem3-mapper/gem3/arena"
)

// DistanceInf is reported when no alignment exists within the distance bound.
const DistanceInf = math.MaxInt32

// ColumnInf is the end column reported along with DistanceInf.
const ColumnInf = -1

// Alignment is the result of a successful alignment.
type Alignment struct {
	Score int // edit distance

	// EffectiveLength is the text span consumed by the alignment:
	// query length, +1 per insertion, -1 per deletion.
	// A leading run of insertions is not part of it.
	EffectiveLength int

	// TextBegin is the length of the leading insertion run,
	// i.e., the offset in the text window where the alignment begins.
	TextBegin int

	Cigar Cigar
}

// parent is the move that reaches a diagonal from the previous contour.
type parent uint8

const (
	fromNone         parent = iota
	fromUpper               // diagonal k+1, consumes a query base (deletion)
	fromSubstitution        // diagonal k, consumes one base of each
	fromLower               // diagonal k-1, consumes a text base (insertion)
	fromStay                // same endpoint as distance d-1
)

// Aligner aligns keys against text windows.
// It is not safe for concurrent use; each worker owns one.
type Aligner struct {
	stack    *arena.Stack
	contours [][]int32
}

// NewAligner creates an Aligner whose contours are allocated from the
// given arena. A nil stack means a private one.
func NewAligner(stack *arena.Stack) *Aligner {
	if stack == nil {
		stack = arena.NewStack(0)
	}
	return &Aligner{
		stack:    stack,
		contours: make([][]int32, 0, 64),
	}
}

// selectParent returns the column where the snake of diagonal k at distance
// d starts, given the contour of distance d-1, together with the move
// taken. Upper wins ties, then the substitution, then lower. Moves leaving
// the m x n grid are skipped; the endpoint of distance d-1 on the same
// diagonal is kept when no move reaches further, so contours never shrink.
// It returns -1 when k is unreachable.
func selectParent(prev []int32, d, k, m, n int) (int, parent) {
	best, from := -1, fromNone
	stay := -1
	dp := d - 1

	// upper neighbour: same column, one more query base
	if k+1 <= dp && k+1 >= -dp {
		if h := int(prev[k+1+dp]); h >= 0 && h-k <= m {
			best, from = h, fromUpper
		}
	}
	// substitution
	if k <= dp && k >= -dp {
		if h := int(prev[k+dp]); h >= 0 {
			stay = h
			if h+1 <= n && h+1-k <= m && h+1 > best {
				best, from = h+1, fromSubstitution
			}
		}
	}
	// lower neighbour: one more text base
	if k-1 <= dp && k-1 >= -dp {
		if h := int(prev[k-1+dp]); h >= 0 && h+1 <= n && h+1 > best {
			best, from = h+1, fromLower
		}
	}
	if stay > best {
		best, from = stay, fromStay
	}
	return best, from
}

// snake extends a diagonal k from column h along matching bases.
func snake(key, text []byte, k, h int) int {
	m, n := len(key), len(text)
	v := h - k
	for h < n && v < m && key[v] == text[h] {
		h++
		v++
	}
	return h
}

// Align computes the edit distance between key and text, if it is not
// greater than maxDistance, and recovers the CIGAR script. The second
// returned value is false when no such alignment exists, in which case
// the score is DistanceInf.
//
// Mismatches are absorbed into match runs of the CIGAR.
func (a *Aligner) Align(key, text []byte, maxDistance int) (Alignment, bool) {
	a.stack.Push()
	defer a.stack.Pop()

	d, ok := a.contoursUntilEnd(key, text, maxDistance)
	if !ok {
		return Alignment{Score: DistanceInf}, false
	}

	aln := a.backtrace(key, text, d)
	return aln, true
}

// contoursUntilEnd fills a.contours for distances 0..d and returns d,
// the first distance reaching the end of both sequences.
func (a *Aligner) contoursUntilEnd(key, text []byte, maxDistance int) (int, bool) {
	m, n := len(key), len(text)
	target := n - m // the diagonal of the end point
	if maxDistance < 0 || target > maxDistance || -target > maxDistance {
		return 0, false
	}
	if maxDistance > m+n {
		maxDistance = m + n
	}

	a.contours = a.contours[:0]

	c := a.stack.Int32s(1)
	c[0] = int32(snake(key, text, 0, 0))
	a.contours = append(a.contours, c)
	if target == 0 && int(c[0]) == n {
		return 0, true
	}

	var h int
	var prev []int32
	for d := 1; d <= maxDistance; d++ {
		prev = c
		c = a.stack.Int32s(2*d + 1)
		a.contours = append(a.contours, c)

		for k := -d; k <= d; k++ {
			h, _ = selectParent(prev, d, k, m, n)
			if h < 0 {
				c[k+d] = -1
				continue
			}
			h = snake(key, text, k, h)
			c[k+d] = int32(h)

			if k == target && h == n {
				return d, true
			}
		}
	}

	return 0, false
}

// backtrace walks the contours from the end point at distance d.
func (a *Aligner) backtrace(key, text []byte, d int) Alignment {
	m, n := len(key), len(text)
	score := d
	k := n - m
	h := n
	v := m

	cigar := make(Cigar, 0, 2*d+1)

	var h0 int
	var from parent
	for d > 0 && v > 0 && h > 0 {
		h0, from = selectParent(a.contours[d-1], d, k, m, n)
		if from == fromNone || h0 > h {
			panic("align: broken contour during backtrace")
		}
		cigar.add(OpMatch, h-h0)

		switch from {
		case fromUpper:
			cigar.add(OpDeletion, 1)
			k++
			h = h0
		case fromSubstitution:
			cigar.add(OpMatch, 1)
			h = h0 - 1
		case fromLower:
			cigar.add(OpInsertion, 1)
			k--
			h = h0 - 1
		case fromStay:
			h = h0
		}
		v = h - k
		d--
	}

	switch {
	case d == 0: // the first snake
		cigar.add(OpMatch, h)
	case v == 0: // leading insertions
		cigar.add(OpInsertion, h)
	default: // leading deletions
		cigar.add(OpDeletion, v)
	}

	cigar.reverse()

	_, ins, del := cigar.Counts()
	eff := m + ins - del
	var textBegin int
	if len(cigar) > 0 && cigar[0].Op == OpInsertion {
		textBegin = cigar[0].Len
		eff -= textBegin
	}

	return Alignment{
		Score:           score,
		EffectiveLength: eff,
		TextBegin:       textBegin,
		Cigar:           cigar,
	}
}

// Distance computes the edit distance only, with two rolling contours.
// It returns DistanceInf and ColumnInf when the distance exceeds maxDistance.
func (a *Aligner) Distance(key, text []byte, maxDistance int) (int, int) {
	m, n := len(key), len(text)
	target := n - m
	if maxDistance < 0 || target > maxDistance || -target > maxDistance {
		return DistanceInf, ColumnInf
	}
	if maxDistance > m+n {
		maxDistance = m + n
	}

	a.stack.Push()
	defer a.stack.Pop()

	size := 2*maxDistance + 1
	prev := a.stack.Int32s(size)
	cur := a.stack.Int32s(size)

	prev[0] = int32(snake(key, text, 0, 0))
	if target == 0 && int(prev[0]) == n {
		return 0, n
	}

	var h int
	for d := 1; d <= maxDistance; d++ {
		for k := -d; k <= d; k++ {
			h, _ = selectParent(prev, d, k, m, n)
			if h < 0 {
				cur[k+d] = -1
				continue
			}
			h = snake(key, text, k, h)
			cur[k+d] = int32(h)

			if k == target && h == n {
				return d, h
			}
		}
		prev, cur = cur, prev
	}
	return DistanceInf, ColumnInf
}
