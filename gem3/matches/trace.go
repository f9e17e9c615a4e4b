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

// Package matches holds the match traces of a query and the per-query
// collection with same-locus deduplication.
package matches

import (
	"fmt"

	"github.com/MarziehLenjani/gem3-mapper/gem3/align"
)

// Strand is the strand of the text a query is aligned to.
type Strand uint8

const (
	Forward Strand = iota
	Reverse
)

func (s Strand) String() string {
	if s == Reverse {
		return "-"
	}
	return "+"
}

// Kind is how a trace was produced.
type Kind uint8

const (
	Global   Kind = iota // end-to-end alignment of the key
	Local                // only part of the key is aligned
	Extended             // found while extending the mate of a paired query
)

func (k Kind) String() string {
	switch k {
	case Global:
		return "global"
	case Local:
		return "local"
	case Extended:
		return "extended"
	}
	return "unknown"
}

// MatchTrace is a verified alignment of a query.
type MatchTrace struct {
	SeqIdx       int    // index of the reference sequence
	TextPosition int    // global text position of the first aligned base
	Strand       Strand // strand of the text
	Distance     int    // edit distance
	SWGScore     int    // gap-affine score, only for local traces
	MapQ         uint8
	Kind         Kind

	Alignment align.Alignment
}

// Begin returns the global text position of the first aligned base.
func (t *MatchTrace) Begin() int { return t.TextPosition }

// End returns the global text position after the last aligned base.
func (t *MatchTrace) End() int { return t.TextPosition + t.Alignment.EffectiveLength }

// Clone returns a deep copy.
func (t *MatchTrace) Clone() *MatchTrace {
	t2 := *t
	t2.Alignment.Cigar = t.Alignment.Cigar.Clone()
	return &t2
}

func (t *MatchTrace) String() string {
	return fmt.Sprintf("%d:%d-%d(%s) d=%d %s %s",
		t.SeqIdx, t.Begin(), t.End(), t.Strand, t.Distance, t.Alignment.Cigar, t.Kind)
}

// Metrics summarizes the exploration of candidates of a query.
type Metrics struct {
	CandidatesExamined int
	CandidatesAccepted int

	// LimitedCandidates means some candidates were not aligned because they
	// could not beat the accepted matches.
	LimitedCandidates bool

	MinDistance int
}

// Reset resets all the values.
func (m *Metrics) Reset() {
	m.CandidatesExamined = 0
	m.CandidatesAccepted = 0
	m.LimitedCandidates = false
	m.MinDistance = align.DistanceInf
}
