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

package align

import (
	"bytes"
	"fmt"
	"sync"
)

// Pointer is for saving where the minimum cost of current position comes from.
type Pointer uint8

const (
	None Pointer = iota // No data, the topleft corner.
	Top                 // a query base against a gap
	Left                // a text base against a gap
	Mismatch
	Match
)

func (p Pointer) String() string {
	switch p {
	case Match:
		return "↘︎"
	case Mismatch:
		return "⇘"
	case Top:
		return "↓"
	case Left:
		return "→"
	case None:
		return "×"
	}
	return "■"
}

// NWOptions contains the options of NWAligner.
type NWOptions struct {
	// save alignment strings
	// AT-GTTAT
	// || | ||
	// ATCG-TAC
	SaveAlignments bool
	// save matrix in the bytes buffer
	SaveMatrix bool
}

// DefaultNWOptions is the default NWOptions.
var DefaultNWOptions = NWOptions{
	SaveAlignments: false,
	SaveMatrix:     false,
}

// NWAligner implements the Needleman-Wunsch algorithm with unit costs,
// i.e., it computes the Levenshtein distance with a full matrix.
// It is slow but simple, and serves as a reference for Aligner.
type NWAligner struct {
	Options *NWOptions

	// reusable variables
	costs    []int        // cost matrix
	pointers []Pointer    // pointer matrix
	buf      bytes.Buffer // only for print the matrix
}

// NWResult holds the details of the alignment.
type NWResult struct {
	Distance int   // edit distance
	Len      int   // length of alignment
	Matches  int   // number of matches
	Gaps     int   // number of gaps
	Cigar    Cigar // mismatches are absorbed into match runs

	AlignA []byte // Alignment string for seq A
	AlignM []byte // Matching symbols, "|" for match, " " for mismatch
	AlignB []byte // Alignment string for seq B

	Matrix []byte // Matrix text, note that it's not thread-safe, only for debugging.
}

// Reset resets all the values.
func (r *NWResult) Reset() {
	r.Distance = 0
	r.Len = 0
	r.Matches = 0
	r.Gaps = 0
	r.Cigar = r.Cigar[:0]

	if r.AlignA != nil {
		r.AlignA = r.AlignA[:0]
	}
	if r.AlignM != nil {
		r.AlignM = r.AlignM[:0]
	}
	if r.AlignB != nil {
		r.AlignB = r.AlignB[:0]
	}
	r.Matrix = nil
}

var poolNWResult = &sync.Pool{New: func() interface{} {
	r := &NWResult{}
	r.Cigar = make(Cigar, 0, 16)
	// they are inilialized the might not be used when SaveAlignments is false.
	r.AlignA = make([]byte, 0, 1024)
	r.AlignB = make([]byte, 0, 1024)
	r.AlignM = make([]byte, 0, 1024)
	return r
}}

// NewNWAligner returns an aligner.
func NewNWAligner(options *NWOptions) *NWAligner {
	if options == nil {
		options = &DefaultNWOptions
	}
	return &NWAligner{
		Options:  options,
		costs:    make([]int, 1<<16),
		pointers: make([]Pointer, 1<<16),
	}
}

// RecycleNWResult recycles an alignment result.
func RecycleNWResult(r *NWResult) {
	poolNWResult.Put(r)
}

// Global aligns a query a and a text b with global alignment.
// Please remember to recycle the result after using
// by calling RecycleNWResult.
func (alg *NWAligner) Global(a, b []byte) *NWResult {
	h := len(a) + 1 // height of the matrix
	w := len(b) + 1 // width of the matrix

	// ---------------------------------------------------
	// initialize

	var i, j, k int

	n := h * w
	if n > len(alg.costs) {
		alg.costs = make([]int, n)
		alg.pointers = make([]Pointer, n)
	}
	costs := alg.costs[:n]
	pointers := alg.pointers[:n]

	// topleft most cell
	costs[0] = 0
	pointers[0] = None
	// the first column
	for i = 1; i < h; i++ {
		k = idx(i, 0, w)
		costs[k] = i
		pointers[k] = Top
	}
	// the first row
	for j = 1; j < w; j++ {
		k = idx(0, j, w)
		costs[k] = j
		pointers[k] = Left
	}

	// ---------------------------------------------------
	// compute

	var min, cTop, cLeft int
	var p Pointer
	for i = 1; i < h; i++ {
		for j = 1; j < w; j++ {
			k = idx(i, j, w)

			min = costs[idx(i-1, j-1, w)]
			p = Match
			if a[i-1] != b[j-1] {
				min++
				p = Mismatch
			}

			cTop = costs[idx(i-1, j, w)] + 1
			cLeft = costs[idx(i, j-1, w)] + 1

			if cTop < min {
				min = cTop
				p = Top
			}
			if cLeft < min {
				min = cLeft
				p = Left
			}

			pointers[k] = p
			costs[k] = min
		}
	}

	// ---------------------------------------------------
	// traceback

	r := poolNWResult.Get().(*NWResult)
	r.Reset()

	if alg.Options.SaveMatrix {
		r.Matrix = alg.printMatrix(a, b, costs, pointers)
	}

	i = h - 1
	j = w - 1
	r.Distance = costs[idx(i, j, w)]

	save := alg.Options.SaveAlignments
	for p = pointers[idx(i, j, w)]; p != None; p = pointers[idx(i, j, w)] {
		r.Len++

		switch p {
		case Mismatch:
			r.Cigar.add(OpMatch, 1)
			if save {
				r.AlignA = append(r.AlignA, a[i-1])
				r.AlignB = append(r.AlignB, b[j-1])
				r.AlignM = append(r.AlignM, ' ')
			}
			i--
			j--
		case Match:
			r.Cigar.add(OpMatch, 1)
			if save {
				r.AlignA = append(r.AlignA, a[i-1])
				r.AlignB = append(r.AlignB, b[j-1])
				r.AlignM = append(r.AlignM, '|')
			}
			r.Matches++
			i--
			j--
		case Top:
			r.Cigar.add(OpDeletion, 1)
			if save {
				r.AlignA = append(r.AlignA, a[i-1])
				r.AlignB = append(r.AlignB, '-')
				r.AlignM = append(r.AlignM, ' ')
			}
			r.Gaps++
			i--
		case Left:
			r.Cigar.add(OpInsertion, 1)
			if save {
				r.AlignA = append(r.AlignA, '-')
				r.AlignB = append(r.AlignB, b[j-1])
				r.AlignM = append(r.AlignM, ' ')
			}
			r.Gaps++
			j--
		}
	}

	r.Cigar.reverse()
	if save {
		reverse(r.AlignA)
		reverse(r.AlignB)
		reverse(r.AlignM)
	}

	return r
}

func (alg *NWAligner) printMatrix(a, b []byte, costs []int, pointers []Pointer) []byte {
	h := len(a) + 1
	w := len(b) + 1
	var i, j, k int
	buf := &alg.buf

	buf.Reset()

	// b
	buf.WriteString(fmt.Sprintf("%c  %s%-3s", ' ', " ", " "))
	for j = 0; j < len(b); j++ {
		buf.WriteString(fmt.Sprintf("  %s%3c", " ", b[j]))
	}
	buf.WriteByte('\n')

	for i = 0; i < h; i++ {
		if i == 0 {
			buf.WriteString(fmt.Sprintf("%c", ' '))
		} else {
			buf.WriteString(fmt.Sprintf("%c", a[i-1]))
		}

		for j = 0; j < w; j++ {
			k = idx(i, j, w)
			buf.WriteString(fmt.Sprintf("  %s%3d", pointers[k], costs[k]))
		}
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}

func idx(i, j, w int) int {
	return (i * w) + j
}

func reverse(s []byte) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
