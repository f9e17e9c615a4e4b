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
	"testing"
)

func TestCigarApply(t *testing.T) {
	alg := NewAligner(nil)

	key := []byte("ACGTTACGT")
	text := []byte("ACGACGTT")

	aln, ok := alg.Align(key, text, 4)
	if !ok {
		t.Errorf("alignment expected")
		return
	}

	a, b, err := aln.Cigar.Apply(key, text)
	if err != nil {
		t.Error(err)
		return
	}
	if len(a) != len(b) {
		t.Errorf("aligned strings differ in length: %s %s", a, b)
		return
	}

	var d int
	for i := range a {
		if a[i] != b[i] {
			d++
		}
	}
	if d != aln.Score {
		t.Errorf("reconstructed alignment has %d differences, score %d:\n%s\n%s", d, aln.Score, a, b)
	}
}

func TestCigarSAM(t *testing.T) {
	c := Cigar{
		{OpMatch, 3},
		{OpMismatch, 1},
		{OpMatch, 2},
		{OpInsertion, 2},
		{OpMatch, 4},
		{OpDeletion, 1},
		{OpMatch, 1},
	}
	if c.String() != "3M1X2M2I4M1D1M" {
		t.Errorf("unexpected text form: %s", c)
	}
	// text-only bases are SAM deletions, query-only ones SAM insertions
	if s := c.SAM().String(); s != "6M2D4M1I1M" {
		t.Errorf("unexpected SAM cigar: %s", s)
	}

	m, i, d := c.Counts()
	if m != 11 || i != 2 || d != 1 {
		t.Errorf("unexpected counts: %d, %d, %d", m, i, d)
	}
	if c.QueryLen() != 12 || c.TextLen() != 13 {
		t.Errorf("unexpected lengths: %d, %d", c.QueryLen(), c.TextLen())
	}
}

func TestCigarOutOfRange(t *testing.T) {
	c := Cigar{{OpMatch, 10}}
	if _, err := c.Mismatches([]byte("ACGT"), []byte("ACGT")); err == nil {
		t.Errorf("error expected")
	}
	if _, _, err := c.Apply([]byte("ACGT"), []byte("ACGT")); err == nil {
		t.Errorf("error expected")
	}
}

func TestNW(t *testing.T) {
	nw := NewNWAligner(&NWOptions{SaveAlignments: true, SaveMatrix: true})

	r := nw.Global([]byte("ACGTTACGT"), []byte("ACGTACGT"))
	defer RecycleNWResult(r)

	if r.Distance != 1 {
		t.Errorf("distance: expected 1, returned %d", r.Distance)
	}
	if r.Gaps != 1 {
		t.Errorf("gaps: expected 1, returned %d", r.Gaps)
	}
	if string(r.AlignA) != "ACGTTACGT" || len(r.AlignB) != 9 {
		t.Errorf("unexpected alignment:\n%s\n%s\n%s", r.AlignA, r.AlignM, r.AlignB)
	}
	if r.Cigar.QueryLen() != 9 || r.Cigar.TextLen() != 8 {
		t.Errorf("unexpected cigar: %s", r.Cigar)
	}
	if len(r.Matrix) == 0 {
		t.Errorf("matrix expected")
	}
}
