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
	"fmt"
	"strconv"
	"strings"

	"github.com/biogo/hts/sam"
)

// Op is the type of a CIGAR operation.
//
// Insertions and deletions are named relative to the query (key):
// an insertion is a text base without a query counterpart,
// a deletion is a query base without a text counterpart.
type Op uint8

const (
	OpNone      Op = iota // unpopulated slot
	OpMatch               // match, or a mismatch absorbed in a match run
	OpMismatch            // explicit mismatch
	OpInsertion           // consumes text only
	OpDeletion            // consumes query only
)

func (op Op) String() string {
	switch op {
	case OpMatch:
		return "M"
	case OpMismatch:
		return "X"
	case OpInsertion:
		return "I"
	case OpDeletion:
		return "D"
	}
	return "?"
}

// CigarElement is one run of a CIGAR script.
type CigarElement struct {
	Op  Op
	Len int
}

// Cigar is an ordered list of CIGAR elements.
type Cigar []CigarElement

// String returns the text form, e.g., 10M1I5M.
func (c Cigar) String() string {
	var b strings.Builder
	for _, e := range c {
		b.WriteString(strconv.Itoa(e.Len))
		b.WriteString(e.Op.String())
	}
	return b.String()
}

// add appends a run, merging it with the last one if they share the operation.
func (c *Cigar) add(op Op, n int) {
	if n <= 0 {
		return
	}
	last := len(*c) - 1
	if last >= 0 && (*c)[last].Op == op {
		(*c)[last].Len += n
		return
	}
	*c = append(*c, CigarElement{Op: op, Len: n})
}

// Append appends a run of n operations, merged with the last run if possible.
func (c *Cigar) Append(op Op, n int) { c.add(op, n) }

// reverse reverses the elements in place.
func (c Cigar) reverse() {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}

// Clone returns a copy.
func (c Cigar) Clone() Cigar {
	if c == nil {
		return nil
	}
	c2 := make(Cigar, len(c))
	copy(c2, c)
	return c2
}

// Counts returns the number of bases of match runs (including mismatches),
// insertions, and deletions.
func (c Cigar) Counts() (matches, insertions, deletions int) {
	for _, e := range c {
		switch e.Op {
		case OpMatch, OpMismatch:
			matches += e.Len
		case OpInsertion:
			insertions += e.Len
		case OpDeletion:
			deletions += e.Len
		}
	}
	return
}

// QueryLen returns the number of query bases covered by the script.
func (c Cigar) QueryLen() int {
	m, _, d := c.Counts()
	return m + d
}

// TextLen returns the number of text bases covered by the script.
func (c Cigar) TextLen() int {
	m, i, _ := c.Counts()
	return m + i
}

// Mismatches counts mismatched bases inside match runs.
func (c Cigar) Mismatches(key, text []byte) (int, error) {
	var q, t, n int
	for _, e := range c {
		switch e.Op {
		case OpMatch, OpMismatch:
			if q+e.Len > len(key) || t+e.Len > len(text) {
				return 0, fmt.Errorf("align: cigar %s out of range of sequences (%d, %d)", c, len(key), len(text))
			}
			for i := 0; i < e.Len; i++ {
				if key[q+i] != text[t+i] {
					n++
				}
			}
			q += e.Len
			t += e.Len
		case OpInsertion:
			t += e.Len
		case OpDeletion:
			q += e.Len
		}
	}
	return n, nil
}

// Distance returns the edit distance described by the script:
// mismatches in match runs plus inserted and deleted bases.
func (c Cigar) Distance(key, text []byte) (int, error) {
	x, err := c.Mismatches(key, text)
	if err != nil {
		return 0, err
	}
	_, i, d := c.Counts()
	return x + i + d, nil
}

// Apply reconstructs the aligned strings of key and text, gaps are '-'.
func (c Cigar) Apply(key, text []byte) ([]byte, []byte, error) {
	n := 0
	for _, e := range c {
		n += e.Len
	}
	a := make([]byte, 0, n)
	b := make([]byte, 0, n)
	var q, t int
	for _, e := range c {
		switch e.Op {
		case OpMatch, OpMismatch:
			if q+e.Len > len(key) || t+e.Len > len(text) {
				return nil, nil, fmt.Errorf("align: cigar %s out of range of sequences (%d, %d)", c, len(key), len(text))
			}
			a = append(a, key[q:q+e.Len]...)
			b = append(b, text[t:t+e.Len]...)
			q += e.Len
			t += e.Len
		case OpInsertion:
			if t+e.Len > len(text) {
				return nil, nil, fmt.Errorf("align: cigar %s out of range of text (%d)", c, len(text))
			}
			for i := 0; i < e.Len; i++ {
				a = append(a, '-')
			}
			b = append(b, text[t:t+e.Len]...)
			t += e.Len
		case OpDeletion:
			if q+e.Len > len(key) {
				return nil, nil, fmt.Errorf("align: cigar %s out of range of query (%d)", c, len(key))
			}
			a = append(a, key[q:q+e.Len]...)
			for i := 0; i < e.Len; i++ {
				b = append(b, '-')
			}
			q += e.Len
		}
	}
	return a, b, nil
}

// SAM converts the script to SAM CIGAR operations,
// where I consumes the query and D consumes the reference.
func (c Cigar) SAM() sam.Cigar {
	s := make(sam.Cigar, 0, len(c))
	var t sam.CigarOpType
	var last = -1
	for _, e := range c {
		switch e.Op {
		case OpMatch, OpMismatch:
			t = sam.CigarMatch
		case OpInsertion:
			t = sam.CigarDeletion
		case OpDeletion:
			t = sam.CigarInsertion
		default:
			continue
		}
		if last >= 0 && s[last].Type() == t {
			s[last] = sam.NewCigarOp(t, s[last].Len()+e.Len)
			continue
		}
		s = append(s, sam.NewCigarOp(t, e.Len))
		last++
	}
	return s
}
