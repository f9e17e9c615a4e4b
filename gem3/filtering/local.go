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

package filtering

import (
	"github.com/MarziehLenjani/gem3-mapper/gem3/align"
	"github.com/MarziehLenjani/gem3-mapper/gem3/matches"
	"github.com/shenwei356/wfa"
)

// trimOps keeps the operations between the first and the last match run.
func trimOps(ops []*wfa.CIGARRecord) []*wfa.CIGARRecord {
	start, end := -1, -1
	for i, op := range ops {
		if op.Op == 'M' {
			start = i
			break
		}
	}
	if start < 0 {
		return ops[:0]
	}
	for i := len(ops) - 1; i >= start; i-- {
		if ops[i].Op == 'M' {
			end = i
			break
		}
	}
	return ops[start : end+1]
}

// alignLocal aligns the key to the text buffer with gap-affine penalties
// in local mode. The trace is returned only when the aligned part of the
// key is long enough.
func (c *Candidates) alignLocal(r *Region, key []byte) *matches.MatchTrace {
	if len(key) == 0 || len(c.text) == 0 {
		return nil
	}
	if c.local == nil {
		c.local = wfa.New(c.opt.Penalties, &wfa.Options{GlobalAlignment: false})
	}

	c.stats.LocalAlignments++
	res, err := c.local.Align(key, c.text)
	if err != nil {
		return nil
	}
	defer wfa.RecycleAlignmentResult(res)

	ops := trimOps(res.Ops)
	if len(ops) == 0 {
		return nil
	}

	cigar := make(align.Cigar, 0, len(ops))
	var n, distance int
	for _, op := range ops {
		n = int(op.N)
		switch op.Op {
		case 'M':
			cigar.Append(align.OpMatch, n)
		case 'X':
			cigar.Append(align.OpMismatch, n)
			distance += n
		case 'I': // query bases only
			cigar.Append(align.OpDeletion, n)
			distance += n
		case 'D': // text bases only
			cigar.Append(align.OpInsertion, n)
			distance += n
		case 'H':
		}
	}

	if float64(cigar.QueryLen()) < c.opt.MinLocalCoverage*float64(len(key)) {
		return nil
	}

	return &matches.MatchTrace{
		SeqIdx:       r.SeqIdx,
		TextPosition: r.TextBegin + int(res.TBegin) - 1,
		Strand:       r.Strand,
		Distance:     distance,
		SWGScore:     int(res.Score),
		Kind:         matches.Local,
		Alignment: align.Alignment{
			Score:           distance,
			EffectiveLength: cigar.TextLen(),
			Cigar:           cigar,
		},
	}
}
