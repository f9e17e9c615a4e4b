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

package paired

import (
	"math"
	"testing"

	"github.com/MarziehLenjani/gem3-mapper/gem3/align"
	"github.com/MarziehLenjani/gem3-mapper/gem3/matches"
)

func trace(pos, length, distance int, strand matches.Strand) *matches.MatchTrace {
	return &matches.MatchTrace{
		TextPosition: pos,
		Strand:       strand,
		Distance:     distance,
		Alignment: align.Alignment{
			Score:           distance,
			EffectiveLength: length,
			Cigar:           align.Cigar{{Op: align.OpMatch, Len: length}},
		},
	}
}

func TestTemplateLength(t *testing.T) {
	tests := []struct {
		b1, e1, b2, e2 int
		tlen           int
	}{
		{100, 200, 300, 400, 300},
		{300, 400, 100, 200, 300},
		{100, 200, 150, 250, 150},
		{100, 200, 120, 180, 100},
	}
	for i, test := range tests {
		if l := TemplateLength(test.b1, test.e1, test.b2, test.e2); l != test.tlen {
			t.Errorf("[#%d] expected %d, returned %d", i, test.tlen, l)
		}
	}
}

func TestFindPairs(t *testing.T) {
	opt := DefaultOptions
	opt.MinTemplateLength = 100
	opt.MaxTemplateLength = 500

	tests := []struct {
		pos2       int
		strand2    matches.Strand
		concordant int
		discordant int
		tlen       int
	}{
		{250, matches.Reverse, 1, 0, 250}, // inside the window
		{900, matches.Reverse, 0, 1, 900}, // too long
		{250, matches.Forward, 0, 1, 250}, // FF
	}

	pm := New()
	for i, test := range tests {
		pm.Clear()
		pm.End1().Add(trace(100, 50, 1, matches.Forward))
		pm.End2().Add(trace(test.pos2, 100, 2, test.strand2))
		pm.FindPairs(&opt)

		if len(pm.Concordant()) != test.concordant || len(pm.Discordant()) != test.discordant {
			t.Errorf("[#%d] expected %d concordant and %d discordant pairs, returned %d and %d", i,
				test.concordant, test.discordant, len(pm.Concordant()), len(pm.Discordant()))
			continue
		}
		p, ok := pm.Best()
		if !ok {
			t.Errorf("[#%d] a pair expected", i)
			continue
		}
		if p.Distance != 3 {
			t.Errorf("[#%d] distance: expected 3, returned %d", i, p.Distance)
		}
		if p.TemplateLength != test.tlen {
			t.Errorf("[#%d] template length: expected %d, returned %d", i, test.tlen, p.TemplateLength)
		}
	}

	// without discordant search
	opt.DiscordantSearch = false
	pm.Clear()
	pm.End1().Add(trace(100, 50, 1, matches.Forward))
	pm.End2().Add(trace(900, 100, 2, matches.Reverse))
	pm.FindPairs(&opt)
	if pm.IsMapped() {
		t.Errorf("no pairs expected")
	}

	// different sequences are never paired
	opt.DiscordantSearch = true
	pm.Clear()
	pm.End1().Add(trace(100, 50, 1, matches.Forward))
	t2 := trace(200, 100, 2, matches.Reverse)
	t2.SeqIdx = 1
	pm.End2().Add(t2)
	pm.FindPairs(&opt)
	if pm.IsMapped() {
		t.Errorf("no pairs expected across sequences")
	}
}

func TestOrientation(t *testing.T) {
	tests := []struct {
		pos1, pos2       int
		strand1, strand2 matches.Strand
		o                Orientation
	}{
		{100, 300, matches.Forward, matches.Reverse, FR},
		{300, 100, matches.Reverse, matches.Forward, FR},
		{300, 100, matches.Forward, matches.Reverse, RF},
		{100, 300, matches.Forward, matches.Forward, FF},
		{100, 300, matches.Reverse, matches.Reverse, RR},
	}
	for i, test := range tests {
		o := orientationOf(trace(test.pos1, 50, 0, test.strand1), trace(test.pos2, 50, 0, test.strand2))
		if o != test.o {
			t.Errorf("[#%d] expected %s, returned %s", i, test.o, o)
		}
	}

	list, err := ParseOrientations("fr, RF")
	if err != nil || len(list) != 2 || list[0] != FR || list[1] != RF {
		t.Errorf("unexpected parsed orientations: %v, %v", list, err)
	}
	if _, err = ParseOrientations("FX"); err == nil {
		t.Errorf("error expected")
	}
}

func TestSortAndStratum(t *testing.T) {
	pm := New()
	pm.End1().Add(trace(100, 50, 0, matches.Forward))
	pm.End1().Add(trace(5000, 50, 2, matches.Forward))
	pm.End2().Add(trace(300, 50, 1, matches.Reverse))
	pm.End2().Add(trace(5200, 50, 0, matches.Reverse))
	pm.End1().MaxCompleteStratum = 3
	pm.End2().MaxCompleteStratum = 2

	pm.FindPairs(nil)

	if pm.MaxCompleteStratum != 2 {
		t.Errorf("max complete stratum: expected 2, returned %d", pm.MaxCompleteStratum)
	}
	c := pm.Concordant()
	if len(c) != 2 {
		t.Errorf("expected 2 concordant pairs, returned %d", len(c))
		return
	}
	if c[0].Distance != 1 || c[1].Distance != 2 {
		t.Errorf("pairs not sorted by distance: %d, %d", c[0].Distance, c[1].Distance)
	}
	if c[0].MapQ <= c[1].MapQ {
		t.Errorf("the best pair should have a higher mapq: %d, %d", c[0].MapQ, c[1].MapQ)
	}
	// the two far apart combinations are discordant
	if len(pm.Discordant()) != 2 {
		t.Errorf("expected 2 discordant pairs, returned %d", len(pm.Discordant()))
	}

	// no unique concordant pair, nothing sampled
	if pm.TemplateSizes().N() != 0 {
		t.Errorf("no template size expected, returned %d", pm.TemplateSizes().N())
	}

	pm.SortByMapQ()
	if pm.Concordant()[0].Distance != 1 {
		t.Errorf("unexpected order by mapq")
	}
}

func TestTemplateSizes(t *testing.T) {
	pm := New()
	for i := 0; i < 10; i++ {
		pm.Clear()
		pm.End1().Add(trace(100, 50, 0, matches.Forward))
		pm.End2().Add(trace(300+i, 50, 0, matches.Reverse))
		pm.FindPairs(nil)
	}
	s := pm.TemplateSizes()
	if s.N() != 10 {
		t.Errorf("expected 10 template sizes, returned %d", s.N())
		return
	}
	mean, sd := s.MeanStdDev()
	if math.Abs(mean-254.5) > 1e-9 || sd <= 0 {
		t.Errorf("unexpected mean and sd: %f, %f", mean, sd)
	}
	if q := s.Quantile(0.5); q < 250 || q > 259 {
		t.Errorf("unexpected median: %f", q)
	}

	r := NewTemplateSizes(5)
	for i := 0; i < 100; i++ {
		r.Add(i)
	}
	if r.N() != 100 || len(r.Values()) != 5 {
		t.Errorf("reservoir should keep 5 values of 100, returned %d of %d", len(r.Values()), r.N())
	}
}
