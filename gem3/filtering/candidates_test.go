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
	"fmt"
	"testing"

	"github.com/MarziehLenjani/gem3-mapper/gem3/matches"
)

// texts is a single in-memory text.
type texts []byte

func (s texts) Text(dst []byte, position, length int) ([]byte, error) {
	if position < 0 || length < 0 || position+length > len(s) {
		return dst, fmt.Errorf("text unavailable: %d+%d", position, length)
	}
	return append(dst, s[position:position+length]...), nil
}

var key = []byte("ACGTACGTAC")

func TestCacheReuse(t *testing.T) {
	text := texts("TTTT" + string(key) + "GGGG")
	c := NewCandidates(nil, text)
	defer c.Close()
	p := NewPattern(key, 3)
	ms := matches.New()

	c.AddRegion(0, matches.Forward, 4, 14, len(key), 0, 2)
	c.AddRegion(0, matches.Forward, 4, 14, len(key), 0, 2)

	n := c.AlignCandidates(p, false, false, ms)
	if n != 1 {
		t.Errorf("accepted matches: expected 1, returned %d", n)
	}
	if ms.Len() != 1 {
		t.Errorf("collection size: expected 1, returned %d", ms.Len())
	}
	s := c.Stats()
	if s.Alignments != 1 || s.CacheHits != 1 {
		t.Errorf("expected 1 alignment and 1 cache hit, returned %d and %d", s.Alignments, s.CacheHits)
	}
	if len(c.Accepted()) != 2 {
		t.Errorf("accepted regions: expected 2, returned %d", len(c.Accepted()))
	}
	if ms.Metrics.CandidatesExamined != 2 || ms.Metrics.CandidatesAccepted != 1 {
		t.Errorf("unexpected metrics: %+v", ms.Metrics)
	}

	m := ms.Traces()[0]
	if m.TextPosition != 4 || m.Distance != 0 || m.End() != 14 || m.Kind != matches.Global {
		t.Errorf("unexpected trace: %s", m)
	}
}

func TestDistinctLoci(t *testing.T) {
	// two copies, the second one with a substitution
	text := texts(string(key) + "TTTTT" + "ACGTTCGTAC")
	c := NewCandidates(nil, text)
	defer c.Close()
	p := NewPattern(key, 2)
	ms := matches.New()

	c.AddRegion(0, matches.Forward, 15, 25, len(key), 0, -1)
	c.AddRegion(0, matches.Forward, 0, 10, len(key), 0, -1)

	n := c.AlignCandidates(p, false, false, ms)
	if n != 2 || ms.Len() != 2 {
		t.Errorf("expected 2 matches, returned %d (%d)", n, ms.Len())
	}
	if n > ms.Metrics.CandidatesExamined {
		t.Errorf("more matches than candidates: %d > %d", n, ms.Metrics.CandidatesExamined)
	}
	ms.SortByDistance()
	if ms.Traces()[0].TextPosition != 0 || ms.Traces()[1].Distance != 1 {
		t.Errorf("unexpected traces: %s, %s", ms.Traces()[0], ms.Traces()[1])
	}
	if c.Len() != 0 {
		t.Errorf("pending regions left: %d", c.Len())
	}
}

func TestSubdominant(t *testing.T) {
	text := texts(string(key) + "TTTTT" + "ACGTTCGTAC")
	opt := DefaultOptions
	opt.MaxReportedMatches = 1
	c := NewCandidates(&opt, text)
	defer c.Close()
	p := NewPattern(key, 3)
	ms := matches.New()

	// added first, but verified last
	c.AddRegion(0, matches.Forward, 15, 25, len(key), 1, 3)
	c.AddRegion(0, matches.Forward, 0, 10, len(key), 0, 0)

	n := c.AlignCandidates(p, false, false, ms)
	if n != 1 {
		t.Errorf("accepted matches: expected 1, returned %d", n)
	}
	if !ms.Metrics.LimitedCandidates {
		t.Errorf("limited candidates expected")
	}
	if c.Stats().Alignments != 1 {
		t.Errorf("alignments: expected 1, returned %d", c.Stats().Alignments)
	}
	if len(c.Discarded()) != 1 || c.Discarded()[0].Status != AcceptedSubdominant {
		t.Errorf("one subdominant region expected")
	}

	// extended passes are never pruned
	c.AddRegion(0, matches.Forward, 15, 25, len(key), 1, 3)
	n = c.AlignCandidates(p, true, false, ms)
	if n != 1 || len(c.ExtendedMatches()) != 1 {
		t.Errorf("expected 1 extended match, returned %d (%d)", n, len(c.ExtendedMatches()))
	}
	if c.ExtendedMatches()[0].Kind != matches.Extended {
		t.Errorf("unexpected kind: %s", c.ExtendedMatches()[0].Kind)
	}
}

func TestExtendedSkipsCache(t *testing.T) {
	text := texts(string(key))
	c := NewCandidates(nil, text)
	defer c.Close()
	p := NewPattern(key, 1)
	ms := matches.New()

	c.AddRegion(0, matches.Forward, 0, 10, len(key), 0, -1)
	c.AddRegion(0, matches.Forward, 0, 10, len(key), 0, -1)

	n := c.AlignCandidates(p, true, false, ms)
	if n != 1 {
		t.Errorf("accepted matches: expected 1, returned %d", n)
	}
	if s := c.Stats(); s.Alignments != 2 || s.CacheHits != 0 {
		t.Errorf("expected 2 alignments and no cache hits, returned %d and %d", s.Alignments, s.CacheHits)
	}
	if len(c.ExtendedMatches()) != 1 {
		t.Errorf("extended matches: expected 1, returned %d", len(c.ExtendedMatches()))
	}
}

func TestReverseStrand(t *testing.T) {
	// reverse complement of the key
	text := texts("GTACGTACGT")
	c := NewCandidates(nil, text)
	defer c.Close()
	p := NewPattern(key, 0)
	ms := matches.New()

	c.AddRegion(0, matches.Reverse, 0, 10, len(key), 0, -1)
	if n := c.AlignCandidates(p, false, false, ms); n != 1 {
		t.Errorf("accepted matches: expected 1, returned %d", n)
		return
	}
	if ms.Traces()[0].Strand != matches.Reverse {
		t.Errorf("reverse strand expected")
	}
}

func TestUnavailableText(t *testing.T) {
	text := texts(string(key))
	c := NewCandidates(nil, text)
	defer c.Close()
	p := NewPattern(key, 2)
	ms := matches.New()

	c.AddRegion(0, matches.Forward, 5, 15, len(key), 0, -1)
	c.AddRegion(0, matches.Forward, 0, 10, len(key), 0, -1)
	p.MaxDistance = 0
	copy(text[:2], "TT") // two mismatches

	n := c.AlignCandidates(p, false, false, ms)
	if n != 0 || ms.Len() != 0 {
		t.Errorf("no matches expected, returned %d", n)
	}
	if c.Stats().TextUnavailable != 1 {
		t.Errorf("unavailable texts: expected 1, returned %d", c.Stats().TextUnavailable)
	}
	if len(c.Accepted()) != 0 || len(c.Discarded()) != 0 {
		t.Errorf("failed regions should be recycled")
	}
	if ms.Metrics.CandidatesExamined != 2 {
		t.Errorf("examined candidates: expected 2, returned %d", ms.Metrics.CandidatesExamined)
	}
}

func TestLocalPending(t *testing.T) {
	k := []byte("ACGTTGCAGGTCCATGAAAAA")
	text := texts("ACGTTGCAGGTCCATGCCCCC")
	opt := DefaultOptions
	opt.LocalFallback = true
	opt.MinLocalCoverage = 0.5

	c := NewCandidates(&opt, text)
	defer c.Close()
	p := NewPattern(k, 1)
	ms := matches.New()

	c.AddRegion(0, matches.Forward, 0, len(text), len(k), 0, -1)
	n := c.AlignCandidates(p, false, false, ms)
	if n != 0 || ms.Len() != 0 {
		t.Errorf("local matches should not be committed: %d", n)
	}
	if len(ms.LocalPending()) != 1 || ms.LocalPending()[0].Kind != matches.Local {
		t.Errorf("one pending local match expected, returned %d", len(ms.LocalPending()))
	}
	if len(c.Accepted()) != 1 {
		t.Errorf("the region should be accepted")
	}
	if c.Stats().LocalAlignments != 1 {
		t.Errorf("local alignments: expected 1, returned %d", c.Stats().LocalAlignments)
	}

	// local matches requested
	c.Clear()
	ms.Clear()
	c.AddRegion(0, matches.Forward, 0, len(text), len(k), 0, -1)
	if n = c.AlignCandidates(p, false, true, ms); n != 1 {
		t.Errorf("local match expected, returned %d", n)
	}
}

func TestLocalNotCached(t *testing.T) {
	k := []byte("ACGTTGCAGGTCCATGAAAAA")
	text := texts("ACGTTGCAGGTCCATGCCCCC")
	opt := DefaultOptions
	opt.LocalFallback = true
	opt.MinLocalCoverage = 0.5

	c := NewCandidates(&opt, text)
	defer c.Close()
	p := NewPattern(k, 1)
	ms := matches.New()

	c.AddRegion(0, matches.Forward, 0, len(text), len(k), 0, -1)
	c.AddRegion(0, matches.Forward, 0, len(text), len(k), 0, -1)
	c.AlignCandidates(p, false, false, ms)

	if n := len(ms.LocalPending()); n != 1 {
		t.Errorf("pending local matches: expected 1, returned %d", n)
	}
	if c.Cache().Len() != 0 {
		t.Errorf("pending local matches should not be cached, %d entries", c.Cache().Len())
	}
	if s := c.Stats(); s.CacheHits != 0 || s.LocalAlignments != 2 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if len(c.Accepted()) != 2 {
		t.Errorf("both regions should be accepted")
	}

	// committed local matches are cached
	c.Clear()
	ms.Clear()
	c.AddRegion(0, matches.Forward, 0, len(text), len(k), 0, -1)
	c.AddRegion(0, matches.Forward, 0, len(text), len(k), 0, -1)
	if n := c.AlignCandidates(p, false, true, ms); n != 1 {
		t.Errorf("one local match expected, returned %d", n)
	}
	if c.Stats().CacheHits != 1 || c.Stats().LocalAlignments != 1 {
		t.Errorf("unexpected stats: %+v", c.Stats())
	}
}

func TestNilRegion(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("panic expected for a nil region")
		}
	}()
	c := NewCandidates(nil, texts(key))
	c.Add(nil)
}

func TestCheckOptions(t *testing.T) {
	opt := DefaultOptions
	if err := CheckOptions(&opt); err != nil {
		t.Error(err)
	}
	opt.CacheSize = 0
	if err := CheckOptions(&opt); err == nil {
		t.Errorf("error expected for cache size 0")
	}
}
