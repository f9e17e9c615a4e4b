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
	"math"

	"github.com/MarziehLenjani/gem3-mapper/gem3/align"
	"github.com/MarziehLenjani/gem3-mapper/gem3/arena"
	"github.com/MarziehLenjani/gem3-mapper/gem3/matches"
	"github.com/shenwei356/wfa"
	"github.com/twotwotwo/sorts"
)

// TextRetriever fetches windows of the reference text.
type TextRetriever interface {
	// Text appends the text [position, position+length) to dst.
	// An error means the text is unavailable.
	Text(dst []byte, position, length int) ([]byte, error)
}

// Stats records the work performed by a Candidates.
type Stats struct {
	Alignments      int // calls of the alignment engine
	LocalAlignments int // calls of the local aligner
	CacheHits       int
	TextUnavailable int
}

// Candidates holds the candidate regions of one query and the state
// reused across them. Each worker owns one; it is not safe for
// concurrent use.
type Candidates struct {
	opt   *Options
	texts TextRetriever

	stack   *arena.Stack
	aligner *align.Aligner
	local   *wfa.Aligner // created on demand
	cache   *Cache

	regions   []*Region
	accepted  []*Region
	discarded []*Region
	extended  []*matches.MatchTrace

	text  []byte
	stats Stats
}

// NewCandidates creates a Candidates reading texts from the retriever.
func NewCandidates(opt *Options, texts TextRetriever) *Candidates {
	if opt == nil {
		opt = &DefaultOptions
	}
	stack := arena.GetStack()
	return &Candidates{
		opt:       opt,
		texts:     texts,
		stack:     stack,
		aligner:   align.NewAligner(stack),
		cache:     NewCache(opt.CacheSize),
		regions:   make([]*Region, 0, 64),
		accepted:  make([]*Region, 0, 64),
		discarded: make([]*Region, 0, 64),
		extended:  make([]*matches.MatchTrace, 0, 8),
		text:      make([]byte, 0, 1024),
	}
}

// Close releases the resources. The Candidates can not be used afterwards.
func (c *Candidates) Close() {
	c.Clear()
	if c.local != nil {
		wfa.RecycleAligner(c.local)
		c.local = nil
	}
	arena.RecycleStack(c.stack)
	c.stack = nil
}

// Add adds a candidate region, which is owned by c afterwards.
func (c *Candidates) Add(r *Region) {
	if r == nil {
		panic("filtering: nil candidate region")
	}
	r.Status = Pending
	c.regions = append(c.regions, r)
}

// AddRegion creates and adds a candidate region covering the whole key.
func (c *Candidates) AddRegion(seqIdx int, strand matches.Strand, textBegin, textEnd, keyLen, minBound, bound int) *Region {
	r := NewRegion()
	r.SeqIdx = seqIdx
	r.Strand = strand
	r.TextBegin, r.TextEnd = textBegin, textEnd
	r.KeyBegin, r.KeyEnd = 0, keyLen
	r.DistanceMinBound = minBound
	r.DistanceBound = bound
	c.Add(r)
	return r
}

// Len returns the number of pending regions.
func (c *Candidates) Len() int { return len(c.regions) }

// Accepted returns the regions that produced traces in the last passes.
func (c *Candidates) Accepted() []*Region { return c.accepted }

// Discarded returns the subdominant regions kept aside in the last passes.
func (c *Candidates) Discarded() []*Region { return c.discarded }

// ExtendedMatches returns the traces accepted by extended passes.
func (c *Candidates) ExtendedMatches() []*matches.MatchTrace { return c.extended }

// Stats returns the statistics since the last Clear.
func (c *Candidates) Stats() Stats { return c.stats }

// Cache returns the cache of the current query.
func (c *Candidates) Cache() *Cache { return c.cache }

// Clear recycles all regions and resets the state for another query.
func (c *Candidates) Clear() {
	for _, rs := range [][]*Region{c.regions, c.accepted, c.discarded} {
		for _, r := range rs {
			RecycleRegion(r)
		}
		clear(rs)
	}
	c.regions = c.regions[:0]
	c.accepted = c.accepted[:0]
	c.discarded = c.discarded[:0]
	clear(c.extended)
	c.extended = c.extended[:0]
	c.cache.Clear()
	c.stats = Stats{}
}

// boundOf returns the distance bound of a region, unbounded ones last.
func boundOf(r *Region) int {
	if r.DistanceBound < 0 {
		return math.MaxInt
	}
	return r.DistanceBound
}

type regionsByBound []*Region

func (s regionsByBound) Len() int { return len(s) }
func (s regionsByBound) Less(i, j int) bool {
	a, b := s[i], s[j]
	if da, db := boundOf(a), boundOf(b); da != db {
		return da < db
	}
	if a.TextBegin != b.TextBegin {
		return a.TextBegin < b.TextBegin
	}
	if a.Strand != b.Strand {
		return a.Strand < b.Strand
	}
	return a.TextEnd < b.TextEnd
}
func (s regionsByBound) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// sortRegions sorts regions by the distance bound, then by locus.
func (c *Candidates) sortRegions() {
	sorts.Quicksort(regionsByBound(c.regions))
}

// AlignCandidates verifies all pending regions against the pattern and
// commits the traces to ms. It returns the number of newly accepted traces.
//
// Regions are visited by ascending distance bound. When ms is full, a
// region whose smallest possible distance is not below the worst accepted
// one is marked subdominant without being aligned. Regions sharing a locus
// are aligned once. Local traces are set aside in ms unless local
// alignments are requested. When extended is true, no region is pruned or
// served from the cache, and the traces are of the Extended kind.
//
// Accepted regions are kept (see Accepted), subdominant ones are kept aside
// (see Discarded), failed ones are recycled.
func (c *Candidates) AlignCandidates(p *Pattern, extended, local bool, ms *matches.Matches) int {
	n := len(c.regions)
	if n == 0 {
		return 0
	}
	if p == nil || ms == nil {
		panic("filtering: nil pattern or match collection")
	}

	c.sortRegions()

	c.cache.Clear()

	var numAccepted int
	var regionAccepted, matchAccepted bool
	for _, r := range c.regions {
		if !extended && c.subdominant(r, ms) {
			ms.Metrics.LimitedCandidates = true
			r.Status = AcceptedSubdominant
			continue
		}

		regionAccepted, matchAccepted = c.alignRegion(r, p, extended, local, ms)
		if !regionAccepted {
			r.Status = Discarded
			continue
		}
		r.Status = Accepted
		if matchAccepted {
			numAccepted++
		}
	}

	for _, r := range c.regions {
		switch r.Status {
		case Accepted:
			c.accepted = append(c.accepted, r)
		case AcceptedSubdominant:
			c.discarded = append(c.discarded, r)
		default:
			RecycleRegion(r)
		}
	}
	clear(c.regions)
	c.regions = c.regions[:0]

	ms.Metrics.CandidatesExamined += n
	ms.Metrics.CandidatesAccepted += numAccepted
	return numAccepted
}

// subdominant tells if a region can not beat the worst accepted trace of a
// full collection.
func (c *Candidates) subdominant(r *Region, ms *matches.Matches) bool {
	if c.opt.MaxReportedMatches <= 0 || ms.Len() < c.opt.MaxReportedMatches {
		return false
	}
	return r.DistanceMinBound >= ms.WorstDistance()
}

// alignRegion verifies one region.
func (c *Candidates) alignRegion(r *Region, p *Pattern, extended, local bool,
	ms *matches.Matches) (regionAccepted bool, matchAccepted bool) {

	var t *matches.MatchTrace
	if !extended {
		t = c.cache.Search(r)
		if t != nil {
			c.stats.CacheHits++
		}
	}

	var cached bool
	if t == nil {
		t = c.align(r, p)
		if t == nil {
			return false, false
		}
	} else {
		cached = true
	}

	if !local && !extended && t.Kind == matches.Local {
		ms.AddLocalPending(t)
		return true, false
	}

	added, replaced := ms.Add(t)
	if added == nil {
		return true, false
	}
	// only realized traces are cached
	if !cached {
		c.cache.Add(r, added)
	}
	if extended {
		added.Kind = matches.Extended
		if !replaced {
			c.extended = append(c.extended, added)
		}
	}
	return true, !replaced
}

// align retrieves the text of a region and aligns the key to it.
// It returns nil if no alignment within the distance bound is found.
func (c *Candidates) align(r *Region, p *Pattern) *matches.MatchTrace {
	if c.texts == nil {
		panic("filtering: no text retriever")
	}

	var err error
	c.text, err = c.texts.Text(c.text[:0], r.TextBegin, r.TextEnd-r.TextBegin)
	if err != nil {
		c.stats.TextUnavailable++
		return nil
	}

	key := p.keySpan(r)
	maxDistance := p.MaxDistance
	if r.DistanceBound >= 0 && r.DistanceBound < maxDistance {
		maxDistance = r.DistanceBound
	}

	c.stats.Alignments++
	aln, ok := c.aligner.Align(key, c.text, maxDistance)
	if ok {
		return &matches.MatchTrace{
			SeqIdx:       r.SeqIdx,
			TextPosition: r.TextBegin + aln.TextBegin,
			Strand:       r.Strand,
			Distance:     aln.Score,
			Kind:         matches.Global,
			Alignment:    aln,
		}
	}

	if c.opt.LocalFallback {
		return c.alignLocal(r, key)
	}
	return nil
}
