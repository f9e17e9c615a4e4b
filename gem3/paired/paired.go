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

// Package paired combines the matches of the two ends of a read pair into
// concordant and discordant pairs.
package paired

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MarziehLenjani/gem3-mapper/gem3/align"
	"github.com/MarziehLenjani/gem3-mapper/gem3/matches"
)

// Orientation is the relative orientation of the two ends of a pair.
type Orientation uint8

const (
	FR Orientation = iota // the forward end is on the left
	RF                    // the reverse end is on the left
	FF                    // both on the forward strand
	RR                    // both on the reverse strand
)

func (o Orientation) String() string {
	switch o {
	case FR:
		return "FR"
	case RF:
		return "RF"
	case FF:
		return "FF"
	case RR:
		return "RR"
	}
	return "??"
}

// ParseOrientations parses a comma-separated list, e.g., "FR,RF".
func ParseOrientations(s string) ([]Orientation, error) {
	var list []Orientation
	for _, f := range strings.Split(s, ",") {
		switch strings.ToUpper(strings.TrimSpace(f)) {
		case "FR":
			list = append(list, FR)
		case "RF":
			list = append(list, RF)
		case "FF":
			list = append(list, FF)
		case "RR":
			list = append(list, RR)
		case "":
		default:
			return nil, fmt.Errorf("paired: invalid orientation: %s", f)
		}
	}
	return list, nil
}

// PairKind is the class of a pair.
type PairKind uint8

const (
	Concordant PairKind = iota
	Discordant
)

func (k PairKind) String() string {
	if k == Discordant {
		return "discordant"
	}
	return "concordant"
}

// Options contains the options of pairing.
type Options struct {
	ConcordantOrientations []Orientation
	DiscordantOrientations []Orientation

	MinTemplateLength int
	MaxTemplateLength int

	// Pairs failing the constraints of concordant pairs are kept as
	// discordant ones.
	DiscordantSearch bool

	MaxPairs int // the maximum number of pairs of each kind, <= 0 for no limit
}

// DefaultOptions is the default Options.
var DefaultOptions = Options{
	ConcordantOrientations: []Orientation{FR},
	DiscordantOrientations: []Orientation{FR, RF, FF, RR},

	MinTemplateLength: 0,
	MaxTemplateLength: 1000,

	DiscordantSearch: true,
	MaxPairs:         0,
}

// CheckOptions checks the options.
func CheckOptions(opt *Options) error {
	if opt.MinTemplateLength < 0 {
		return fmt.Errorf("paired: negative minimum template length: %d", opt.MinTemplateLength)
	}
	if opt.MaxTemplateLength < opt.MinTemplateLength {
		return fmt.Errorf("paired: maximum template length (%d) < minimum template length (%d)",
			opt.MaxTemplateLength, opt.MinTemplateLength)
	}
	if len(opt.ConcordantOrientations) == 0 {
		return fmt.Errorf("paired: no concordant orientations given")
	}
	return nil
}

// PairedMatch is a pair of traces of the two ends.
type PairedMatch struct {
	End1, End2 *matches.MatchTrace

	MapQ           uint8
	TemplateLength int
	Distance       int
	Orientation    Orientation
	Kind           PairKind
}

func (p *PairedMatch) String() string {
	return fmt.Sprintf("[%s] [%s] %s tlen=%d d=%d %s",
		p.End1, p.End2, p.Orientation, p.TemplateLength, p.Distance, p.Kind)
}

// TemplateLength returns the outer span of the two ends, given the begin
// and end positions of both.
func TemplateLength(begin1, end1, begin2, end2 int) int {
	return max(end1, end2) - min(begin1, begin2)
}

// CalculateDistance returns the distance of a pair.
func CalculateDistance(t1, t2 *matches.MatchTrace) int {
	return t1.Distance + t2.Distance
}

// orientationOf returns the relative orientation of two traces.
func orientationOf(t1, t2 *matches.MatchTrace) Orientation {
	switch {
	case t1.Strand == matches.Forward && t2.Strand == matches.Forward:
		return FF
	case t1.Strand == matches.Reverse && t2.Strand == matches.Reverse:
		return RR
	}
	fwd, rev := t1, t2
	if t1.Strand == matches.Reverse {
		fwd, rev = t2, t1
	}
	if fwd.Begin() <= rev.Begin() {
		return FR
	}
	return RF
}

// PairedMatches holds the matches of both ends and their pairs.
type PairedMatches struct {
	end1, end2 *matches.Matches

	concordant []PairedMatch
	discordant []PairedMatch

	// MaxCompleteStratum is the pair distance up to which all pairs are
	// known to be found. It is set by FindPairs.
	MaxCompleteStratum int

	sizes *TemplateSizes
}

// New creates an empty PairedMatches.
func New() *PairedMatches {
	return &PairedMatches{
		end1:               matches.New(),
		end2:               matches.New(),
		concordant:         make([]PairedMatch, 0, 8),
		discordant:         make([]PairedMatch, 0, 8),
		sizes:              NewTemplateSizes(DefaultSampleSize),
	}
}

// End1 returns the matches of the first end.
func (pm *PairedMatches) End1() *matches.Matches { return pm.end1 }

// End2 returns the matches of the second end.
func (pm *PairedMatches) End2() *matches.Matches { return pm.end2 }

// Concordant returns the concordant pairs.
func (pm *PairedMatches) Concordant() []PairedMatch { return pm.concordant }

// Discordant returns the discordant pairs.
func (pm *PairedMatches) Discordant() []PairedMatch { return pm.discordant }

// TemplateSizes returns the sample of template sizes of unique concordant
// pairs, accumulated across queries.
func (pm *PairedMatches) TemplateSizes() *TemplateSizes { return pm.sizes }

// IsMapped tells if any pair is found.
func (pm *PairedMatches) IsMapped() bool {
	return len(pm.concordant) > 0 || len(pm.discordant) > 0
}

// Best returns the best pair, concordant pairs first.
// Pairs should be sorted before.
func (pm *PairedMatches) Best() (*PairedMatch, bool) {
	if len(pm.concordant) > 0 {
		return &pm.concordant[0], true
	}
	if len(pm.discordant) > 0 {
		return &pm.discordant[0], true
	}
	return nil, false
}

// Clear removes all matches and pairs. The template sizes are kept.
func (pm *PairedMatches) Clear() {
	pm.end1.Clear()
	pm.end2.Clear()
	clear(pm.concordant)
	pm.concordant = pm.concordant[:0]
	clear(pm.discordant)
	pm.discordant = pm.discordant[:0]
	pm.MaxCompleteStratum = 0
}

// Add adds a pair of traces.
func (pm *PairedMatches) Add(t1, t2 *matches.MatchTrace, o Orientation, templateLength int, kind PairKind) {
	p := PairedMatch{
		End1:           t1,
		End2:           t2,
		MapQ:           min(t1.MapQ, t2.MapQ),
		TemplateLength: templateLength,
		Distance:       CalculateDistance(t1, t2),
		Orientation:    o,
		Kind:           kind,
	}
	if kind == Concordant {
		pm.concordant = append(pm.concordant, p)
	} else {
		pm.discordant = append(pm.discordant, p)
	}
}

// FindPairs pairs every trace of end1 with every trace of end2 on the same
// sequence. A pair is concordant if its orientation is one of the
// concordant ones and its template length is in range. Otherwise, with
// discordant search, it is discordant if its orientation is one of the
// discordant ones. Other pairs are dropped.
//
// Pairs are sorted by distance. The template length of a unique concordant
// pair is recorded.
func (pm *PairedMatches) FindPairs(opt *Options) {
	if opt == nil {
		opt = &DefaultOptions
	}
	pm.MaxCompleteStratum = min(pm.end1.MaxCompleteStratum, pm.end2.MaxCompleteStratum)

	var o Orientation
	var tlen int
	for _, t1 := range pm.end1.Traces() {
		for _, t2 := range pm.end2.Traces() {
			if t1.SeqIdx != t2.SeqIdx {
				continue
			}
			o = orientationOf(t1, t2)
			tlen = TemplateLength(t1.Begin(), t1.End(), t2.Begin(), t2.End())

			if slices.Contains(opt.ConcordantOrientations, o) &&
				tlen >= opt.MinTemplateLength && tlen <= opt.MaxTemplateLength {
				pm.Add(t1, t2, o, tlen, Concordant)
				continue
			}
			if opt.DiscordantSearch && slices.Contains(opt.DiscordantOrientations, o) {
				pm.Add(t1, t2, o, tlen, Discordant)
			}
		}
	}

	pm.scoreMapQ()
	pm.SortByDistance()

	if opt.MaxPairs > 0 {
		if len(pm.concordant) > opt.MaxPairs {
			pm.concordant = pm.concordant[:opt.MaxPairs]
		}
		if len(pm.discordant) > opt.MaxPairs {
			pm.discordant = pm.discordant[:opt.MaxPairs]
		}
	}

	if len(pm.concordant) == 1 {
		pm.sizes.Add(pm.concordant[0].TemplateLength)
	}
}

// scoreMapQ scores pairs of each kind by their distances.
func (pm *PairedMatches) scoreMapQ() {
	for _, pairs := range [][]PairedMatch{pm.concordant, pm.discordant} {
		if len(pairs) == 0 {
			continue
		}
		best, second := align.DistanceInf, align.DistanceInf
		var ties int
		for i := range pairs {
			d := pairs[i].Distance
			switch {
			case d < best:
				second = best
				best, ties = d, 1
			case d == best:
				ties++
			case d < second:
				second = d
			}
		}
		q := matches.MapQ(best, second, ties)
		for i := range pairs {
			if pairs[i].Distance == best {
				pairs[i].MapQ = q
			} else {
				pairs[i].MapQ = 0
			}
		}
	}
}

func byDistance(a, b PairedMatch) int {
	if a.Distance != b.Distance {
		return a.Distance - b.Distance
	}
	return int(b.MapQ) - int(a.MapQ)
}

func byMapQ(a, b PairedMatch) int {
	if a.MapQ != b.MapQ {
		return int(b.MapQ) - int(a.MapQ)
	}
	return a.Distance - b.Distance
}

// SortByDistance sorts pairs by ascending distance,
// then by descending mapping quality.
func (pm *PairedMatches) SortByDistance() {
	slices.SortStableFunc(pm.concordant, byDistance)
	slices.SortStableFunc(pm.discordant, byDistance)
}

// SortByMapQ sorts pairs by descending mapping quality,
// then by ascending distance.
func (pm *PairedMatches) SortByMapQ() {
	slices.SortStableFunc(pm.concordant, byMapQ)
	slices.SortStableFunc(pm.discordant, byMapQ)
}
