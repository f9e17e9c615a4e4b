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
	"sync"

	"github.com/MarziehLenjani/gem3-mapper/gem3/matches"
	"github.com/MarziehLenjani/gem3-mapper/gem3/util"
)

// Status is the verification status of a candidate region.
type Status uint8

const (
	Pending Status = iota
	Accepted
	AcceptedSubdominant
	Discarded
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Accepted:
		return "accepted"
	case AcceptedSubdominant:
		return "accepted-subdominant"
	case Discarded:
		return "discarded"
	}
	return "unknown"
}

// Region is a candidate placement of a query, waiting for verification.
type Region struct {
	SeqIdx int
	Strand matches.Strand

	TextBegin, TextEnd int // global text window, [begin, end)
	KeyBegin, KeyEnd   int // span of the key, [begin, end)

	DistanceMinBound int // the smallest possible distance
	DistanceBound    int // the largest distance to verify, <0 for the key's bound

	Status Status
}

// Reset resets all the values.
func (r *Region) Reset() {
	r.SeqIdx = 0
	r.Strand = matches.Forward
	r.TextBegin, r.TextEnd = 0, 0
	r.KeyBegin, r.KeyEnd = 0, 0
	r.DistanceMinBound = 0
	r.DistanceBound = -1
	r.Status = Pending
}

var poolRegion = &sync.Pool{New: func() interface{} {
	return &Region{DistanceBound: -1}
}}

// NewRegion returns a Region from the object pool.
// Do not forget to call RecycleRegion after using it.
func NewRegion() *Region {
	r := poolRegion.Get().(*Region)
	r.Reset()
	return r
}

// RecycleRegion recycles a Region.
func RecycleRegion(r *Region) {
	if r != nil {
		poolRegion.Put(r)
	}
}

// Pattern is the query to verify candidates of.
type Pattern struct {
	Key         []byte
	MaxDistance int

	rc    []byte
	hasRC bool
}

// NewPattern creates a Pattern.
func NewPattern(key []byte, maxDistance int) *Pattern {
	return &Pattern{Key: key, MaxDistance: maxDistance}
}

// Reset reuses the pattern for another key.
func (p *Pattern) Reset(key []byte, maxDistance int) {
	p.Key = key
	p.MaxDistance = maxDistance
	p.hasRC = false
}

// KeyOf returns the key on the given strand of the text.
// The reverse complement is computed once.
func (p *Pattern) KeyOf(strand matches.Strand) []byte {
	if strand == matches.Forward {
		return p.Key
	}
	if !p.hasRC {
		p.rc = util.RCInto(p.rc, p.Key)
		p.hasRC = true
	}
	return p.rc
}

// keySpan returns the part of the key of a region.
func (p *Pattern) keySpan(r *Region) []byte {
	key := p.KeyOf(r.Strand)
	if r.KeyEnd <= r.KeyBegin || r.KeyEnd > len(key) {
		return key
	}
	return key[r.KeyBegin:r.KeyEnd]
}
