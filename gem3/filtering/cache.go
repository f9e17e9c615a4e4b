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
	"encoding/binary"

	"github.com/MarziehLenjani/gem3-mapper/gem3/matches"
	"github.com/zeebo/wyhash"
)

// locus is the signature of a candidate region.
type locus struct {
	strand             matches.Strand
	textBegin, textEnd int
	keyBegin, keyEnd   int
}

func locusOf(r *Region) locus {
	return locus{
		strand:    r.Strand,
		textBegin: r.TextBegin,
		textEnd:   r.TextEnd,
		keyBegin:  r.KeyBegin,
		keyEnd:    r.KeyEnd,
	}
}

type cacheEntry struct {
	locus locus
	trace *matches.MatchTrace
}

// Cache maps recently verified regions of a query to their traces.
// When full, the oldest entry is evicted.
type Cache struct {
	size    int
	entries map[uint64]*cacheEntry
	order   []uint64 // FIFO ring of keys
	head    int

	hits, misses int

	buf [33]byte
}

// NewCache creates a Cache holding at most size entries.
func NewCache(size int) *Cache {
	if size < 1 {
		size = 1
	}
	return &Cache{
		size:    size,
		entries: make(map[uint64]*cacheEntry, size),
		order:   make([]uint64, 0, size),
	}
}

// Signature returns the hash of the locus of a region.
func (c *Cache) Signature(r *Region) uint64 {
	c.buf[0] = byte(r.Strand)
	binary.LittleEndian.PutUint64(c.buf[1:], uint64(r.TextBegin))
	binary.LittleEndian.PutUint64(c.buf[9:], uint64(r.TextEnd))
	binary.LittleEndian.PutUint64(c.buf[17:], uint64(r.KeyBegin))
	binary.LittleEndian.PutUint64(c.buf[25:], uint64(r.KeyEnd))
	return wyhash.Hash(c.buf[:], 1)
}

// Clear removes all entries and resets the counters.
func (c *Cache) Clear() {
	clear(c.entries)
	c.order = c.order[:0]
	c.head = 0
	c.hits, c.misses = 0, 0
}

// Len returns the number of entries.
func (c *Cache) Len() int { return len(c.entries) }

// Stats returns the numbers of hits and misses since the last Clear.
func (c *Cache) Stats() (hits, misses int) { return c.hits, c.misses }

// Search returns a copy of the trace of a region with the same locus,
// or nil.
func (c *Cache) Search(r *Region) *matches.MatchTrace {
	e, ok := c.entries[c.Signature(r)]
	if !ok || e.locus != locusOf(r) {
		c.misses++
		return nil
	}
	c.hits++
	return e.trace.Clone()
}

// Add stores a copy of the trace of a region.
func (c *Cache) Add(r *Region, t *matches.MatchTrace) {
	sig := c.Signature(r)
	if e, ok := c.entries[sig]; ok {
		e.locus = locusOf(r)
		e.trace = t.Clone()
		return
	}

	if len(c.order) < c.size {
		c.order = append(c.order, sig)
	} else {
		delete(c.entries, c.order[c.head])
		c.order[c.head] = sig
		c.head = (c.head + 1) % c.size
	}
	c.entries[sig] = &cacheEntry{locus: locusOf(r), trace: t.Clone()}
}
