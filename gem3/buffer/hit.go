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

// Package buffer stages the candidates of many queries into fixed-capacity
// batches that are decoded by an accelerator backend, or by CPU goroutines
// emulating one, while the owning worker keeps filling other batches.
package buffer

import (
	"github.com/MarziehLenjani/gem3-mapper/gem3/matches"
	"github.com/MarziehLenjani/gem3-mapper/gem3/util"
)

// Hit is a packed candidate location:
//
//	seqIdx (34 bits) | position (29 bits) | strand (1 bit)
type Hit uint64

// MaxHitPosition is the largest position a Hit can hold.
const MaxHitPosition = 1<<29 - 1

// MaxHitSeqIdx is the largest sequence index a Hit can hold.
const MaxHitSeqIdx = 1<<34 - 1

// PackHit packs a location. It panics when the values are out of range.
func PackHit(seqIdx, pos int, strand matches.Strand) Hit {
	if pos < 0 || pos > MaxHitPosition || seqIdx < 0 || seqIdx > MaxHitSeqIdx {
		panic("buffer: hit location out of range")
	}
	return Hit(uint64(seqIdx)<<30 | uint64(pos)<<1 | uint64(strand&1))
}

// Unpack returns the sequence index, the position, and the strand.
func (h Hit) Unpack() (seqIdx int, pos int, strand matches.Strand) {
	return int(h >> 30), int(h << 34 >> 35), matches.Strand(h & 1)
}

// Locus is a decoded candidate location.
type Locus struct {
	SeqIdx   int
	Position int // offset in the sequence
	Strand   matches.Strand
}

// Locus unpacks the hit.
func (h Hit) Locus() Locus {
	i, p, s := h.Unpack()
	return Locus{SeqIdx: i, Position: p, Strand: s}
}

// EncodeHits appends hits to dst with group varint encoding.
func EncodeHits(dst []byte, hits []Hit) []byte {
	var buf [16]byte
	var ctrl byte
	var n int
	for i := 0; i < len(hits); i += 2 {
		if i+1 < len(hits) {
			ctrl, n = util.PutUint64s(buf[:], uint64(hits[i]), uint64(hits[i+1]))
		} else {
			ctrl, n = util.PutUint64s(buf[:], uint64(hits[i]), 0)
		}
		dst = append(dst, ctrl)
		dst = append(dst, buf[:n]...)
	}
	return dst
}

// DecodeHits decodes n hits from buf into loci appended to dst,
// and returns the number of bytes consumed.
func DecodeHits(dst []Locus, buf []byte, n int) ([]Locus, int, error) {
	var v1, v2 uint64
	var ctrl byte
	var offset, m int
	for i := 0; i < n; i += 2 {
		if offset >= len(buf) {
			return dst, offset, util.ErrBrokenStream
		}
		ctrl = buf[offset]
		offset++

		v1, v2, m = util.Uint64s(ctrl, buf[offset:])
		if m == 0 {
			return dst, offset, util.ErrBrokenStream
		}
		offset += m

		dst = append(dst, Hit(v1).Locus())
		if i+1 < n {
			dst = append(dst, Hit(v2).Locus())
		}
	}
	return dst, offset, nil
}
