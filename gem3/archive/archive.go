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

// Package archive stores reference sequences in 2-bit packed form and
// serves windows of the concatenated text to the verification pipeline.
package archive

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrEmptySeq means the sequence is empty.
var ErrEmptySeq = errors.New("archive: empty seq")

// ErrDuplicatedID means a sequence with the same ID exists.
var ErrDuplicatedID = errors.New("archive: duplicated sequence id")

// ErrTextUnavailable means the requested span lies outside a single indexed sequence.
var ErrTextUnavailable = errors.New("archive: text unavailable")

// ErrSeqIndexOutOfRange means the sequence index is invalid.
var ErrSeqIndexOutOfRange = errors.New("archive: sequence index out of range")

// Archive holds a list of DNA sequences in a one-dimensional text space:
// sequence i occupies [Offset(i), Offset(i)+SeqLen(i)).
// It is read-only after loading and safe for concurrent reads.
type Archive struct {
	ids     []string
	id2idx  map[string]int
	seqs    [][]byte // 2-bit packed
	lens    []int
	offsets []int
	nRuns   [][][2]int // runs of ambiguous bases, [start, end)

	total int
}

// New returns an empty Archive.
func New() *Archive {
	return &Archive{
		ids:     make([]string, 0, 8),
		id2idx:  make(map[string]int, 8),
		seqs:    make([][]byte, 0, 8),
		lens:    make([]int, 0, 8),
		offsets: make([]int, 0, 8),
		nRuns:   make([][][2]int, 0, 8),
	}
}

// Add appends a sequence. Bases other than ACGT (case insensitive) are
// restored as N on extraction.
func (a *Archive) Add(id string, s []byte) error {
	if len(s) == 0 {
		return errors.Wrap(ErrEmptySeq, id)
	}
	if _, ok := a.id2idx[id]; ok {
		return errors.Wrap(ErrDuplicatedID, id)
	}

	b2 := Seq2TwoBit(s)
	packed := make([]byte, len(*b2))
	copy(packed, *b2)
	RecycleTwoBit(b2)

	var runs [][2]int
	start := -1
	for i, b := range s {
		if isACGT[b] {
			if start >= 0 {
				runs = append(runs, [2]int{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		runs = append(runs, [2]int{start, len(s)})
	}

	a.id2idx[id] = len(a.ids)
	a.ids = append(a.ids, id)
	a.seqs = append(a.seqs, packed)
	a.lens = append(a.lens, len(s))
	a.offsets = append(a.offsets, a.total)
	a.nRuns = append(a.nRuns, runs)
	a.total += len(s)
	return nil
}

// NumSeqs returns the number of sequences.
func (a *Archive) NumSeqs() int { return len(a.ids) }

// TotalLen returns the length of the whole text.
func (a *Archive) TotalLen() int { return a.total }

// ID returns the ID of sequence i.
func (a *Archive) ID(i int) string { return a.ids[i] }

// SeqLen returns the length of sequence i.
func (a *Archive) SeqLen(i int) int { return a.lens[i] }

// Offset returns the global position of the first base of sequence i.
func (a *Archive) Offset(i int) int { return a.offsets[i] }

// Index returns the index of a sequence ID.
func (a *Archive) Index(id string) (int, bool) {
	i, ok := a.id2idx[id]
	return i, ok
}

// Position converts a (sequence, 0-based offset) pair to the global position.
func (a *Archive) Position(seqIdx, offset int) int {
	return a.offsets[seqIdx] + offset
}

// Locate converts a global position to the sequence index and the offset
// in it.
func (a *Archive) Locate(position int) (seqIdx int, offset int, ok bool) {
	if position < 0 || position >= a.total {
		return -1, -1, false
	}
	i := sort.Search(len(a.offsets), func(i int) bool { return a.offsets[i] > position }) - 1
	return i, position - a.offsets[i], true
}

// SubSeq appends the subsequence of sequence idx, from start to end
// (both 0-based and included), to dst.
func (a *Archive) SubSeq(dst []byte, idx int, start int, end int) ([]byte, error) {
	if idx < 0 || idx >= len(a.seqs) {
		return dst, errors.Wrapf(ErrSeqIndexOutOfRange, "%d not in [0, %d]", idx, len(a.seqs)-1)
	}
	n := a.lens[idx]
	if start < 0 {
		start = 0
	}
	if end >= n-1 {
		end = n - 1
	}
	if end < start {
		return dst, nil
	}

	b2 := a.seqs[idx]
	offset := len(dst)
	var b byte
	for i := start; i <= end; i++ {
		b = b2[i>>2] >> (6 - ((i & 3) << 1))
		dst = append(dst, bit2base[b&3])
	}

	for _, r := range a.nRuns[idx] {
		if r[1] <= start || r[0] > end {
			continue
		}
		for i := max(r[0], start); i < r[1] && i <= end; i++ {
			dst[offset+i-start] = 'N'
		}
	}

	return dst, nil
}

// Text appends the text window [position, position+length) to dst.
// The window must lie in a single sequence, or ErrTextUnavailable is returned.
func (a *Archive) Text(dst []byte, position, length int) ([]byte, error) {
	if length <= 0 {
		return dst, errors.Wrapf(ErrTextUnavailable, "invalid length %d", length)
	}
	idx, offset, ok := a.Locate(position)
	if !ok || offset+length > a.lens[idx] {
		return dst, errors.Wrapf(ErrTextUnavailable, "[%d, %d)", position, position+length)
	}
	return a.SubSeq(dst, idx, offset, offset+length-1)
}

var isACGT = [256]bool{'A': true, 'C': true, 'G': true, 'T': true, 'a': true, 'c': true, 'g': true, 't': true}

var base2bit = [256]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 1, 1, 0, 0, 0, 2, 0, 0, 0, 2, 0, 0, 0, 0,
	0, 0, 0, 1, 3, 3, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0,
	0, 0, 1, 1, 0, 0, 0, 2, 0, 0, 0, 2, 0, 0, 0, 0,
	0, 0, 0, 1, 3, 3, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

var bit2base = [4]byte{'A', 'C', 'G', 'T'}

// RecycleTwoBit recycles a packed sequence returned by Seq2TwoBit.
func RecycleTwoBit(b2 *[]byte) {
	poolTwoBit.Put(b2)
}

var poolTwoBit = &sync.Pool{New: func() interface{} {
	tmp := make([]byte, 0, 1<<20)
	return &tmp
}}

// Seq2TwoBit converts a DNA sequence to 2bit-packed sequence,
// four bases per byte, the first base in the highest bits.
func Seq2TwoBit(s []byte) *[]byte {
	if s == nil {
		return nil
	}
	if len(s) == 0 {
		return &[]byte{}
	}

	n := len(s) >> 2
	m := len(s) & 3

	codes := poolTwoBit.Get().(*[]byte)
	*codes = (*codes)[:0]

	var j int
	for i := 0; i < n; i++ {
		j = i << 2

		*codes = append(*codes, base2bit[s[j]]<<6+base2bit[s[j+1]]<<4+base2bit[s[j+2]]<<2+base2bit[s[j+3]])
	}

	if m == 0 {
		return codes
	}

	j = n << 2

	switch m {
	case 3:
		*codes = append(*codes, base2bit[s[j]]<<6+base2bit[s[j+1]]<<4+base2bit[s[j+2]]<<2)
	case 2:
		*codes = append(*codes, base2bit[s[j]]<<6+base2bit[s[j+1]]<<4)
	case 1:
		*codes = append(*codes, base2bit[s[j]]<<6)
	}

	return codes
}
