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

// Package util contains small encoding helpers shared by other packages.
package util

import (
	"github.com/pkg/errors"
)

// ErrBrokenStream means a truncated or malformed encoded stream.
var ErrBrokenStream = errors.New("util: broken group-varint stream")

var offsetsUint64 = []uint8{56, 48, 40, 32, 24, 16, 8, 0}

// PutUint64s encodes two uint64s into 2-16 bytes, and returns control byte
// and encoded byte length.
func PutUint64s(buf []byte, v1, v2 uint64) (ctrl byte, n int) {
	blen := ByteLengthUint64(v1)
	ctrl |= byte(blen - 1)
	for _, offset := range offsetsUint64[8-blen:] {
		buf[n] = byte((v1 >> offset) & 0xff)
		n++
	}

	ctrl <<= 3
	blen = ByteLengthUint64(v2)
	ctrl |= byte(blen - 1)
	for _, offset := range offsetsUint64[8-blen:] {
		buf[n] = byte((v2 >> offset) & 0xff)
		n++
	}
	return
}

// Uint64s decodes encoded bytes.
func Uint64s(ctrl byte, buf []byte) (v1, v2 uint64, n int) {
	blen1 := int((ctrl>>3)&7) + 1
	blen2 := int(ctrl&7) + 1
	if len(buf) < blen1+blen2 {
		return 0, 0, 0
	}

	var j int

	for j = 0; j < blen1; j++ {
		v1 <<= 8
		v1 |= uint64(buf[n])
		n++
	}

	for j = 0; j < blen2; j++ {
		v2 <<= 8
		v2 |= uint64(buf[n])
		n++
	}

	return
}

// ByteLengthUint64 returns the minimum number of bytes to store a integer.
func ByteLengthUint64(n uint64) uint8 {
	if n < 256 {
		return 1
	}
	if n < 65536 {
		return 2
	}
	if n < 16777216 {
		return 3
	}
	if n < 4294967296 {
		return 4
	}
	if n < 1099511627776 {
		return 5
	}
	if n < 281474976710656 {
		return 6
	}
	if n < 72057594037927936 {
		return 7
	}
	return 8
}

// CtrlByte2ByteLengthsUint64 returns the byte length for a given control byte.
func CtrlByte2ByteLengthsUint64(ctrl byte) int {
	return int(ctrl>>3&7+ctrl&7) + 2
}

// AppendUint64s appends a stream of values to dst, two values per group:
// a control byte followed by the bytes of the two values.
// An odd tail is padded with a zero, so the decoder needs the count.
func AppendUint64s(dst []byte, vs []uint64) []byte {
	var buf [16]byte
	var ctrl byte
	var n int
	for i := 0; i < len(vs); i += 2 {
		if i+1 < len(vs) {
			ctrl, n = PutUint64s(buf[:], vs[i], vs[i+1])
		} else {
			ctrl, n = PutUint64s(buf[:], vs[i], 0)
		}
		dst = append(dst, ctrl)
		dst = append(dst, buf[:n]...)
	}
	return dst
}

// DecodeUint64s decodes n values from buf and appends them to dst.
// It also returns the number of bytes consumed.
func DecodeUint64s(dst []uint64, buf []byte, n int) ([]uint64, int, error) {
	var v1, v2 uint64
	var ctrl byte
	var offset, m int
	for i := 0; i < n; i += 2 {
		if offset >= len(buf) {
			return dst, offset, ErrBrokenStream
		}
		ctrl = buf[offset]
		offset++

		v1, v2, m = Uint64s(ctrl, buf[offset:])
		if m == 0 {
			return dst, offset, ErrBrokenStream
		}
		offset += m

		dst = append(dst, v1)
		if i+1 < n {
			dst = append(dst, v2)
		}
	}
	return dst, offset, nil
}
