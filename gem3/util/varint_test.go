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

package util

import (
	"math/rand"
	"testing"
)

var testsUint64 [][2]uint64

func init() {
	ntests := 10000
	testsUint64 = make([][2]uint64, ntests)
	var i int
	for ; i < ntests/4; i++ {
		testsUint64[i] = [2]uint64{rand.Uint64(), rand.Uint64()}
	}
	for ; i < ntests/2; i++ {
		testsUint64[i] = [2]uint64{uint64(rand.Uint32()), uint64(rand.Uint32())}
	}
	for ; i < ntests*3/4; i++ {
		testsUint64[i] = [2]uint64{uint64(rand.Intn(65536)), uint64(rand.Intn(256))}
	}
	for ; i < ntests; i++ {
		testsUint64[i] = [2]uint64{uint64(rand.Intn(256)), uint64(rand.Intn(256))}
	}
}

func TestGroupVarint(t *testing.T) {
	buf := make([]byte, 16)
	var ctrl byte
	var n, n2 int
	var v1, v2 uint64
	for i, test := range testsUint64 {
		ctrl, n = PutUint64s(buf, test[0], test[1])
		if CtrlByte2ByteLengthsUint64(ctrl) != n {
			t.Errorf("[#%d] wrong byte length", i)
		}

		v1, v2, n2 = Uint64s(ctrl, buf[0:n])
		if n2 == 0 {
			t.Errorf("[#%d] wrong decoded number", i)
		}

		if v1 != test[0] || v2 != test[1] {
			t.Errorf("[#%d] wrong decoded result: %d, %d, answer: %d, %d", i, v1, v2, test[0], test[1])
		}
	}
}

func TestStream(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 100, 1001} {
		vs := make([]uint64, n)
		for i := range vs {
			vs[i] = testsUint64[rand.Intn(len(testsUint64))][0]
		}

		buf := AppendUint64s(nil, vs)
		decoded, m, err := DecodeUint64s(nil, buf, n)
		if err != nil {
			t.Errorf("[#%d] %s", n, err)
			continue
		}
		if m != len(buf) {
			t.Errorf("[#%d] consumed %d bytes of %d", n, m, len(buf))
		}
		if len(decoded) != n {
			t.Errorf("[#%d] decoded %d values", n, len(decoded))
			continue
		}
		for i := range vs {
			if decoded[i] != vs[i] {
				t.Errorf("[#%d] value %d: %d != %d", n, i, decoded[i], vs[i])
				break
			}
		}

		if n > 2 {
			if _, _, err = DecodeUint64s(nil, buf[:len(buf)-1], n); err == nil {
				t.Errorf("[#%d] truncated stream should fail", n)
			}
		}
	}
}
