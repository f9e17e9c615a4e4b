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

	"github.com/shenwei356/wfa"
)

func TestTrimOps(t *testing.T) {
	rec := func(op byte, n uint32) *wfa.CIGARRecord {
		return &wfa.CIGARRecord{N: n, Op: op}
	}

	tests := []struct {
		ops      []*wfa.CIGARRecord
		expected string
	}{
		{[]*wfa.CIGARRecord{rec('H', 2), rec('I', 1), rec('M', 5), rec('X', 1), rec('M', 3), rec('D', 2)}, "5M1X3M"},
		{[]*wfa.CIGARRecord{rec('M', 4)}, "4M"},
		{[]*wfa.CIGARRecord{rec('I', 3), rec('X', 1)}, ""},
		{nil, ""},
	}
	for i, test := range tests {
		var s string
		for _, op := range trimOps(test.ops) {
			s += fmt.Sprintf("%d%c", op.N, op.Op)
		}
		if s != test.expected {
			t.Errorf("[#%d] expected %q, returned %q", i, test.expected, s)
		}
	}
}
