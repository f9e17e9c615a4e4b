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

package arena

import (
	"testing"
)

func TestPushPop(t *testing.T) {
	s := NewStack(16)

	a := s.Int32s(4)
	for i := range a {
		a[i] = int32(i + 1)
	}

	s.Push()
	b := s.Int32s(10)
	c := s.Int32s(10) // does not fit in the first chunk
	if len(b) != 10 || len(c) != 10 {
		t.Errorf("unexpected block sizes: %d, %d", len(b), len(c))
		return
	}
	if s.Used() < 24 {
		t.Errorf("used values should be >= 24, returned %d", s.Used())
	}
	for i := range c {
		c[i] = -1
	}
	s.Pop()

	if s.Used() != 4 {
		t.Errorf("used values after pop: expected 4, returned %d", s.Used())
	}
	if s.Depth() != 0 {
		t.Errorf("depth after pop: expected 0, returned %d", s.Depth())
	}

	// the first block survives
	for i, v := range a {
		if v != int32(i+1) {
			t.Errorf("[#%d] block overwritten: %d", i, v)
		}
	}

	// reused memory is zeroed
	d := s.Int32s(20)
	for i, v := range d {
		if v != 0 {
			t.Errorf("[#%d] block not zeroed: %d", i, v)
			return
		}
	}
}

func TestPopWithoutPush(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("pop without push should panic")
		}
	}()
	s := NewStack(0)
	s.Pop()
}

func TestNestedStates(t *testing.T) {
	s := GetStack()
	defer RecycleStack(s)

	for round := 0; round < 100; round++ {
		s.Push()
		s.Int32s(1000)
		s.Push()
		s.Int32s(100000)
		s.Pop()
		s.Pop()
		if s.Used() != 0 {
			t.Errorf("[#%d] leaked %d values", round, s.Used())
			return
		}
	}
}
