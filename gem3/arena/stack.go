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

// Package arena provides a stack-discipline allocator for the scratch memory
// of one alignment: a state is pushed before a candidate is aligned and popped
// afterwards, whatever the outcome, so the memory is reused by the next call.
package arena

import (
	"sync"
)

// DefaultChunkSize is the number of int32 values of a chunk.
const DefaultChunkSize = 1 << 16

// state records the allocation position.
type state struct {
	chunk  int
	offset int
}

// Stack is a stack allocator of int32 blocks.
// It is not safe for concurrent use, each worker owns its own one.
type Stack struct {
	chunkSize int
	chunks    [][]int32

	cur    int // current chunk
	offset int // used values in the current chunk

	states []state
}

// NewStack creates a Stack, chunkSize <= 0 means DefaultChunkSize.
func NewStack(chunkSize int) *Stack {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Stack{
		chunkSize: chunkSize,
		chunks:    [][]int32{make([]int32, chunkSize)},
		states:    make([]state, 0, 8),
	}
}

// Push saves the current allocation state.
func (s *Stack) Push() {
	s.states = append(s.states, state{chunk: s.cur, offset: s.offset})
}

// Pop restores the latest saved state. Blocks allocated after the matching
// Push must not be used anymore.
func (s *Stack) Pop() {
	n := len(s.states)
	if n == 0 {
		panic("arena: pop without a matching push")
	}
	st := s.states[n-1]
	s.states = s.states[:n-1]
	s.cur, s.offset = st.chunk, st.offset
}

// Depth returns the number of saved states.
func (s *Stack) Depth() int {
	return len(s.states)
}

// Used returns the number of int32 values currently allocated.
func (s *Stack) Used() int {
	var n int
	for i := 0; i < s.cur; i++ {
		n += len(s.chunks[i])
	}
	return n + s.offset
}

// Int32s returns a zeroed block of n values.
func (s *Stack) Int32s(n int) []int32 {
	if n < 0 {
		panic("arena: negative allocation size")
	}
	if s.offset+n > len(s.chunks[s.cur]) {
		s.next(n)
	}
	b := s.chunks[s.cur][s.offset : s.offset+n : s.offset+n]
	s.offset += n
	clear(b)
	return b
}

// next moves to the next chunk that can hold n values.
func (s *Stack) next(n int) {
	for s.cur+1 < len(s.chunks) {
		s.cur++
		s.offset = 0
		if len(s.chunks[s.cur]) >= n {
			return
		}
	}

	size := s.chunkSize
	if n > size {
		size = n
	}
	s.chunks = append(s.chunks, make([]int32, size))
	s.cur = len(s.chunks) - 1
	s.offset = 0
}

// Reset drops all states and allocations, chunks are kept.
func (s *Stack) Reset() {
	s.cur, s.offset = 0, 0
	s.states = s.states[:0]
}

var poolStack = &sync.Pool{New: func() interface{} {
	return NewStack(DefaultChunkSize)
}}

// GetStack returns a Stack from the object pool.
// Do not forget to call RecycleStack after using it.
func GetStack() *Stack {
	s := poolStack.Get().(*Stack)
	s.Reset()
	return s
}

// RecycleStack recycles a Stack.
func RecycleStack(s *Stack) {
	if s != nil {
		poolStack.Put(s)
	}
}
