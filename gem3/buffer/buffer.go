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

package buffer

// Task is a query, or a pair of queries, staged in a buffer.
type Task interface {
	// NumDecodeCandidates returns the number of hits to decode.
	NumDecodeCandidates() int
}

// Buffer is a fixed-capacity batch of tasks and their hits.
// A buffer is owned by one worker during fill, send, receive, and clear.
type Buffer struct {
	backend  Backend
	capacity int

	occupancy int
	tasks     []Task
	job       Job
	sent      bool
	received  bool
}

func newBuffer(backend Backend, capacity int) *Buffer {
	return &Buffer{
		backend:  backend,
		capacity: capacity,
		tasks:    make([]Task, 0, 64),
		job: Job{
			Payload: make([]byte, 0, capacity*4),
			Counts:  make([]int, 0, 64),
		},
	}
}

// Capacity returns the maximum number of hits.
func (b *Buffer) Capacity() int { return b.capacity }

// Occupancy returns the number of staged hits.
func (b *Buffer) Occupancy() int { return b.occupancy }

// NumTasks returns the number of staged tasks.
func (b *Buffer) NumTasks() int { return len(b.tasks) }

// Fits tells if all the tasks fit in the remaining capacity together.
// Nil tasks are ignored, e.g., a missing second end.
func (b *Buffer) Fits(tasks ...Task) bool {
	var n int
	for _, t := range tasks {
		if t != nil {
			n += t.NumDecodeCandidates()
		}
	}
	return b.occupancy+n <= b.capacity
}

// Add stages a task with its hits, whose number must be the one the task
// declares. It returns false, and stages nothing, if the hits do not fit;
// the task should then go to another buffer.
func (b *Buffer) Add(task Task, hits []Hit) bool {
	if task == nil {
		panic("buffer: nil task")
	}
	if task.NumDecodeCandidates() != len(hits) {
		panic("buffer: number of hits differs from the declared one")
	}
	if b.sent {
		panic("buffer: adding a task to a buffer in flight")
	}
	if b.occupancy+len(hits) > b.capacity {
		return false
	}
	b.tasks = append(b.tasks, task)
	b.job.Payload = EncodeHits(b.job.Payload, hits)
	b.job.Counts = append(b.job.Counts, len(hits))
	b.occupancy += len(hits)
	return true
}

// Send hands the staged hits to the backend and returns immediately.
func (b *Buffer) Send() {
	if b.sent {
		panic("buffer: buffer sent twice")
	}
	b.sent = true
	b.job.Err = nil
	b.job.done = make(chan struct{})
	b.backend.Launch(&b.job)
}

// Receive blocks until the batch is decoded.
func (b *Buffer) Receive() error {
	if !b.sent {
		panic("buffer: receiving a buffer not sent")
	}
	if !b.received {
		<-b.job.done
		b.received = true
	}
	return b.job.Err
}

// Task returns the i-th task.
func (b *Buffer) Task(i int) Task { return b.tasks[i] }

// Decoded returns the decoded loci of the i-th task.
// It is valid between Receive and Clear.
func (b *Buffer) Decoded(i int) []Locus {
	if !b.received {
		panic("buffer: results not received")
	}
	return b.job.Result[i]
}

// Clear hands every staged task to recycle, which can be nil, and empties
// the buffer.
func (b *Buffer) Clear(recycle func(Task)) {
	if b.sent && !b.received {
		<-b.job.done
	}
	if recycle != nil {
		for _, t := range b.tasks {
			recycle(t)
		}
	}
	clear(b.tasks)
	b.tasks = b.tasks[:0]
	b.job.Payload = b.job.Payload[:0]
	b.job.Counts = b.job.Counts[:0]
	b.occupancy = 0
	b.sent, b.received = false, false
}
