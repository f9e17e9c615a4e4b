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

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrBackendUnavailable means the requested accelerator backend is not
// registered and emulation is not allowed.
var ErrBackendUnavailable = errors.New("buffer: accelerator backend unavailable")

// CPU is the name of the built-in emulated backend.
const CPU = "cpu"

// Job is one batch in flight: the encoded hits of all tasks of a buffer,
// decoded by a backend.
type Job struct {
	Payload []byte // encoded hits of all tasks
	Counts  []int  // number of hits of each task

	Result [][]Locus // decoded loci of each task, set by the backend
	Err    error     // set by the backend

	done chan struct{}
}

// Finish marks the job as completed. Backends must call it exactly once.
func (j *Job) Finish() {
	close(j.done)
}

// Backend decodes jobs.
type Backend interface {
	// Name returns the name of the backend.
	Name() string
	// Launch starts the decoding of a job and returns immediately.
	Launch(job *Job)
	// Close waits for launched jobs and releases the resources.
	Close()
}

// BackendFactory creates a backend serving the buffers of a collection.
type BackendFactory func(opt *Options) (Backend, error)

var mu sync.RWMutex
var backends = map[string]BackendFactory{
	CPU: newCPUBackend,
}

// RegisterBackend registers an accelerator backend.
func RegisterBackend(name string, f BackendFactory) {
	mu.Lock()
	backends[name] = f
	mu.Unlock()
}

// Backends returns the names of registered backends.
func Backends() []string {
	mu.RLock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	mu.RUnlock()
	sort.Strings(names)
	return names
}

func backendFactory(name string) (BackendFactory, bool) {
	mu.RLock()
	f, ok := backends[name]
	mu.RUnlock()
	return f, ok
}

// cpuBackend emulates a device with a group of goroutines.
type cpuBackend struct {
	jobs chan *Job
	wg   sync.WaitGroup
}

func newCPUBackend(opt *Options) (Backend, error) {
	devices := opt.NumDevices
	if devices < 1 {
		devices = 1
	}
	b := &cpuBackend{
		// each buffer has at most one job in flight
		jobs: make(chan *Job, opt.NumBuffers+1),
	}
	for i := 0; i < devices; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for job := range b.jobs {
				decode(job)
				job.Finish()
			}
		}()
	}
	return b, nil
}

func (b *cpuBackend) Name() string { return CPU }

func (b *cpuBackend) Launch(job *Job) { b.jobs <- job }

func (b *cpuBackend) Close() {
	close(b.jobs)
	b.wg.Wait()
}

// decode decodes the payload of a job task by task.
func decode(job *Job) {
	if cap(job.Result) < len(job.Counts) {
		job.Result = make([][]Locus, len(job.Counts))
	}
	job.Result = job.Result[:len(job.Counts)]

	var offset, m int
	var err error
	for i, n := range job.Counts {
		job.Result[i], m, err = DecodeHits(job.Result[i][:0], job.Payload[offset:], n)
		if err != nil {
			job.Err = errors.Wrapf(err, "decoding hits of task %d", i)
			return
		}
		offset += m
	}
}
