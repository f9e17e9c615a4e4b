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
	"fmt"

	"github.com/pkg/errors"
)

// Options contains the options of a Collection.
type Options struct {
	Backend  string // name of the backend
	Emulated bool   // fall back to the CPU backend if Backend is unavailable

	NumBuffers int // number of buffers
	BufferSize int // capacity of a buffer, in hits
	NumDevices int // goroutines of the CPU backend
}

// DefaultOptions is the default Options.
var DefaultOptions = Options{
	Backend:  CPU,
	Emulated: true,

	NumBuffers: 4,
	BufferSize: 1 << 14,
	NumDevices: 2,
}

// CheckOptions checks the options.
func CheckOptions(opt *Options) error {
	if opt.NumBuffers < 1 {
		return fmt.Errorf("buffer: the number of buffers should be positive: %d", opt.NumBuffers)
	}
	if opt.BufferSize < 1 {
		return fmt.Errorf("buffer: the buffer size should be positive: %d", opt.BufferSize)
	}
	return nil
}

// Collection is a fixed pool of buffers served by one backend.
// Acquire and Release are safe for concurrent use.
type Collection struct {
	opt     *Options
	backend Backend
	buffers []*Buffer
	free    chan *Buffer
}

// NewCollection creates the buffers on the selected backend.
// ErrBackendUnavailable is returned when the backend is not registered
// and emulation is not allowed.
func NewCollection(opt *Options) (*Collection, error) {
	if opt == nil {
		opt = &DefaultOptions
	}
	if err := CheckOptions(opt); err != nil {
		return nil, err
	}

	f, ok := backendFactory(opt.Backend)
	if !ok {
		if !opt.Emulated {
			return nil, errors.Wrapf(ErrBackendUnavailable, "%q (available: %v)", opt.Backend, Backends())
		}
		f, _ = backendFactory(CPU)
	}

	backend, err := f(opt)
	if err != nil {
		if !opt.Emulated {
			return nil, errors.Wrapf(ErrBackendUnavailable, "%q: %s", opt.Backend, err)
		}
		if backend, err = newCPUBackend(opt); err != nil {
			return nil, err
		}
	}

	c := &Collection{
		opt:     opt,
		backend: backend,
		buffers: make([]*Buffer, opt.NumBuffers),
		free:    make(chan *Buffer, opt.NumBuffers),
	}
	for i := range c.buffers {
		c.buffers[i] = newBuffer(backend, opt.BufferSize)
		c.free <- c.buffers[i]
	}
	return c, nil
}

// Backend returns the name of the backend in use.
func (c *Collection) Backend() string { return c.backend.Name() }

// NumBuffers returns the number of buffers.
func (c *Collection) NumBuffers() int { return len(c.buffers) }

// Acquire returns a free buffer, blocking until one is released.
func (c *Collection) Acquire() *Buffer { return <-c.free }

// Release returns a cleared buffer to the collection. Releasing a buffer
// still holding tasks panics, as their resources would be lost.
// Call Buffer.Clear with a recycle function first.
func (c *Collection) Release(b *Buffer) {
	if b.NumTasks() > 0 || b.sent {
		panic("buffer: releasing a buffer not cleared")
	}
	c.free <- b
}

// Close stops the backend. All buffers should be released before.
func (c *Collection) Close() {
	c.backend.Close()
}
