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

package paired

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultSampleSize is the default number of template sizes kept.
const DefaultSampleSize = 1 << 14

// TemplateSizes is a bounded random sample of observed template sizes.
// It is not safe for concurrent use.
type TemplateSizes struct {
	size   int
	n      int // all observed values
	values []float64
	r      *rand.Rand

	sorted []float64
	dirty  bool
}

// NewTemplateSizes creates a sample keeping at most size values.
func NewTemplateSizes(size int) *TemplateSizes {
	if size < 1 {
		size = DefaultSampleSize
	}
	return &TemplateSizes{
		size:   size,
		values: make([]float64, 0, 1024),
		r:      rand.New(rand.NewSource(1)),
	}
}

// Add observes a template size, with reservoir sampling when full.
func (s *TemplateSizes) Add(v int) {
	s.n++
	s.dirty = true
	if len(s.values) < s.size {
		s.values = append(s.values, float64(v))
		return
	}
	if i := s.r.Intn(s.n); i < s.size {
		s.values[i] = float64(v)
	}
}

// N returns the number of observed values.
func (s *TemplateSizes) N() int { return s.n }

// Values returns the sampled values.
func (s *TemplateSizes) Values() []float64 { return s.values }

// MeanStdDev returns the mean and the standard deviation of the sample.
func (s *TemplateSizes) MeanStdDev() (float64, float64) {
	if len(s.values) == 0 {
		return 0, 0
	}
	if len(s.values) == 1 {
		return s.values[0], 0
	}
	return stat.MeanStdDev(s.values, nil)
}

// Quantile returns the empirical p-quantile of the sample.
func (s *TemplateSizes) Quantile(p float64) float64 {
	if len(s.values) == 0 {
		return 0
	}
	if s.dirty {
		s.sorted = append(s.sorted[:0], s.values...)
		sort.Float64s(s.sorted)
		s.dirty = false
	}
	return stat.Quantile(p, stat.Empirical, s.sorted, nil)
}

// Reset removes all values.
func (s *TemplateSizes) Reset() {
	s.n = 0
	s.values = s.values[:0]
	s.sorted = s.sorted[:0]
	s.dirty = false
}

// Merge adds all sampled values of another sample.
func (s *TemplateSizes) Merge(o *TemplateSizes) {
	for _, v := range o.values {
		s.Add(int(v))
	}
}
