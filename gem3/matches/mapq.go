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

package matches

import "github.com/MarziehLenjani/gem3-mapper/gem3/align"

// MaxMapQ is the mapping quality of a unique hit without competitors.
const MaxMapQ = 60

// MapQ scores a hit of the best distance given the second best distance
// and the number of hits sharing the best distance.
func MapQ(best, second int, ties int) uint8 {
	if ties > 1 {
		return 0
	}
	if second == align.DistanceInf {
		return MaxMapQ
	}
	q := 10 * (second - best)
	if q > MaxMapQ {
		q = MaxMapQ
	}
	if q < 0 {
		q = 0
	}
	return uint8(q)
}

// ScoreMapQ sorts the traces by distance and assigns mapping qualities:
// hits of the best distance share the score of MapQ, others get 0.
func (m *Matches) ScoreMapQ() {
	if len(m.traces) == 0 {
		return
	}
	m.SortByDistance()

	best := m.traces[0].Distance
	second := align.DistanceInf
	ties := 0
	for _, t := range m.traces {
		if t.Distance == best {
			ties++
		} else {
			second = t.Distance
			break
		}
	}

	q := MapQ(best, second, ties)
	for _, t := range m.traces {
		if t.Distance == best {
			t.MapQ = q
		} else {
			t.MapQ = 0
		}
	}
}
