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

// Package filtering verifies the candidate regions of a query: it sorts
// them by their distance bounds, prunes the ones that cannot beat accepted
// matches, reuses results of identical loci, aligns the rest, and commits
// accepted traces to the match collection of the query.
package filtering

import (
	"fmt"

	"github.com/shenwei356/wfa"
)

// Options contains the options of candidate verification.
type Options struct {
	// The collection is "full" when it has this number of traces,
	// then candidates not able to beat the worst one are skipped.
	// <= 0 for no limit.
	MaxReportedMatches int

	CacheSize int // the maximum number of cached traces of a query

	// Try a gap-affine local alignment when the global one fails.
	LocalFallback bool
	// The minimum fraction of the key covered by a local alignment.
	MinLocalCoverage float64
	// Penalties of the local alignment.
	Penalties *wfa.Penalties
}

// DefaultOptions is the default Options.
var DefaultOptions = Options{
	MaxReportedMatches: 5,
	CacheSize:          1024,

	LocalFallback:    false,
	MinLocalCoverage: 0.6,
	Penalties: &wfa.Penalties{
		Mismatch: 4,
		GapOpen:  6,
		GapExt:   2,
	},
}

// CheckOptions checks the options.
func CheckOptions(opt *Options) error {
	if opt.CacheSize < 1 {
		return fmt.Errorf("filtering: the cache size should be positive: %d", opt.CacheSize)
	}
	if opt.MinLocalCoverage <= 0 || opt.MinLocalCoverage > 1 {
		return fmt.Errorf("filtering: the minimum local coverage should be in (0, 1]: %f", opt.MinLocalCoverage)
	}
	if opt.LocalFallback && opt.Penalties == nil {
		return fmt.Errorf("filtering: penalties are needed for local alignment")
	}
	return nil
}
