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

package cmd

import (
	"github.com/MarziehLenjani/gem3-mapper/gem3/paired"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// plotTemplateSizes plots the histogram of template lengths.
// The format is decided by the file extension, e.g., .png, .pdf, .svg.
func plotTemplateSizes(sizes *paired.TemplateSizes, file string, bins int) error {
	if len(sizes.Values()) == 0 {
		return errors.New("no template lengths to plot")
	}

	p := plot.New()
	p.Title.Text = "Template lengths of unique concordant pairs"
	p.X.Label.Text = "Template length"
	p.Y.Label.Text = "Pairs"

	h, err := plotter.NewHist(plotter.Values(sizes.Values()), bins)
	if err != nil {
		return errors.Wrap(err, "plot template lengths")
	}
	p.Add(h)

	if err = p.Save(6*vg.Inch, 4*vg.Inch, file); err != nil {
		return errors.Wrapf(err, "save plot: %s", file)
	}
	return nil
}
