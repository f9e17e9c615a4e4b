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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MarziehLenjani/gem3-mapper/gem3/align"
	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
)

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "align a query against a text with bounded edit distance",
	Long: `align a query against a text with bounded edit distance

Input:
  The query and the text can be plain sequences or (gzipped) FASTA/FASTQ
  files, the first record of which is used.

Output (tab-delimited):
  query, text, distance, effective length, text begin (0-based), CIGAR, SAM CIGAR

Methods:
  ond  the O(ND) difference algorithm, bounded by -d/--max-distance.
  nw   Needleman-Wunsch with unit costs and a full matrix.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
			defer fhLog.Close()
		}

		if len(args) != 2 {
			checkError(fmt.Errorf("two arguments needed: <query> <text>"))
		}
		method := strings.ToLower(getFlagString(cmd, "method"))
		maxDistance := getFlagInt(cmd, "max-distance")
		check := getFlagBool(cmd, "check")
		showAlignment := getFlagBool(cmd, "show-alignment")

		key, err := readSeqArg(args[0])
		checkError(err)
		text, err := readSeqArg(args[1])
		checkError(err)

		if maxDistance < 0 {
			maxDistance = len(key) + len(text)
		}

		outfh := bufio.NewWriter(os.Stdout)
		defer outfh.Flush()

		switch method {
		case "ond":
			alg := align.NewAligner(nil)
			aln, ok := alg.Align(key, text, maxDistance)
			if !ok {
				fmt.Fprintf(outfh, "%s\t%s\t*\t*\t*\t*\t*\n", args[0], args[1])
				if opt.Verbose {
					log.Warningf("no alignment within a distance of %d", maxDistance)
				}
				break
			}
			fmt.Fprintf(outfh, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n", args[0], args[1],
				aln.Score, aln.EffectiveLength, aln.TextBegin, aln.Cigar, aln.Cigar.SAM())
			if showAlignment {
				checkError(printAlignment(outfh, aln.Cigar, key, text))
			}

			if check {
				nw := align.NewNWAligner(nil)
				r := nw.Global(key, text)
				if r.Distance != aln.Score {
					checkError(fmt.Errorf("distances differ: %d (ond) != %d (nw)", aln.Score, r.Distance))
				}
				align.RecycleNWResult(r)
				d, err := aln.Cigar.Distance(key, text)
				checkError(err)
				if d != aln.Score {
					checkError(fmt.Errorf("the CIGAR %s describes a distance of %d, not %d", aln.Cigar, d, aln.Score))
				}
				if opt.Verbose {
					log.Info("checked with the Needleman-Wunsch aligner")
				}
			}
		case "nw":
			nw := align.NewNWAligner(&align.NWOptions{SaveAlignments: showAlignment})
			r := nw.Global(key, text)
			fmt.Fprintf(outfh, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n", args[0], args[1],
				r.Distance, r.Cigar.TextLen(), 0, r.Cigar, r.Cigar.SAM())
			if showAlignment {
				fmt.Fprintf(outfh, "%s\n%s\n%s\n", r.AlignA, r.AlignM, r.AlignB)
			}
			align.RecycleNWResult(r)
		default:
			checkError(fmt.Errorf("invalid method: %s, available: ond, nw", method))
		}
	},
}

func init() {
	RootCmd.AddCommand(alignCmd)

	alignCmd.Flags().StringP("method", "m", "ond",
		formatFlagUsage(`Alignment method: ond or nw.`))

	alignCmd.Flags().IntP("max-distance", "d", -1,
		formatFlagUsage(`Maximum edit distance for the ond method, -1 for no limit.`))

	alignCmd.Flags().BoolP("check", "", false,
		formatFlagUsage(`Check the result of the ond method with the nw method.`))

	alignCmd.Flags().BoolP("show-alignment", "a", false,
		formatFlagUsage(`Show the alignment.`))

	alignCmd.SetUsageTemplate(usageTemplate("<query> <text>"))
}

// readSeqArg returns the sequence of an argument: the first record of a
// file if it exists, or the argument itself.
func readSeqArg(arg string) ([]byte, error) {
	ok, err := pathutil.Exists(arg)
	if err != nil {
		return nil, errors.Wrap(err, arg)
	}
	if !ok {
		return []byte(arg), nil
	}

	reader, err := fastx.NewReader(nil, arg, "")
	if err != nil {
		return nil, errors.Wrap(err, arg)
	}
	defer reader.Close()

	record, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("no sequences in file: %s", arg)
		}
		return nil, errors.Wrap(err, arg)
	}
	s := make([]byte, len(record.Seq.Seq))
	copy(s, record.Seq.Seq)
	return s, nil
}

// printAlignment prints the aligned strings with a match line.
func printAlignment(w io.Writer, cigar align.Cigar, key, text []byte) error {
	a, b, err := cigar.Apply(key, text)
	if err != nil {
		return err
	}
	m := make([]byte, len(a))
	for i := range a {
		if a[i] == b[i] {
			m[i] = '|'
		} else {
			m[i] = ' '
		}
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n%s\n", a, m, b)
	return err
}
