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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/MarziehLenjani/gem3-mapper/gem3/paired"
	"github.com/mitchellh/go-homedir"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "verify candidate locations of reads against a reference",
	Long: `verify candidate locations of reads against a reference

Input:
  1. A reference in (gzipped) FASTA format (-r/--ref).
  2. Reads in (gzipped) FASTA or FASTQ format, single-end reads as
     positional arguments or found in a directory (--in-dir), or read
     pairs given with -1/--read1 and -2/--read2.
  3. A tab-delimited candidate table (-C/--candidates) with 6 columns:
       query         read name, without "/1" or "/2" for read pairs
       mate          1 or 2
       seq_id        reference sequence ID
       position      1-based start position in the reference sequence
       strand        + or -
       max_distance  the maximum edit distance, "." for the default one

Output (tab-delimited):
  query, mate, seq_id, start, end, strand, distance, mapq, cigar, kind, pair, tlen

Attentions:
  1. Positions are 1-based.
  2. For read pairs, only the best pair is written when any pair is found.
  3. The order of output records might differ from the input.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}

		verbose := opt.Verbose
		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		// ---------------------------------------------------------------
		// options

		cfg, err := loadConfig(opt.ConfigFile)
		checkError(err)
		overrideConfig(cmd, cfg)

		refFiles := getFlagStringSlice(cmd, "ref")
		if len(refFiles) == 0 {
			checkError(fmt.Errorf("flag -r/--ref needed"))
		}
		for i, file := range refFiles {
			refFiles[i], err = homedir.Expand(file)
			checkError(err)
		}
		candFile := getFlagString(cmd, "candidates")
		if candFile == "" {
			checkError(fmt.Errorf("flag -C/--candidates needed"))
		}
		outFile := getFlagString(cmd, "out-file")
		read1 := getFlagString(cmd, "read1")
		read2 := getFlagString(cmd, "read2")
		inDir := getFlagString(cmd, "in-dir")
		plotFile := getFlagString(cmd, "plot-tlen")
		bins := getFlagPositiveInt(cmd, "bins")

		isPaired := read1 != "" || read2 != ""
		if isPaired && (read1 == "" || read2 == "") {
			checkError(fmt.Errorf("flags -1/--read1 and -2/--read2 should be given together"))
		}

		if outputLog {
			log.Infof("gem3 v%s", VERSION)
			log.Info()
		}

		// ---------------------------------------------------------------
		// input files

		var files []string
		if isPaired {
			files = []string{read1, read2}
		} else if inDir != "" {
			pattern := getFlagString(cmd, "file-regexp")
			reFile, err := regexp.Compile("(?i)" + pattern)
			checkError(err)

			ok, err := pathutil.DirExists(inDir)
			checkError(err)
			if !ok {
				checkError(fmt.Errorf("directory not found: %s", inDir))
			}
			files, err = getFileListFromDir(inDir, reFile, opt.NumCPUs)
			checkError(err)
			if len(files) == 0 {
				checkError(fmt.Errorf("no files matching %s found in %s", pattern, inDir))
			}
		} else {
			files = getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		}

		outFileClean := filepath.Clean(outFile)
		for _, file := range files {
			if !isStdin(file) && filepath.Clean(file) == outFileClean {
				checkError(fmt.Errorf("out file should not be one of the input file"))
			}
		}

		if outputLog {
			if isPaired {
				log.Infof("read pairs: %s, %s", read1, read2)
			} else if len(files) == 1 && isStdin(files[0]) {
				log.Info("no files given, reading from stdin")
			} else {
				log.Infof("%d input file(s) given", len(files))
			}
		}

		// ---------------------------------------------------------------
		// reference and candidates

		if outputLog {
			log.Infof("loading reference from %d file(s) ...", len(refFiles))
		}
		ref, err := loadReference(refFiles)
		checkError(err)
		if outputLog {
			log.Infof("  %d sequences with %d bases loaded", ref.NumSeqs(), ref.TotalLen())
			log.Infof("loading candidates: %s", candFile)
		}

		table, skipped, err := readCandidates(candFile, ref)
		checkError(err)
		if outputLog {
			log.Infof("  candidates of %d queries loaded", len(table))
			if skipped > 0 {
				log.Warningf("  %d candidates of unknown sequences skipped", skipped)
			}
		}

		e, err := newEngine(ref, table, cfg, opt.NumCPUs)
		checkError(err)
		defer e.close()

		if outputLog {
			log.Infof("accelerator backend: %s, buffers: %d", e.buffers.Backend(), e.buffers.NumBuffers())
			log.Info()
			log.Info("verifying ...")
		}

		// ---------------------------------------------------------------
		// output

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		fmt.Fprintf(outfh, "query\tmate\tseq_id\tstart\tend\tstrand\tdistance\tmapq\tcigar\tkind\tpair\ttlen\n")

		var pbs *mpb.Progress
		var bar *mpb.Bar
		if verbose {
			pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(0,
				mpb.PrependDecorators(
					decor.Name("processed queries: ", decor.WC{W: len("processed queries: "), C: decor.DindentRight}),
					decor.CurrentNoUnit("%d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Name("elapsed: ", decor.WC{W: len("elapsed: ")}),
					decor.Elapsed(decor.ET_STYLE_GO),
					decor.OnComplete(decor.Name(""), ". done"),
				),
			)
		}

		var total, mapped, concordant, discordant uint64
		tlens := paired.NewTemplateSizes(paired.DefaultSampleSize)

		output := func(q *query) {
			total++
			if writeQuery(outfh, q, ref) {
				mapped++
			}
			if q.paired {
				if len(q.pm.Concordant()) > 0 {
					concordant++
				} else if len(q.pm.Discordant()) > 0 {
					discordant++
				}
				tlens.Merge(q.pm.TemplateSizes())
				q.pm.TemplateSizes().Reset()
			}
			if verbose {
				bar.Increment()
			}
			recycleQuery(q)
		}

		// ---------------------------------------------------------------
		// verification

		queries := make(chan *query, opt.NumCPUs)
		go func() {
			if isPaired {
				checkError(readPairs(e, read1, read2, queries))
			} else {
				for _, file := range files {
					checkError(readSingle(e, file, queries))
				}
			}
			close(queries)
		}()

		e.run(queries, output)

		if verbose {
			bar.SetTotal(-1, true)
			pbs.Wait()
		}

		// ---------------------------------------------------------------
		// summary

		if outputLog {
			log.Info()
			log.Infof("processed queries: %d", total)
			if total > 0 {
				log.Infof("%.4f%% (%d/%d) queries mapped", float64(mapped)/float64(total)*100, mapped, total)
			}
			if isPaired {
				log.Infof("concordant pairs: %d, discordant pairs: %d", concordant, discordant)
				if tlens.N() > 0 {
					mean, sd := tlens.MeanStdDev()
					log.Infof("template length of %d unique concordant pairs: mean %.1f, sd %.1f, median %.0f",
						tlens.N(), mean, sd, tlens.Quantile(0.5))
				}
			}
			if outFile != "-" {
				log.Infof("results saved to: %s", outFile)
			}
		}

		if plotFile != "" {
			if !isPaired {
				log.Warningf("flag --plot-tlen is ignored for single-end reads")
			} else if tlens.N() == 0 {
				log.Warningf("no unique concordant pairs, no plot is created")
			} else {
				checkError(plotTemplateSizes(tlens, plotFile, bins))
				if outputLog {
					log.Infof("template length histogram saved to: %s", plotFile)
				}
			}
		}
	},
}

// readSingle reads single-end queries from a file.
func readSingle(e *engine, file string, queries chan *query) error {
	reader, err := fastx.NewReader(nil, file, "")
	if err != nil {
		return err
	}
	defer reader.Close()

	var record *fastx.Record
	for {
		record, err = reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		queries <- e.newQuery(record.ID, record.Seq.Seq, nil)
	}
	return nil
}

// readPairs reads read pairs from two files in lockstep.
func readPairs(e *engine, file1, file2 string, queries chan *query) error {
	reader1, err := fastx.NewReader(nil, file1, "")
	if err != nil {
		return err
	}
	defer reader1.Close()
	reader2, err := fastx.NewReader(nil, file2, "")
	if err != nil {
		return err
	}
	defer reader2.Close()

	var r1, r2 *fastx.Record
	var err1, err2 error
	for {
		r1, err1 = reader1.Read()
		r2, err2 = reader2.Read()
		if err1 == io.EOF && err2 == io.EOF {
			break
		}
		if err1 == io.EOF || err2 == io.EOF {
			return fmt.Errorf("unpaired reads: %s and %s have different numbers of records", file1, file2)
		}
		if err1 != nil {
			return err1
		}
		if err2 != nil {
			return err2
		}

		id := pairID(r1.ID)
		if string(id) != string(pairID(r2.ID)) {
			return fmt.Errorf("unpaired reads: %s != %s", r1.ID, r2.ID)
		}
		queries <- e.newQuery(id, r1.Seq.Seq, r2.Seq.Seq)
	}
	return nil
}

func init() {
	RootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringSliceP("ref", "r", []string{},
		formatFlagUsage(`Reference sequence file(s) in (gzipped) FASTA format.`))

	verifyCmd.Flags().StringP("candidates", "C", "",
		formatFlagUsage(`Candidate table, see the details above.`))

	verifyCmd.Flags().StringP("read1", "1", "",
		formatFlagUsage(`Read 1 of read pairs.`))

	verifyCmd.Flags().StringP("read2", "2", "",
		formatFlagUsage(`Read 2 of read pairs.`))

	verifyCmd.Flags().StringP("in-dir", "I", "",
		formatFlagUsage(`Directory containing single-end read files. Directory symlinks are followed.`))

	verifyCmd.Flags().StringP("file-regexp", "", `\.(f[aq]|fast[aq])(\.gz|\.xz|\.zst|\.bz2)?$`,
		formatFlagUsage(`Regular expression for matching read files in -I/--in-dir, case ignored.`))

	verifyCmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of input file list (one file per line). If given, they are appended to files from CLI arguments.`))

	verifyCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports the ".gz" suffix ("-" for stdout).`))

	// alignment
	verifyCmd.Flags().Float64P("max-distance", "e", 0.08,
		formatFlagUsage(`Maximum edit distance, a fraction of the read length if < 1.`))

	verifyCmd.Flags().BoolP("local", "", false,
		formatFlagUsage(`Report local alignments when global ones fail.`))

	// filtering
	verifyCmd.Flags().IntP("max-matches", "n", 5,
		formatFlagUsage(`Maximum number of matches of a read, 0 for no limit. Candidates not able to beat the reported ones are skipped.`))

	verifyCmd.Flags().IntP("cache-size", "", 1024,
		formatFlagUsage(`Maximum number of cached alignments of a read.`))

	verifyCmd.Flags().BoolP("local-fallback", "", false,
		formatFlagUsage(`Try local alignments when global ones fail, but keep them pending.`))

	verifyCmd.Flags().Float64P("min-local-coverage", "", 0.6,
		formatFlagUsage(`Minimum fraction of a read covered by a local alignment.`))

	// paired
	verifyCmd.Flags().StringP("orientation", "", "FR",
		formatFlagUsage(`Orientations of concordant pairs, comma-separated, available: FR, RF, FF, RR.`))

	verifyCmd.Flags().IntP("min-tlen", "", 0,
		formatFlagUsage(`Minimum template length of concordant pairs.`))

	verifyCmd.Flags().IntP("max-tlen", "", 1000,
		formatFlagUsage(`Maximum template length of concordant pairs.`))

	verifyCmd.Flags().BoolP("no-discordant", "", false,
		formatFlagUsage(`Do not report discordant pairs.`))

	verifyCmd.Flags().StringP("plot-tlen", "", "",
		formatFlagUsage(`Plot the histogram of template lengths of unique concordant pairs to a file (.png, .pdf, .svg).`))

	verifyCmd.Flags().IntP("bins", "", 50,
		formatFlagUsage(`Number of bins of the histogram.`))

	// accelerator
	verifyCmd.Flags().StringP("backend", "", "cpu",
		formatFlagUsage(`Accelerator backend for decoding candidates.`))

	verifyCmd.Flags().BoolP("no-emulation", "", false,
		formatFlagUsage(`Do not fall back to the CPU backend when the accelerator backend is unavailable.`))

	verifyCmd.Flags().IntP("buffer-size", "", 1<<14,
		formatFlagUsage(`Capacity of a buffer, in candidates.`))

	verifyCmd.SetUsageTemplate(usageTemplate("-r <ref.fa.gz> -C <candidates.tsv.gz> { [read.fq.gz ...] | -I <dir> | -1 <r1.fq.gz> -2 <r2.fq.gz> } [-o out.tsv.gz]"))
}
