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
	"strconv"
	"strings"
	"sync"

	"github.com/MarziehLenjani/gem3-mapper/gem3/archive"
	"github.com/MarziehLenjani/gem3-mapper/gem3/buffer"
	"github.com/MarziehLenjani/gem3-mapper/gem3/filtering"
	"github.com/MarziehLenjani/gem3-mapper/gem3/matches"
	"github.com/MarziehLenjani/gem3-mapper/gem3/paired"
	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"
)

// candidate is a row of the candidate table.
type candidate struct {
	seqIdx      int
	pos         int // 0-based
	strand      matches.Strand
	maxDistance int // -1 for the bound of the query
}

// candidateTable maps query names to the candidates of both ends.
type candidateTable map[string]*[2][]candidate

// readCandidates reads a tab-delimited candidate table with the columns:
//
//	query, end (1 or 2), seq_id, position (1-based), strand (+/-), max_distance ("." for none)
//
// Rows of unknown sequences are skipped and counted.
func readCandidates(file string, ref *archive.Archive) (candidateTable, int, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "read candidate table: %s", file)
	}
	defer fh.Close()

	table := make(candidateTable, 1024)

	items := make([]string, 6)
	var line string
	var lineNum, skipped int
	var end, pos, md int
	var strand matches.Strand
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		lineNum++
		line = strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "query\t") {
			continue
		}

		items = items[:6]
		stringSplitNByByte(line, '\t', 6, &items)
		if len(items) < 6 {
			return nil, 0, fmt.Errorf("candidate table %s: 6 columns expected at line %d", file, lineNum)
		}

		switch items[1] {
		case "1":
			end = 0
		case "2":
			end = 1
		default:
			return nil, 0, fmt.Errorf("candidate table %s: invalid end at line %d: %s", file, lineNum, items[1])
		}

		seqIdx, ok := ref.Index(items[2])
		if !ok {
			skipped++
			continue
		}

		pos, err = strconv.Atoi(items[3])
		if err != nil || pos < 1 {
			return nil, 0, fmt.Errorf("candidate table %s: invalid position at line %d: %s", file, lineNum, items[3])
		}

		switch items[4] {
		case "+":
			strand = matches.Forward
		case "-":
			strand = matches.Reverse
		default:
			return nil, 0, fmt.Errorf("candidate table %s: invalid strand at line %d: %s", file, lineNum, items[4])
		}

		if items[5] == "." {
			md = -1
		} else {
			md, err = strconv.Atoi(items[5])
			if err != nil {
				return nil, 0, fmt.Errorf("candidate table %s: invalid distance at line %d: %s", file, lineNum, items[5])
			}
		}

		cs, ok := table[items[0]]
		if !ok {
			cs = &[2][]candidate{}
			table[items[0]] = cs
		}
		cs[end] = append(cs[end], candidate{seqIdx: seqIdx, pos: pos - 1, strand: strand, maxDistance: md})
	}
	if err = scanner.Err(); err != nil {
		return nil, 0, errors.Wrapf(err, "read candidate table: %s", file)
	}

	return table, skipped, nil
}

// loadReference reads sequences into an archive.
func loadReference(files []string) (*archive.Archive, error) {
	ref := archive.New()
	var record *fastx.Record
	for _, file := range files {
		reader, err := fastx.NewReader(nil, file, "")
		if err != nil {
			return nil, errors.Wrapf(err, "read reference: %s", file)
		}
		for {
			record, err = reader.Read()
			if err != nil {
				if err == io.EOF {
					break
				}
				reader.Close()
				return nil, errors.Wrapf(err, "read reference: %s", file)
			}
			if err = ref.Add(string(record.ID), record.Seq.Seq); err != nil {
				reader.Close()
				return nil, err
			}
		}
		reader.Close()
	}
	if ref.NumSeqs() == 0 {
		return nil, fmt.Errorf("no sequences in reference files")
	}
	return ref, nil
}

// search is one end of a query, staged in a buffer.
type search struct {
	q      *query
	end    int
	hits   []buffer.Hit
	bounds []int // distance bounds of hits

	truncated bool // some hits were dropped
}

func (s *search) NumDecodeCandidates() int { return len(s.hits) }

func (s *search) reset() {
	s.hits = s.hits[:0]
	s.bounds = s.bounds[:0]
	s.truncated = false
}

// query is a single-end read or a read pair.
type query struct {
	id     []byte
	seqs   [2][]byte
	paired bool

	searches [2]*search

	ms *matches.Matches      // single-end
	pm *paired.PairedMatches // paired-end
}

func (q *query) reset() {
	q.id = q.id[:0]
	q.seqs[0] = q.seqs[0][:0]
	q.seqs[1] = q.seqs[1][:0]
	q.paired = false
	q.searches[0].reset()
	q.searches[1].reset()
	q.ms.Clear()
	q.pm.Clear()
}

// matchesOf returns the collection of an end.
func (q *query) matchesOf(end int) *matches.Matches {
	if !q.paired {
		return q.ms
	}
	if end == 0 {
		return q.pm.End1()
	}
	return q.pm.End2()
}

// tasks returns the tasks of the ends, nil for a missing end.
func (q *query) tasks() (buffer.Task, buffer.Task) {
	if q.paired {
		return q.searches[0], q.searches[1]
	}
	return q.searches[0], nil
}

// truncate drops hits so that both ends fit in a buffer of capacity n.
func (q *query) truncate(n int) {
	s1, s2 := q.searches[0], q.searches[1]
	if !q.paired {
		s1.truncated = len(s1.hits) > n
		s1.hits, s1.bounds = s1.hits[:min(n, len(s1.hits))], s1.bounds[:min(n, len(s1.bounds))]
		return
	}
	n1 := min(len(s1.hits), n/2)
	n2 := min(len(s2.hits), n-n1)
	n1 = min(len(s1.hits), n-n2)
	s1.truncated = len(s1.hits) > n1
	s2.truncated = len(s2.hits) > n2
	s1.hits, s1.bounds = s1.hits[:n1], s1.bounds[:n1]
	s2.hits, s2.bounds = s2.hits[:n2], s2.bounds[:n2]
}

var poolQuery = &sync.Pool{New: func() interface{} {
	q := &query{
		id: make([]byte, 0, 128),
		ms: matches.New(),
		pm: paired.New(),
	}
	for i := range q.searches {
		q.searches[i] = &search{
			q:      q,
			end:    i,
			hits:   make([]buffer.Hit, 0, 64),
			bounds: make([]int, 0, 64),
		}
	}
	return q
}}

// verifier is the state of a verification worker.
type verifier struct {
	cands   *filtering.Candidates
	pattern *filtering.Pattern
}

// engine stages queries in buffers and verifies their candidates.
type engine struct {
	ref   *archive.Archive
	table candidateTable

	align *AlignmentConfig
	fopt  *filtering.Options
	popt  *paired.Options

	buffers   *buffer.Collection
	verifiers chan *verifier
}

func newEngine(ref *archive.Archive, table candidateTable, cfg *Config, threads int) (*engine, error) {
	fopt, popt, bopt, err := cfg.options()
	if err != nil {
		return nil, err
	}
	buffers, err := buffer.NewCollection(bopt)
	if err != nil {
		return nil, err
	}

	if threads < 1 {
		threads = 1
	}
	e := &engine{
		ref:       ref,
		table:     table,
		align:     &cfg.Alignment,
		fopt:      fopt,
		popt:      popt,
		buffers:   buffers,
		verifiers: make(chan *verifier, threads),
	}
	for i := 0; i < threads; i++ {
		e.verifiers <- &verifier{
			cands:   filtering.NewCandidates(fopt, ref),
			pattern: filtering.NewPattern(nil, 0),
		}
	}
	return e, nil
}

func (e *engine) close() {
	close(e.verifiers)
	for v := range e.verifiers {
		v.cands.Close()
	}
	e.buffers.Close()
}

// newQuery creates a query with its candidates.
// seq2 is nil for a single-end read.
func (e *engine) newQuery(id, seq1, seq2 []byte) *query {
	q := poolQuery.Get().(*query)
	q.reset()

	q.id = append(q.id, id...)
	q.seqs[0] = append(q.seqs[0], seq1...)
	if seq2 != nil {
		q.paired = true
		q.seqs[1] = append(q.seqs[1], seq2...)
	}

	cs, ok := e.table[string(q.id)]
	if !ok {
		return q
	}
	for end := 0; end < 2; end++ {
		if end == 1 && !q.paired {
			break
		}
		s := q.searches[end]
		for _, c := range cs[end] {
			if c.pos > buffer.MaxHitPosition {
				continue
			}
			s.hits = append(s.hits, buffer.PackHit(c.seqIdx, c.pos, c.strand))
			s.bounds = append(s.bounds, c.maxDistance)
		}
	}
	return q
}

// recycleQuery returns a query to the pool.
func recycleQuery(q *query) {
	poolQuery.Put(q)
}

// run verifies queries and calls output for each of them in one goroutine.
// Queries are staged in buffers, which are decoded by the backend and
// verified concurrently. Output order is not guaranteed.
func (e *engine) run(queries <-chan *query, output func(*query)) {
	ch := make(chan *query, cap(e.verifiers))
	done := make(chan int)
	go func() {
		for q := range ch {
			output(q)
		}
		done <- 1
	}()

	var wg sync.WaitGroup
	dispatch := func(b *buffer.Buffer) {
		if b.NumTasks() == 0 {
			e.buffers.Release(b)
			return
		}
		b.Send()
		wg.Add(1)
		go func(b *buffer.Buffer) {
			defer wg.Done()
			e.verifyBuffer(b, ch)
		}(b)
	}

	var t1, t2 buffer.Task
	b := e.buffers.Acquire()
	for q := range queries {
		t1, t2 = q.tasks()
		if !b.Fits(t1, t2) {
			if b.NumTasks() > 0 {
				dispatch(b)
				b = e.buffers.Acquire()
			}
			if !b.Fits(t1, t2) {
				log.Warningf("too many candidates for %s, only %d kept", q.id, b.Capacity())
				q.truncate(b.Capacity())
			}
		}

		b.Add(q.searches[0], q.searches[0].hits)
		if q.paired {
			b.Add(q.searches[1], q.searches[1].hits)
		}
	}
	dispatch(b)

	wg.Wait()
	close(ch)
	<-done
}

// verifyBuffer verifies all queries of a sent buffer.
func (e *engine) verifyBuffer(b *buffer.Buffer, ch chan *query) {
	v := <-e.verifiers
	defer func() {
		e.verifiers <- v
	}()

	checkError(b.Receive())

	var s *search
	for i := 0; i < b.NumTasks(); i++ {
		s = b.Task(i).(*search)
		e.verifySearch(v, s, b.Decoded(i))

		// the last end of a query
		if !s.q.paired || s.end == 1 {
			if s.q.paired {
				s.q.pm.FindPairs(e.popt)
			}
			ch <- s.q
		}
	}

	// tasks belong to queries, which are recycled after output
	b.Clear(nil)
	e.buffers.Release(b)
}

// verifySearch verifies the decoded candidates of one end.
func (e *engine) verifySearch(v *verifier, s *search, loci []buffer.Locus) {
	key := s.q.seqs[s.end]
	ms := s.q.matchesOf(s.end)
	maxDistance := e.align.maxDistance(len(key))

	v.pattern.Reset(key, maxDistance)

	var begin, end, base int
	for j, l := range loci {
		if l.SeqIdx >= e.ref.NumSeqs() {
			continue
		}
		begin = l.Position
		end = min(e.ref.SeqLen(l.SeqIdx), begin+len(key))
		if end <= begin {
			continue
		}
		base = e.ref.Offset(l.SeqIdx)
		v.cands.AddRegion(l.SeqIdx, l.Strand, base+begin, base+end, len(key), 0, s.bounds[j])
	}

	v.cands.AlignCandidates(v.pattern, false, e.align.Local, ms)
	v.cands.Clear()

	ms.MaxCompleteStratum = completeStratum(maxDistance, s, ms)

	ms.ScoreMapQ()
}

// completeStratum returns the distance below which all matches of the
// candidates are found. It is 0 when candidates were dropped or pruned.
func completeStratum(maxDistance int, s *search, ms *matches.Matches) int {
	if s.truncated || ms.Metrics.LimitedCandidates {
		return 0
	}
	bound := maxDistance
	for _, b := range s.bounds {
		if b >= 0 && b < bound {
			bound = b
		}
	}
	return bound + 1
}

// writeQuery writes the matches of a query, and returns whether it is mapped.
//
// Columns: query, mate, seq_id, start (1-based), end, strand, distance, mapq,
// cigar, kind, pair, tlen.
func writeQuery(w *bufio.Writer, q *query, ref *archive.Archive) bool {
	writeTrace := func(end int, t *matches.MatchTrace, pair string, tlen int) {
		_, offset, _ := ref.Locate(t.Begin())
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%s\t%d\t%d\t%s\t%s\t%s\t%d\n",
			q.id, end+1, ref.ID(t.SeqIdx), offset+1, offset+t.Alignment.EffectiveLength,
			t.Strand, t.Distance, t.MapQ, t.Alignment.Cigar.SAM(), t.Kind, pair, tlen)
	}

	if !q.paired {
		for _, t := range q.ms.Traces() {
			writeTrace(0, t, "-", 0)
		}
		return q.ms.IsMapped()
	}

	if p, ok := q.pm.Best(); ok {
		writeTrace(0, p.End1, p.Kind.String(), p.TemplateLength)
		writeTrace(1, p.End2, p.Kind.String(), p.TemplateLength)
		return true
	}

	var mapped bool
	for end := 0; end < 2; end++ {
		for _, t := range q.matchesOf(end).Traces() {
			writeTrace(end, t, "-", 0)
			mapped = true
		}
	}
	return mapped
}
