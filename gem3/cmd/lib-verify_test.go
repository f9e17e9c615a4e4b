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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MarziehLenjani/gem3-mapper/gem3/archive"
	"github.com/MarziehLenjani/gem3-mapper/gem3/matches"
	"github.com/MarziehLenjani/gem3-mapper/gem3/paired"
	"github.com/MarziehLenjani/gem3-mapper/gem3/util"
)

var testRef = []byte("GCTAAAGACAATTACATAACATACACGTCAGCACGAAACTTGTTGGCCCAGTGTGAATCGCTTAAGGGTTAAGTAAGTGTGATGCATACGCCTTTACTTGCTGTGTCCACCCCATCGGACTGGCATTTTTATTACACTCAGAAACAGAACTCGGGTAATTTTGACAGGTCACGCAGAGGCGCGCCCTCCTGAAGTGCGTGGACACTCGCTATGAATCTCTGATTTACCCACTCTGCCAAACTCCAGCGCGGTCAGTTCCATCACCCTAAGTAACCGAATAATGCGTTCGCTCTATTGACT")

func testArchive(t *testing.T) *archive.Archive {
	ref := archive.New()
	if err := ref.Add("chr0", []byte("ACGTACGTACGTACGTACGT")); err != nil {
		t.Fatal(err)
	}
	if err := ref.Add("chr1", testRef); err != nil {
		t.Fatal(err)
	}
	return ref
}

func writeTemp(t *testing.T, name, content string) string {
	file := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return file
}

func TestReadCandidates(t *testing.T) {
	ref := testArchive(t)

	file := writeTemp(t, "cands.tsv", `query	end	seq_id	position	strand	max_distance
# comment
r1	1	chr1	21	+	.
r1	2	chr1	201	-	3
r1	1	chrX	5	+	.
r2	1	chr0	1	-	0
`)

	table, skipped, err := readCandidates(file, ref)
	if err != nil {
		t.Error(err)
		return
	}
	if skipped != 1 {
		t.Errorf("skipped: expected 1, returned %d", skipped)
	}
	if len(table) != 2 {
		t.Errorf("queries: expected 2, returned %d", len(table))
		return
	}

	cs := table["r1"]
	if len(cs[0]) != 1 || len(cs[1]) != 1 {
		t.Errorf("unexpected candidates of r1: %v", *cs)
		return
	}
	if c := cs[0][0]; c.seqIdx != 1 || c.pos != 20 || c.strand != matches.Forward || c.maxDistance != -1 {
		t.Errorf("unexpected candidate: %+v", c)
	}
	if c := cs[1][0]; c.pos != 200 || c.strand != matches.Reverse || c.maxDistance != 3 {
		t.Errorf("unexpected candidate: %+v", c)
	}
	if c := table["r2"][0][0]; c.seqIdx != 0 || c.pos != 0 || c.maxDistance != 0 {
		t.Errorf("unexpected candidate: %+v", c)
	}

	for i, content := range []string{
		"r1\t3\tchr1\t1\t+\t.\n",
		"r1\t1\tchr1\t0\t+\t.\n",
		"r1\t1\tchr1\t1\t*\t.\n",
		"r1\t1\tchr1\t1\t+\tx\n",
		"r1\t1\tchr1\n",
	} {
		file = writeTemp(t, "bad.tsv", content)
		if _, _, err = readCandidates(file, ref); err == nil {
			t.Errorf("[#%d] error expected", i)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Error(err)
		return
	}
	if cfg.Alignment.maxDistance(100) != 8 {
		t.Errorf("default max distance: expected 8, returned %d", cfg.Alignment.maxDistance(100))
	}

	file := writeTemp(t, "gem3.toml", `
[alignment]
max_distance = 3.0

[filtering]
max_reported_matches = 2

[paired]
concordant = "FR,RF"
max_template_length = 600
`)
	cfg, err = loadConfig(file)
	if err != nil {
		t.Error(err)
		return
	}
	if cfg.Alignment.maxDistance(100) != 3 {
		t.Errorf("max distance: expected 3, returned %d", cfg.Alignment.maxDistance(100))
	}

	fopt, popt, bopt, err := cfg.options()
	if err != nil {
		t.Error(err)
		return
	}
	if fopt.MaxReportedMatches != 2 || fopt.CacheSize != 1024 {
		t.Errorf("unexpected filtering options: %+v", fopt)
	}
	if len(popt.ConcordantOrientations) != 2 || popt.ConcordantOrientations[1] != paired.RF {
		t.Errorf("unexpected concordant orientations: %v", popt.ConcordantOrientations)
	}
	if popt.MaxTemplateLength != 600 || !popt.DiscordantSearch {
		t.Errorf("unexpected paired options: %+v", popt)
	}
	if bopt.Backend != "cpu" {
		t.Errorf("unexpected backend: %s", bopt.Backend)
	}

	file = writeTemp(t, "bad.toml", "[paired]\nconcordant = \"XY\"\n")
	cfg, err = loadConfig(file)
	if err != nil {
		t.Error(err)
		return
	}
	if _, _, _, err = cfg.options(); err == nil {
		t.Errorf("error expected for invalid orientations")
	}

	if _, err = loadConfig(writeTemp(t, "broken.toml", "[alignment\n")); err == nil {
		t.Errorf("error expected for broken file")
	}
}

func TestPairID(t *testing.T) {
	for i, c := range [][2]string{
		{"read/1", "read"},
		{"read/2", "read"},
		{"read/3", "read/3"},
		{"read", "read"},
		{"/1", "/1"},
	} {
		if s := string(pairID([]byte(c[0]))); s != c[1] {
			t.Errorf("[#%d] expected %s, returned %s", i, c[1], s)
		}
	}
}

// runEngine verifies queries and returns them, keyed by ID.
func runEngine(t *testing.T, e *engine, qs []*query) map[string]*query {
	ch := make(chan *query, len(qs))
	for _, q := range qs {
		ch <- q
	}
	close(ch)

	res := make(map[string]*query, len(qs))
	e.run(ch, func(q *query) {
		res[string(q.id)] = q
	})
	if len(res) != len(qs) {
		t.Errorf("queries: expected %d, returned %d", len(qs), len(res))
	}
	return res
}

func TestEngineSingle(t *testing.T) {
	ref := testArchive(t)
	table := candidateTable{
		"r1": {
			{
				{seqIdx: 1, pos: 20, strand: matches.Forward, maxDistance: -1},
				{seqIdx: 1, pos: 100, strand: matches.Forward, maxDistance: -1},
			},
		},
	}

	e, err := newEngine(ref, table, DefaultConfig(), 2)
	if err != nil {
		t.Error(err)
		return
	}
	defer e.close()

	read := append([]byte{}, testRef[20:50]...)
	read[10] = 'N'
	res := runEngine(t, e, []*query{
		e.newQuery([]byte("r1"), read, nil),
		e.newQuery([]byte("r2"), read, nil), // no candidates
	})

	q := res["r1"]
	if q == nil {
		return
	}
	traces := q.ms.Traces()
	if len(traces) != 1 {
		t.Errorf("traces: expected 1, returned %d", len(traces))
		return
	}
	tr := traces[0]
	if tr.SeqIdx != 1 || tr.Begin() != ref.Offset(1)+20 || tr.Distance != 1 {
		t.Errorf("unexpected trace: %s", tr)
	}
	if q.ms.MaxCompleteStratum != 3 {
		t.Errorf("max complete stratum: expected 3, returned %d", q.ms.MaxCompleteStratum)
	}
	if tr.MapQ != matches.MaxMapQ {
		t.Errorf("mapq: expected %d, returned %d", matches.MaxMapQ, tr.MapQ)
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if !writeQuery(w, q, ref) {
		t.Errorf("r1 should be mapped")
	}
	if writeQuery(w, res["r2"], ref) {
		t.Errorf("r2 should not be mapped")
	}
	w.Flush()

	expected := "r1\t1\tchr1\t21\t50\t+\t1\t60\t30M\tglobal\t-\t0\n"
	if buf.String() != expected {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestEnginePaired(t *testing.T) {
	ref := testArchive(t)
	table := candidateTable{
		"p1": {
			{{seqIdx: 1, pos: 20, strand: matches.Forward, maxDistance: -1}},
			{{seqIdx: 1, pos: 200, strand: matches.Reverse, maxDistance: -1}},
		},
	}

	e, err := newEngine(ref, table, DefaultConfig(), 2)
	if err != nil {
		t.Error(err)
		return
	}
	defer e.close()

	res := runEngine(t, e, []*query{
		e.newQuery([]byte("p1"), testRef[20:50], util.RC(testRef[200:230])),
	})
	q := res["p1"]
	if q == nil {
		return
	}

	p, ok := q.pm.Best()
	if !ok {
		t.Errorf("a pair expected")
		return
	}
	if p.Kind != paired.Concordant || p.Orientation != paired.FR {
		t.Errorf("unexpected pair: %s", p)
	}
	if p.TemplateLength != 210 || p.Distance != 0 {
		t.Errorf("unexpected pair: %s", p)
	}
	if q.pm.TemplateSizes().N() != 1 {
		t.Errorf("template sizes: expected 1, returned %d", q.pm.TemplateSizes().N())
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	writeQuery(w, q, ref)
	w.Flush()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("lines: expected 2, returned %d", len(lines))
		return
	}
	if !strings.HasPrefix(lines[1], "p1\t2\tchr1\t201\t230\t-\t0\t") ||
		!strings.HasSuffix(lines[1], "\tconcordant\t210") {
		t.Errorf("unexpected record: %s", lines[1])
	}
}

func TestQueryTruncate(t *testing.T) {
	q := poolQuery.Get().(*query)
	q.reset()
	q.paired = true
	for i := 0; i < 10; i++ {
		q.searches[0].hits = append(q.searches[0].hits, 0)
		q.searches[0].bounds = append(q.searches[0].bounds, -1)
	}
	for i := 0; i < 2; i++ {
		q.searches[1].hits = append(q.searches[1].hits, 0)
		q.searches[1].bounds = append(q.searches[1].bounds, -1)
	}

	q.truncate(6)
	if n1, n2 := len(q.searches[0].hits), len(q.searches[1].hits); n1 != 4 || n2 != 2 {
		t.Errorf("unexpected hits after truncation: %d, %d", n1, n2)
	}
	if len(q.searches[0].bounds) != 4 {
		t.Errorf("bounds should be truncated along with hits")
	}
	if !q.searches[0].truncated || q.searches[1].truncated {
		t.Errorf("unexpected truncation flags")
	}

	ms := matches.New()
	if d := completeStratum(2, q.searches[0], ms); d != 0 {
		t.Errorf("max complete stratum of a truncated search: expected 0, returned %d", d)
	}
	if d := completeStratum(2, q.searches[1], ms); d != 3 {
		t.Errorf("max complete stratum: expected 3, returned %d", d)
	}
	q.searches[1].bounds[0] = 1
	if d := completeStratum(2, q.searches[1], ms); d != 2 {
		t.Errorf("max complete stratum with a tighter bound: expected 2, returned %d", d)
	}
	ms.Metrics.LimitedCandidates = true
	if d := completeStratum(2, q.searches[1], ms); d != 0 {
		t.Errorf("max complete stratum with pruned candidates: expected 0, returned %d", d)
	}
	recycleQuery(q)
}
