// Package geneindex assigns every genome of a run a contiguous block of
// global gene ids and persists that assignment as a small text table.
package geneindex

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hupe1980/cvnet/persistence"
)

// ErrMalformed reports an unreadable gene index table.
var ErrMalformed = errors.New("malformed gene index")

var tableHeader = []string{"genome", "start", "size"}

// Entry is the block of one genome.
type Entry struct {
	Genome string
	Start  int
	Size   int
}

// Index maps genomes to their global gene offsets.
type Index struct {
	entries []Entry
	byName  map[string]int
	total   int
}

// Build assigns offsets in genome list order.
func Build(genomes []string, counts []int) (*Index, error) {
	if len(genomes) != len(counts) {
		return nil, fmt.Errorf("geneindex: %d genomes but %d counts", len(genomes), len(counts))
	}
	entries := make([]Entry, len(genomes))
	start := 0
	for i, g := range genomes {
		if counts[i] < 0 {
			return nil, fmt.Errorf("geneindex: negative gene count %d for %q", counts[i], g)
		}
		entries[i] = Entry{Genome: g, Start: start, Size: counts[i]}
		start += counts[i]
	}
	return newIndex(entries)
}

func newIndex(entries []Entry) (*Index, error) {
	ix := &Index{entries: entries, byName: make(map[string]int, len(entries))}
	for i, e := range entries {
		if _, dup := ix.byName[e.Genome]; dup {
			return nil, fmt.Errorf("geneindex: duplicate genome %q", e.Genome)
		}
		ix.byName[e.Genome] = i
		ix.total = max(ix.total, e.Start+e.Size)
	}
	return ix, nil
}

// Lookup returns the block of genome.
func (ix *Index) Lookup(genome string) (Entry, bool) {
	i, ok := ix.byName[genome]
	if !ok {
		return Entry{}, false
	}
	return ix.entries[i], true
}

// Offset returns the first global id of genome.
func (ix *Index) Offset(genome string) (int, bool) {
	e, ok := ix.Lookup(genome)
	return e.Start, ok
}

// Total returns the number of global gene ids.
func (ix *Index) Total() int { return ix.total }

// Len returns the number of genomes.
func (ix *Index) Len() int { return len(ix.entries) }

// Entries returns the blocks in table order.
func (ix *Index) Entries() []Entry { return ix.entries }

// Covers reports whether every genome is in the index.
func (ix *Index) Covers(genomes []string) bool {
	for _, g := range genomes {
		if _, ok := ix.byName[g]; !ok {
			return false
		}
	}
	return true
}

// Write encodes the index as a tab-separated table with a header row.
func (ix *Index) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(tableHeader); err != nil {
		return err
	}
	for _, e := range ix.entries {
		if err := cw.Write([]string{e.Genome, strconv.Itoa(e.Start), strconv.Itoa(e.Size)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read decodes a table written by Write. Blocks must not overlap.
func Read(r io.Reader) (*Index, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = len(tableHeader)
	cr.ReuseRecord = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	for i, h := range tableHeader {
		if head[i] != h {
			return nil, fmt.Errorf("%w: header %q", ErrMalformed, head)
		}
	}

	var entries []Entry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		start, err1 := strconv.Atoi(rec[1])
		size, err2 := strconv.Atoi(rec[2])
		if err := errors.Join(err1, err2); err != nil || start < 0 || size < 0 {
			return nil, fmt.Errorf("%w: row %q", ErrMalformed, rec)
		}
		entries = append(entries, Entry{Genome: rec[0], Start: start, Size: size})
	}

	if err := checkDisjoint(entries); err != nil {
		return nil, err
	}
	ix, err := newIndex(entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return ix, nil
}

func checkDisjoint(entries []Entry) error {
	// Tables are written in offset order; anything else is rejected.
	next := 0
	for _, e := range entries {
		if e.Start < next {
			return fmt.Errorf("%w: %q starts at %d inside previous block", ErrMalformed, e.Genome, e.Start)
		}
		next = e.Start + e.Size
	}
	return nil
}

// Save writes the index to path atomically.
func Save(path string, ix *Index) error {
	return persistence.SaveToFile(path, ix.Write)
}

// Load reads an index from path.
func Load(path string) (*Index, error) {
	var ix *Index
	err := persistence.LoadFromFile(path, func(r io.Reader) (err error) {
		ix, err = Read(r)
		return err
	})
	return ix, err
}

// CountFunc returns the gene count of a genome.
type CountFunc func(ctx context.Context, genome string) (int, error)

// LoadOrRebuild reuses the table at path when it covers every genome and
// otherwise rebuilds the index from scratch and saves it. An empty path
// always rebuilds without saving. rebuilt reports which branch ran.
func LoadOrRebuild(ctx context.Context, path string, genomes []string, count CountFunc) (ix *Index, rebuilt bool, err error) {
	if path != "" {
		ix, err := Load(path)
		if err == nil && ix.Covers(genomes) {
			return ix, false, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) && !errors.Is(err, ErrMalformed) {
			return nil, false, err
		}
	}

	counts := make([]int, len(genomes))
	for i, g := range genomes {
		if counts[i], err = count(ctx, g); err != nil {
			return nil, false, fmt.Errorf("geneindex: count %q: %w", g, err)
		}
	}
	ix, err = Build(genomes, counts)
	if err != nil {
		return nil, false, err
	}
	if path != "" {
		if err := Save(path, ix); err != nil {
			return nil, false, err
		}
	}
	return ix, true, nil
}
