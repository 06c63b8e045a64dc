// Package graph collects global edges into a per-gene adjacency list and
// writes it in MCL matrix or edge-list text format.
package graph

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/cvnet/edge"
)

// Format selects the output encoding.
type Format string

const (
	// FormatMCL is the MCL native matrix format.
	FormatMCL Format = "mcl"
	// FormatEdgeList is one "row\tcol\tweight" line per stored edge.
	FormatEdgeList Format = "tsv"
)

// ErrUnknownFormat is returned for unsupported format names.
var ErrUnknownFormat = errors.New("unknown graph format")

// ParseFormat resolves a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatMCL, "":
		return FormatMCL, nil
	case FormatEdgeList, "edgelist":
		return FormatEdgeList, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Item is one adjacency entry.
type Item struct {
	Col    int
	Weight float32
}

// Graph is an adjacency list over global gene ids.
type Graph struct {
	rows [][]Item
}

// New returns an empty graph over n genes.
func New(n int) *Graph {
	return &Graph{rows: make([][]Item, n)}
}

// Size returns the number of genes.
func (g *Graph) Size() int { return len(g.rows) }

// Row returns the items of row i.
func (g *Graph) Row(i int) []Item { return g.rows[i] }

// EdgeCount returns the number of stored items.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, r := range g.rows {
		n += len(r)
	}
	return n
}

// SortRows orders every row by column, in parallel.
func (g *Graph) SortRows() {
	workers := runtime.GOMAXPROCS(0)
	var eg errgroup.Group
	eg.SetLimit(workers)
	chunk := (len(g.rows) + workers - 1) / max(workers, 1)
	for lo := 0; lo < len(g.rows); lo += chunk {
		hi := min(lo+chunk, len(g.rows))
		eg.Go(func() error {
			for _, r := range g.rows[lo:hi] {
				slices.SortStableFunc(r, func(a, b Item) int { return cmp.Compare(a.Col, b.Col) })
			}
			return nil
		})
	}
	_ = eg.Wait()
}

func formatWeight(w float32) string {
	return strconv.FormatFloat(float64(w), 'f', 3, 32)
}

// WriteMCL writes g in MCL matrix format with three-decimal weights.
func (g *Graph) WriteMCL(w io.Writer) error {
	bw := bufio.NewWriter(w)
	n := len(g.rows)
	fmt.Fprintf(bw, "(mclheader\nmcltype matrix\ndimensions %dx%d\n)\n\n(mclmatrix\nbegin\n\n", n, n)
	for i, r := range g.rows {
		bw.WriteString(strconv.Itoa(i))
		bw.WriteString("    ")
		for _, it := range r {
			bw.WriteString(strconv.Itoa(it.Col))
			bw.WriteByte(':')
			bw.WriteString(formatWeight(it.Weight))
			bw.WriteByte(' ')
		}
		bw.WriteString("$\n")
	}
	bw.WriteString(")\n")
	return bw.Flush()
}

// WriteEdgeList writes one "row\tcol\tweight" line per item.
func (g *Graph) WriteEdgeList(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, r := range g.rows {
		for _, it := range r {
			bw.WriteString(strconv.Itoa(i))
			bw.WriteByte('\t')
			bw.WriteString(strconv.Itoa(it.Col))
			bw.WriteByte('\t')
			bw.WriteString(strconv.FormatFloat(float64(it.Weight), 'g', 6, 32))
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

// Write encodes g in format f.
func (g *Graph) Write(w io.Writer, f Format) error {
	switch f {
	case FormatMCL, "":
		return g.WriteMCL(w)
	case FormatEdgeList:
		return g.WriteEdgeList(w)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Assembler accumulates edges from concurrent workers.
type Assembler struct {
	mu     sync.Mutex
	g      *Graph
	format Format
	pushed int
}

// NewAssembler returns an assembler for n genes writing format.
func NewAssembler(n int, format Format) *Assembler {
	return &Assembler{g: New(n), format: format}
}

// Push appends edges. Undirected edges are stored in both directions.
// Edges with an endpoint outside the graph are rejected before any is stored.
func (a *Assembler) Push(edges []edge.Edge, directed bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.g.rows)
	for _, e := range edges {
		if e.Row < 0 || e.Row >= n || e.Col < 0 || e.Col >= n {
			return fmt.Errorf("graph: edge (%d,%d) outside %d genes", e.Row, e.Col, n)
		}
	}
	for _, e := range edges {
		a.g.rows[e.Row] = append(a.g.rows[e.Row], Item{Col: e.Col, Weight: e.Weight})
		if !directed {
			a.g.rows[e.Col] = append(a.g.rows[e.Col], Item{Col: e.Row, Weight: e.Weight})
		}
	}
	a.pushed += len(edges)
	return nil
}

// Pushed returns the number of edges accepted so far.
func (a *Assembler) Pushed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pushed
}

// Graph sorts the rows and returns the assembled graph.
func (a *Assembler) Graph() *Graph {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.g.SortRows()
	return a.g
}

// Finalize sorts the rows and writes the graph.
func (a *Assembler) Finalize(w io.Writer) error {
	return a.Graph().Write(w, a.format)
}
