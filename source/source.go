package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hupe1980/cvnet/cva"
)

var (
	// ErrUnknownGenome is returned for a genome a source cannot provide.
	ErrUnknownGenome = errors.New("unknown genome")
	// ErrInvalidK is returned for a k outside the method's range.
	ErrInvalidK = errors.New("k out of range")
	// ErrUnknownMethod is returned for an unregistered composition-vector method.
	ErrUnknownMethod = errors.New("unknown cv method")
)

// Source computes the composition vectors of a genome.
type Source interface {
	// Method names the composition-vector method; it is part of artifact names.
	Method() string
	// Vectors returns one vector per gene, in gene order.
	Vectors(ctx context.Context, genome string, k int) ([]cva.Vector, error)
	// GeneCount returns the number of genes without computing vectors.
	GeneCount(ctx context.Context, genome string) (int, error)
}

// Memory is a Source over precomputed vectors; k is ignored.
type Memory struct {
	method  string
	genomes map[string][]cva.Vector
}

// NewMemory returns a Memory source reporting method as its name.
func NewMemory(method string, genomes map[string][]cva.Vector) *Memory {
	return &Memory{method: method, genomes: genomes}
}

func (m *Memory) Method() string { return m.method }

func (m *Memory) Vectors(_ context.Context, genome string, _ int) ([]cva.Vector, error) {
	v, ok := m.genomes[genome]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenome, genome)
	}
	return v, nil
}

func (m *Memory) GeneCount(_ context.Context, genome string) (int, error) {
	v, ok := m.genomes[genome]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownGenome, genome)
	}
	return len(v), nil
}

// ReadList reads a genome list: one genome per line, first field only.
// Blank lines and '#' comments are skipped; duplicates keep their first
// position.
func ReadList(r io.Reader) ([]string, error) {
	var list []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name := strings.Fields(line)[0]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		list = append(list, name)
	}
	return list, sc.Err()
}

// ReadListFile reads a genome list from path.
func ReadListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadList(f)
}
