package cvnet

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hupe1980/cvnet/cache"
	"github.com/hupe1980/cvnet/edge"
	"github.com/hupe1980/cvnet/resource"
	"github.com/hupe1980/cvnet/similarity"
	"github.com/hupe1980/cvnet/source"
)

// Config selects the methods of a run.
type Config struct {
	// K is the k-mer length passed to the source and recorded in artifact names.
	K int
	// Similarity names the pair similarity method, e.g. "Cosine".
	Similarity string
	// EdgeMethod names the edge policy: CUT, RBH, SRB or GRB.
	EdgeMethod string
	// Cutoff is the edge policy threshold.
	Cutoff float32
}

// Pipeline computes the gene similarity graph of a genome list.
// A Pipeline may run many times; concurrent runs must use distinct stores.
type Pipeline struct {
	src    source.Source
	cfg    Config
	opts   options
	method similarity.Method
	engine *similarity.Engine
	rc     *resource.Controller
	cache  *cache.Cache
}

// New validates cfg and wires the pipeline.
func New(src source.Source, cfg Config, optFns ...Option) (*Pipeline, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidConfig)
	}
	if cfg.K <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, cfg.K)
	}
	m, err := similarity.ByName(cfg.Similarity)
	if err != nil {
		return nil, translateError(err)
	}
	if _, err := edge.New(cfg.EdgeMethod, cfg.Cutoff); err != nil {
		return nil, translateError(err)
	}

	o := applyOptions(optFns)
	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:   o.memoryLimit,
		IOLimitBytesPerSec: o.ioLimit,
	})
	c := cache.New(o.store,
		cache.WithCodec(o.codec),
		cache.WithController(rc),
		cache.WithArrayCacheBytes(o.arrayCacheBytes),
	)
	return &Pipeline{
		src:    src,
		cfg:    cfg,
		opts:   o,
		method: m,
		engine: similarity.NewEngine(m),
		rc:     rc,
		cache:  c,
	}, nil
}

// Config returns the run configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Cache returns the artifact cache.
func (p *Pipeline) Cache() *cache.Cache { return p.cache }

// CVAFingerprint names the array artifact of genome.
func (p *Pipeline) CVAFingerprint(genome string) cache.Fingerprint {
	return cache.CVA(genome, p.src.Method(), p.cfg.K)
}

// MatrixFingerprint names the similarity matrix of a genome pair.
func (p *Pipeline) MatrixFingerprint(row, col string) cache.Fingerprint {
	return cache.Matrix(row, col, p.src.Method(), p.cfg.K, p.method.Name())
}

// RBHFingerprint names the reciprocal-best-hit list of a genome pair.
func (p *Pipeline) RBHFingerprint(row, col string) cache.Fingerprint {
	return cache.RBH(row, col, p.src.Method(), p.cfg.K, p.method.Name())
}

// OutputName is the default graph file name,
// mcl.<cvmethod><k>.<similarity>.<edge><cutoff*100>.
func (p *Pipeline) OutputName() string {
	return fmt.Sprintf("mcl.%s%d.%s.%s%d", p.src.Method(), p.cfg.K, p.method.Name(),
		edgeName(p.cfg.EdgeMethod), int(p.cfg.Cutoff*100+0.5))
}

func edgeName(name string) string {
	s, err := edge.New(name, 0)
	if err != nil {
		return name
	}
	return s.Name()
}

// PhaseSummary counts the task outcomes of one phase.
type PhaseSummary struct {
	Phase     string
	Succeeded int
	Cached    int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

// RunReport describes a finished run.
type RunReport struct {
	RunID        string
	Genomes      int
	Pairs        int
	Genes        int
	Edges        int
	IndexRebuilt bool
	Phases       []PhaseSummary
	PeakMemory   int64
	GraphBytes   int64
	Duration     time.Duration
}

// Phase returns the summary of the named phase.
func (r *RunReport) Phase(name string) (PhaseSummary, bool) {
	for _, s := range r.Phases {
		if s.Phase == name {
			return s, true
		}
	}
	return PhaseSummary{}, false
}

// Complete reports whether every phase ran without failures.
func (r *RunReport) Complete() bool {
	for _, s := range r.Phases {
		if s.Failed > 0 || s.Skipped > 0 {
			return false
		}
	}
	return true
}

var (
	errDuplicateGenome = errors.New("duplicate genome")
	errNameCollision   = errors.New("artifact name collision")
)

// checkArtifactNames rejects genome lists in which two genomes, or two
// pairs, would be stored under the same blob name.
func (p *Pipeline) checkArtifactNames(genomes []string) error {
	owner := make(map[string]string, len(genomes))
	claim := func(name, by string) error {
		if prev, ok := owner[name]; ok {
			return fmt.Errorf("%w: %w: %s and %s both map to %s", ErrInvalidConfig, errNameCollision, prev, by, name)
		}
		owner[name] = by
		return nil
	}
	for _, g := range genomes {
		if err := claim(p.cache.Name(p.CVAFingerprint(g)), strconv.Quote(g)); err != nil {
			return err
		}
	}
	for i := range genomes {
		for j := i + 1; j < len(genomes); j++ {
			by := strconv.Quote(genomes[i]) + "x" + strconv.Quote(genomes[j])
			if err := claim(p.cache.Name(p.MatrixFingerprint(genomes[i], genomes[j])), by); err != nil {
				return err
			}
		}
	}
	return nil
}
