package cvnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/cvnet/cache"
	"github.com/hupe1980/cvnet/cva"
	"github.com/hupe1980/cvnet/edge"
	"github.com/hupe1980/cvnet/geneindex"
	"github.com/hupe1980/cvnet/graph"
	ifs "github.com/hupe1980/cvnet/internal/fs"
	"github.com/hupe1980/cvnet/matrix"
	"github.com/hupe1980/cvnet/scheduler"
)

// Phase names used in reports, logs and metrics.
const (
	PhaseCVA   = "cva"
	PhasePairs = "pairs"
	PhaseInit  = "init"
	PhaseEdges = "edges"
)

type pair struct {
	i, j     int
	row, col string
}

func (p pair) name() string { return p.row + "-" + p.col }

// run is the state of one Run call.
type run struct {
	*Pipeline
	log      *Logger
	sched    *scheduler.Scheduler
	genomes  []string
	pairs    []pair
	report   *RunReport
	reports  []*scheduler.Report
	selector edge.Selector
}

// Run computes every missing artifact for genomes and writes the gene graph
// to out. Failed tasks do not stop their phase; when any task fails the graph
// is not written and the error matches ErrIncomplete.
func (p *Pipeline) Run(ctx context.Context, genomes []string, out io.Writer) (*RunReport, error) {
	start := time.Now()
	seen := make(map[string]struct{}, len(genomes))
	for _, g := range genomes {
		if _, dup := seen[g]; dup {
			return nil, fmt.Errorf("%w: %w %q", ErrInvalidConfig, errDuplicateGenome, g)
		}
		seen[g] = struct{}{}
	}
	if err := p.checkArtifactNames(genomes); err != nil {
		return nil, err
	}

	if p.opts.lockPath != "" {
		lock, err := ifs.Acquire(p.opts.lockPath)
		if err != nil {
			return nil, err
		}
		defer lock.Release()
	}

	selector, err := edge.New(p.cfg.EdgeMethod, p.cfg.Cutoff, edge.WithWorkers(p.opts.workers))
	if err != nil {
		return nil, translateError(err)
	}

	log, runID := p.opts.logger.WithRunID()
	r := &run{
		Pipeline: p,
		log:      log,
		genomes:  genomes,
		selector: selector,
		report:   &RunReport{RunID: runID, Genomes: len(genomes)},
	}
	for i := range genomes {
		for j := i + 1; j < len(genomes); j++ {
			r.pairs = append(r.pairs, pair{i: i, j: j, row: genomes[i], col: genomes[j]})
		}
	}
	r.report.Pairs = len(r.pairs)

	r.sched = scheduler.New(p.opts.workers, scheduler.WithObserver(r.observe))
	defer r.sched.Close()

	log.InfoContext(ctx, "run started",
		"genomes", len(genomes),
		"pairs", len(r.pairs),
		"cv_method", p.src.Method(),
		"k", p.cfg.K,
		"similarity", p.method.Name(),
		"edge_method", selector.Name(),
		"cutoff", p.cfg.Cutoff,
	)

	err = r.execute(ctx, out)
	r.report.PeakMemory = p.rc.PeakMemory()
	r.report.Duration = time.Since(start)
	log.LogMemory(ctx, r.report.PeakMemory, p.rc.Config().MemoryLimitBytes)
	if err != nil {
		log.ErrorContext(ctx, "run failed", "error", err, "duration", r.report.Duration)
		return r.report, err
	}
	log.InfoContext(ctx, "run completed", "edges", r.report.Edges, "duration", r.report.Duration)
	return r.report, nil
}

func (r *run) execute(ctx context.Context, out io.Writer) error {
	// Arrays and matrices are computed even when an earlier task failed so a
	// rerun finds as much as possible in the cache.
	r.phase(ctx, PhaseCVA, r.cvaTasks())
	r.phase(ctx, PhasePairs, r.pairTasks())
	if err := r.check(ctx); err != nil {
		return err
	}

	ix, err := r.geneIndex(ctx)
	if err != nil {
		return err
	}
	r.report.Genes = ix.Total()

	if initer, ok := r.selector.(edge.Initializer); ok {
		r.phase(ctx, PhaseInit, []scheduler.Task{{
			Name:     r.selector.Name(),
			Produces: scheduler.NoGenome,
			Run: func(ctx context.Context) (bool, error) {
				artifacts := make([]edge.PairArtifact, len(r.pairs))
				for i, pr := range r.pairs {
					artifacts[i] = r.artifact(pr)
				}
				return false, initer.Init(ctx, artifacts, ix, ix.Total())
			},
		}})
		if err := r.check(ctx); err != nil {
			return err
		}
	}

	asm := graph.NewAssembler(ix.Total(), r.opts.format)
	r.phase(ctx, PhaseEdges, r.edgeTasks(ix, asm))
	if err := r.check(ctx); err != nil {
		return err
	}

	r.report.Edges = asm.Pushed()
	cw := &countingWriter{w: out}
	err = asm.Finalize(cw)
	r.report.GraphBytes = cw.n
	r.log.LogGraph(ctx, ix.Total(), r.report.Edges, cw.n, err)
	if err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}

func (r *run) phase(ctx context.Context, name string, tasks []scheduler.Task) {
	rep := r.sched.Run(ctx, name, tasks)
	r.reports = append(r.reports, rep)
	s := PhaseSummary{
		Phase:     name,
		Succeeded: rep.Succeeded,
		Cached:    rep.Cached,
		Failed:    rep.Failed,
		Skipped:   rep.Skipped,
		Duration:  rep.Duration,
	}
	r.report.Phases = append(r.report.Phases, s)
	r.log.LogPhase(ctx, s)
	r.opts.metricsCollector.RecordPhase(name, rep.Duration)
}

// check turns failed or canceled phases into the run error.
func (r *run) check(ctx context.Context) error {
	for _, rep := range r.reports {
		if !rep.Ok() {
			if err := ctx.Err(); err != nil {
				return errors.Join(incomplete(r.reports), err)
			}
			return incomplete(r.reports)
		}
	}
	return ctx.Err()
}

func (r *run) observe(res scheduler.Result) {
	var err error
	if res.Outcome == scheduler.Failed || res.Outcome == scheduler.Skipped {
		err = res.Err
	}
	r.log.LogTask(context.Background(), res.Phase, res.Task, res.Outcome.String(), res.Duration, err)
	r.opts.metricsCollector.RecordTask(res.Phase, res.Outcome == scheduler.Cached, res.Duration, err)
}

func (r *run) cvaTasks() []scheduler.Task {
	tasks := make([]scheduler.Task, len(r.genomes))
	for i, g := range r.genomes {
		fp := r.CVAFingerprint(g)
		tasks[i] = scheduler.Task{
			Name:     g,
			Produces: i,
			Run: func(ctx context.Context) (bool, error) {
				hit, err := r.cache.GetOrCompute(ctx, []cache.Fingerprint{fp}, func(ctx context.Context) error {
					vs, err := r.src.Vectors(ctx, g, r.cfg.K)
					if err != nil {
						return err
					}
					return r.cache.SaveArray(ctx, fp, cva.Build(vs))
				})
				if hit {
					r.log.LogCacheHit(ctx, r.cache.Name(fp))
				}
				return hit, err
			},
		}
	}
	return tasks
}

func (r *run) pairTasks() []scheduler.Task {
	tasks := make([]scheduler.Task, len(r.pairs))
	for n, pr := range r.pairs {
		mfp, rfp := r.MatrixFingerprint(pr.row, pr.col), r.RBHFingerprint(pr.row, pr.col)
		tasks[n] = scheduler.Task{
			Name:     pr.name(),
			Needs:    []uint32{uint32(pr.i), uint32(pr.j)},
			Produces: scheduler.NoGenome,
			Run: func(ctx context.Context) (bool, error) {
				hit, err := r.cache.GetOrCompute(ctx, []cache.Fingerprint{mfp, rfp}, func(ctx context.Context) error {
					return r.computePair(ctx, pr, mfp, rfp)
				})
				if hit {
					r.log.LogCacheHit(ctx, r.cache.Name(mfp))
				}
				return hit, err
			},
		}
	}
	return tasks
}

// matrixBytes is the memory of one pair computation: the float64
// accumulator plus the float32 result.
func matrixBytes(nrow, ncol int) int64 {
	return int64(nrow) * int64(ncol) * 12
}

func (r *run) computePair(ctx context.Context, pr pair, mfp, rfp cache.Fingerprint) error {
	norm := r.method.Norm()
	a, _, err := r.cache.LoadArray(ctx, r.CVAFingerprint(pr.row), norm)
	if err != nil {
		return err
	}
	b, _, err := r.cache.LoadArray(ctx, r.CVAFingerprint(pr.col), norm)
	if err != nil {
		return err
	}

	bytes := matrixBytes(a.GeneCount(), b.GeneCount())
	if err := r.rc.AcquireMemory(ctx, bytes); err != nil {
		return err
	}
	defer r.rc.ReleaseMemory(bytes)

	m, err := r.engine.Compute(ctx, a, b, pr.row, pr.col)
	if err != nil {
		r.log.WithPair(pr.row, pr.col).ErrorContext(ctx, "similarity failed",
			"nrow", a.GeneCount(),
			"ncol", b.GeneCount(),
			"error", err,
		)
		return err
	}
	if err := r.cache.SaveMatrix(ctx, mfp, m, r.opts.minKept); err != nil {
		return err
	}
	return r.cache.SaveRBH(ctx, rfp, matrix.ComputeRBH(m))
}

// geneIndex counts genes from the array headers and loads or rebuilds the
// index. A loaded index whose block sizes disagree with the arrays is
// rebuilt.
func (r *run) geneIndex(ctx context.Context) (*geneindex.Index, error) {
	counts := make(map[string]int, len(r.genomes))
	for _, g := range r.genomes {
		n, err := r.geneCount(ctx, g)
		if err != nil {
			return nil, err
		}
		counts[g] = n
	}
	count := func(_ context.Context, g string) (int, error) { return counts[g], nil }

	ix, rebuilt, err := geneindex.LoadOrRebuild(ctx, r.opts.indexPath, r.genomes, count)
	if err != nil {
		return nil, err
	}
	for _, g := range r.genomes {
		if e, _ := ix.Lookup(g); e.Size != counts[g] {
			r.log.WarnContext(ctx, "gene index out of date", "genome", g, "indexed", e.Size, "genes", counts[g])
			if ix, rebuilt, err = geneindex.LoadOrRebuild(ctx, "", r.genomes, count); err != nil {
				return nil, err
			}
			if r.opts.indexPath != "" {
				if err := geneindex.Save(r.opts.indexPath, ix); err != nil {
					return nil, err
				}
			}
			break
		}
	}
	r.report.IndexRebuilt = rebuilt
	r.log.InfoContext(ctx, "gene index ready", "genomes", ix.Len(), "genes", ix.Total(), "rebuilt", rebuilt)
	return ix, nil
}

func (r *run) geneCount(ctx context.Context, genome string) (int, error) {
	rc, err := r.cache.Open(ctx, r.CVAFingerprint(genome))
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	h, err := cva.ReadHeader(rc)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrCorruptArtifact, genome, err)
	}
	return int(h.Genes), nil
}

func (r *run) edgeTasks(ix *geneindex.Index, asm *graph.Assembler) []scheduler.Task {
	readsMatrix := r.selector.ReadsMatrix()
	tasks := make([]scheduler.Task, len(r.pairs))
	for n, pr := range r.pairs {
		tasks[n] = scheduler.Task{
			Name:     pr.name(),
			Needs:    []uint32{uint32(pr.i), uint32(pr.j)},
			Produces: scheduler.NoGenome,
			Run: func(ctx context.Context) (bool, error) {
				if readsMatrix {
					e1, _ := ix.Lookup(pr.row)
					e2, _ := ix.Lookup(pr.col)
					bytes := int64(e1.Size) * int64(e2.Size) * 4
					if err := r.rc.AcquireMemory(ctx, bytes); err != nil {
						return false, err
					}
					defer r.rc.ReleaseMemory(bytes)
				}
				es, err := r.selector.Select(ctx, r.artifact(pr), ix)
				if err != nil {
					return false, err
				}
				if err := asm.Push(es, r.selector.Directed()); err != nil {
					return false, err
				}
				r.opts.metricsCollector.RecordEdges(len(es))
				return false, nil
			},
		}
	}
	return tasks
}

// pairArtifact reads one pair's matrix and RBH list through the cache.
type pairArtifact struct {
	cache    *cache.Cache
	mfp, rfp cache.Fingerprint
}

func (r *run) artifact(pr pair) *pairArtifact {
	return &pairArtifact{
		cache: r.cache,
		mfp:   r.MatrixFingerprint(pr.row, pr.col),
		rfp:   r.RBHFingerprint(pr.row, pr.col),
	}
}

func (a *pairArtifact) Matrix(ctx context.Context) (*matrix.Matrix, error) {
	return a.cache.LoadMatrix(ctx, a.mfp)
}

func (a *pairArtifact) RBH(ctx context.Context) (*matrix.RBH, error) {
	return a.cache.LoadRBH(ctx, a.rfp)
}

var _ edge.PairArtifact = (*pairArtifact)(nil)

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
