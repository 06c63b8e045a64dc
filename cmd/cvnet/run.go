package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hupe1980/cvnet"
	"github.com/hupe1980/cvnet/blobstore"
	"github.com/hupe1980/cvnet/blobstore/minio"
	"github.com/hupe1980/cvnet/blobstore/s3"
	"github.com/hupe1980/cvnet/codec"
	"github.com/hupe1980/cvnet/graph"
	"github.com/hupe1980/cvnet/persistence"
	"github.com/hupe1980/cvnet/source"
)

// lockName is the advisory lock file inside a local store.
const lockName = ".cvnet.lock"

func newRunCmd() *cobra.Command {
	var (
		configPath string
		fc         = DefaultConfig()
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the gene graph of a genome list",
		Long: `Build the gene graph of a genome list.

Every genome in the list is read from <genome-dir>/<genome><suffix>.
Artifacts go to the store as cva/<genome>.<cv><k>.cva.gz and
sm/<a>-<b>.<cv><k>.<similarity>.{sm,rbh}.gz; existing valid artifacts are
reused. The graph is written only when every task succeeded; otherwise the
command exits with code 4 and a rerun resumes from the cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return usageError(err)
			}
			overrideConfig(&cfg, fc, cmd.Flags())
			return runPipeline(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML config file")
	f.StringVarP(&fc.List, "list", "i", fc.List, "genome list file")
	f.IntVarP(&fc.K, "kmer-length", "k", fc.K, "k-mer length")
	f.StringVar(&fc.CVMethod, "cv-method", fc.CVMethod, "composition vector method: Hao or Count")
	f.StringVarP(&fc.GenomeDir, "genome-dir", "G", fc.GenomeDir, "directory of genome files")
	f.StringVar(&fc.GenomeSuffix, "suffix", fc.GenomeSuffix, "genome file suffix")
	f.StringVarP(&fc.Alphabet, "genome-type", "g", fc.Alphabet, "sequence type: faa (protein) or ffn (nucleotide)")
	f.StringVar(&fc.Similarity, "similarity", fc.Similarity, "similarity method: Cosine, Euclidean, InterList, Min2Max, InterSet, Dice, Jaccard")
	f.StringVar(&fc.EdgeMethod, "edge-method", fc.EdgeMethod, "edge method: CUT, RBH, SRB or GRB")
	f.Float32VarP(&fc.Cutoff, "cutoff", "c", fc.Cutoff, "edge threshold")
	f.Float32Var(&fc.MinKept, "min-kept", fc.MinKept, "store matrices sparsely, keeping cells >= value; negative stores dense")
	f.IntVarP(&fc.Workers, "threads", "j", fc.Workers, "concurrent tasks (0 = all CPUs)")
	f.StringVar(&fc.MemoryLimit, "memory-limit", fc.MemoryLimit, "bound on pair matrix memory, e.g. 8GiB")
	f.StringVar(&fc.IOLimit, "io-limit", fc.IOLimit, "bound on artifact write rate per second, e.g. 200MB")
	f.StringVar(&fc.ArrayCache, "array-cache", fc.ArrayCache, "decoded arrays kept in memory")
	f.StringVar(&fc.Compression, "compression", fc.Compression, "artifact codec: gzip, zstd or lz4")
	f.StringVar(&fc.Store.Type, "store", fc.Store.Type, "artifact store: local, memory, minio or s3")
	f.StringVarP(&fc.Store.Dir, "work-dir", "W", fc.Store.Dir, "local store directory")
	f.StringVar(&fc.Store.Bucket, "bucket", fc.Store.Bucket, "remote store bucket")
	f.StringVar(&fc.Store.Prefix, "prefix", fc.Store.Prefix, "remote store key prefix")
	f.StringVar(&fc.Store.CacheDir, "cache-dir", fc.Store.CacheDir, "local copy of remote artifacts")
	f.StringVarP(&fc.Output, "output", "o", fc.Output, "graph file (default mcl.<cv><k>.<similarity>.<edge><cutoff*100>)")
	f.StringVar(&fc.Format, "format", fc.Format, "graph format: mcl or tsv")
	f.StringVarP(&fc.Index, "offset", "f", fc.Index, "gene index table to reuse and update")
	f.StringVar(&fc.Log.Level, "log-level", fc.Log.Level, "debug, info, warn or error")
	f.StringVar(&fc.Log.Format, "log-format", fc.Log.Format, "text or json")
	f.StringVar(&fc.Log.File, "log-file", fc.Log.File, "rotating log file instead of stderr")
	f.StringVar(&fc.Metrics.Addr, "metrics-addr", fc.Metrics.Addr, "serve Prometheus metrics on this address during the run")
	f.StringVar(&fc.Metrics.File, "metrics-file", fc.Metrics.File, "write Prometheus metrics to this file when the run ends")
	f.BoolVarP(&fc.Quiet, "quiet", "q", fc.Quiet, "only log warnings and errors")
	return cmd
}

// overrideConfig copies the explicitly set flags of fs from fc into cfg.
func overrideConfig(cfg *Config, fc Config, fs *pflag.FlagSet) {
	set := map[string]func(){
		"list":         func() { cfg.List = fc.List },
		"kmer-length":  func() { cfg.K = fc.K },
		"cv-method":    func() { cfg.CVMethod = fc.CVMethod },
		"genome-dir":   func() { cfg.GenomeDir = fc.GenomeDir },
		"suffix":       func() { cfg.GenomeSuffix = fc.GenomeSuffix },
		"genome-type":  func() { cfg.Alphabet = fc.Alphabet },
		"similarity":   func() { cfg.Similarity = fc.Similarity },
		"edge-method":  func() { cfg.EdgeMethod = fc.EdgeMethod },
		"cutoff":       func() { cfg.Cutoff = fc.Cutoff },
		"min-kept":     func() { cfg.MinKept = fc.MinKept },
		"threads":      func() { cfg.Workers = fc.Workers },
		"memory-limit": func() { cfg.MemoryLimit = fc.MemoryLimit },
		"io-limit":     func() { cfg.IOLimit = fc.IOLimit },
		"array-cache":  func() { cfg.ArrayCache = fc.ArrayCache },
		"compression":  func() { cfg.Compression = fc.Compression },
		"store":        func() { cfg.Store.Type = fc.Store.Type },
		"work-dir":     func() { cfg.Store.Dir = fc.Store.Dir },
		"bucket":       func() { cfg.Store.Bucket = fc.Store.Bucket },
		"prefix":       func() { cfg.Store.Prefix = fc.Store.Prefix },
		"cache-dir":    func() { cfg.Store.CacheDir = fc.Store.CacheDir },
		"output":       func() { cfg.Output = fc.Output },
		"format":       func() { cfg.Format = fc.Format },
		"offset":       func() { cfg.Index = fc.Index },
		"log-level":    func() { cfg.Log.Level = fc.Log.Level },
		"log-format":   func() { cfg.Log.Format = fc.Log.Format },
		"log-file":     func() { cfg.Log.File = fc.Log.File },
		"metrics-addr": func() { cfg.Metrics.Addr = fc.Metrics.Addr },
		"metrics-file": func() { cfg.Metrics.File = fc.Metrics.File },
		"quiet":        func() { cfg.Quiet = fc.Quiet },
	}
	fs.Visit(func(f *pflag.Flag) {
		if fn, ok := set[f.Name]; ok {
			fn()
		}
	})
}

// openStore builds the configured artifact store. lockPath is set for
// local stores.
func openStore(ctx context.Context, c StoreConfig) (store blobstore.Store, lockPath string, err error) {
	switch c.Type {
	case "", "local":
		if err := os.MkdirAll(c.Dir, 0o755); err != nil {
			return nil, "", err
		}
		return blobstore.NewLocalStore(c.Dir), filepath.Join(c.Dir, lockName), nil
	case "memory":
		return blobstore.NewMemoryStore(), "", nil
	case "minio":
		store, err = minio.Dial(ctx, minio.Config{
			Endpoint:  c.Endpoint,
			AccessKey: c.AccessKey,
			SecretKey: c.SecretKey,
			Region:    c.Region,
			Secure:    c.Secure,
			Bucket:    c.Bucket,
			Prefix:    c.Prefix,
		})
	case "s3":
		store, err = s3.New(ctx, c.Bucket,
			s3.WithPrefix(c.Prefix),
			s3.WithRegion(c.Region),
			s3.WithEndpoint(c.Endpoint),
		)
	default:
		return nil, "", configError(fmt.Errorf("unknown store type %q", c.Type))
	}
	if err != nil {
		return nil, "", err
	}
	if c.CacheDir != "" {
		if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
			return nil, "", err
		}
		store = blobstore.NewCachingStore(store, blobstore.NewLocalStore(c.CacheDir))
	}
	return store, "", nil
}

func pipelineOptions(cfg Config) ([]cvnet.Option, error) {
	memLimit, err := parseBytes(cfg.MemoryLimit)
	if err != nil {
		return nil, configError(fmt.Errorf("memory_limit: %w", err))
	}
	ioLimit, err := parseBytes(cfg.IOLimit)
	if err != nil {
		return nil, configError(fmt.Errorf("io_limit: %w", err))
	}
	arrayCache, err := parseBytes(cfg.ArrayCache)
	if err != nil {
		return nil, configError(fmt.Errorf("array_cache: %w", err))
	}
	c, ok := codec.ByName(cfg.Compression)
	if !ok {
		return nil, configError(fmt.Errorf("unknown compression %q (have %v)", cfg.Compression, codec.Names()))
	}
	format, err := graph.ParseFormat(cfg.Format)
	if err != nil {
		return nil, configError(err)
	}
	return []cvnet.Option{
		cvnet.WithWorkers(cfg.Workers),
		cvnet.WithCodec(c),
		cvnet.WithMinKept(cfg.MinKept),
		cvnet.WithMemoryLimit(memLimit),
		cvnet.WithIOLimit(ioLimit),
		cvnet.WithArrayCacheSize(arrayCache),
		cvnet.WithGraphFormat(format),
		cvnet.WithIndexPath(cfg.Index),
	}, nil
}

func runPipeline(ctx context.Context, cfg Config) (err error) {
	logger, closer, err := newLogger(cfg.Log, cfg.Quiet)
	if err != nil {
		return configError(err)
	}
	defer closer.Close()

	genomes, err := source.ReadListFile(cfg.List)
	if err != nil {
		return usageError(err)
	}
	alphabet, err := source.AlphabetByName(cfg.Alphabet)
	if err != nil {
		return configError(err)
	}
	src, err := source.NewFASTA(cfg.GenomeDir, cfg.CVMethod,
		source.WithSuffix(cfg.GenomeSuffix),
		source.WithAlphabet(alphabet),
	)
	if err != nil {
		return configError(err)
	}
	m, err := source.MethodByName(cfg.CVMethod)
	if err != nil {
		return configError(err)
	}
	if err := source.CheckK(m, alphabet, cfg.K); err != nil {
		return configError(err)
	}
	for _, g := range genomes {
		if _, err := os.Stat(src.Path(g)); err != nil {
			return usageError(err)
		}
	}

	opts, err := pipelineOptions(cfg)
	if err != nil {
		return err
	}
	store, lockPath, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	opts = append(opts,
		cvnet.WithLogger(logger),
		cvnet.WithStore(store),
		cvnet.WithLockFile(lockPath),
	)

	metrics, err := startMetrics(cfg.Metrics, logger)
	if err != nil {
		return configError(err)
	}
	if metrics != nil {
		// Metrics are exported for incomplete runs too.
		defer func() {
			if cerr := metrics.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}()
		opts = append(opts, cvnet.WithMetricsCollector(metrics.Collector()))
	}

	p, err := cvnet.New(src, cvnet.Config{
		K:          cfg.K,
		Similarity: cfg.Similarity,
		EdgeMethod: cfg.EdgeMethod,
		Cutoff:     cfg.Cutoff,
	}, opts...)
	if err != nil {
		return configError(err)
	}

	output := cfg.Output
	if output == "" {
		output = p.OutputName()
	}
	// The graph file only appears when the run is complete.
	return persistence.SaveToFile(output, func(w io.Writer) error {
		_, err := p.Run(ctx, genomes, w)
		return err
	})
}
