package cvnet

import (
	"runtime"

	"github.com/hupe1980/cvnet/blobstore"
	"github.com/hupe1980/cvnet/codec"
	"github.com/hupe1980/cvnet/graph"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	workers          int
	store            blobstore.Store
	codec            codec.Codec
	minKept          float32
	memoryLimit      int64
	ioLimit          int64
	arrayCacheBytes  int64
	format           graph.Format
	indexPath        string
	lockPath         string
}

// Option configures a Pipeline.
type Option func(*options)

// WithLogger configures structured logging. Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := cvnet.NewJSONLogger(os.Stderr, slog.LevelInfo)
//	p, _ := cvnet.New(src, cfg, cvnet.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector. Pass nil to disable.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithWorkers sets the number of concurrent tasks. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithStore sets the artifact store. Defaults to an in-memory store, which
// makes every run start cold.
func WithStore(s blobstore.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithCodec sets the compression codec for new artifacts. Reading detects
// the codec of existing artifacts, but names carry the codec extension, so
// switching codecs recomputes everything.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithMinKept stores pair matrices sparsely, keeping only cells >= v.
// A negative v stores them dense. Default -1.
func WithMinKept(v float32) Option {
	return func(o *options) {
		o.minKept = v
	}
}

// WithMemoryLimit bounds the bytes of pair matrices alive at once.
// 0 means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithIOLimit bounds the artifact write rate in bytes per second.
// 0 means unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithArrayCacheSize keeps up to bytes of decoded arrays in memory between
// pair tasks. 0 disables the cache.
func WithArrayCacheSize(bytes int64) Option {
	return func(o *options) {
		o.arrayCacheBytes = bytes
	}
}

// WithGraphFormat selects the graph output format. Default MCL.
func WithGraphFormat(f graph.Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithIndexPath persists the gene index table at path and reuses it on
// later runs when it covers the genome list.
func WithIndexPath(path string) Option {
	return func(o *options) {
		o.indexPath = path
	}
}

// WithLockFile holds an exclusive advisory lock on path during Run.
func WithLockFile(path string) Option {
	return func(o *options) {
		o.lockPath = path
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		workers:          runtime.GOMAXPROCS(0),
		codec:            codec.Default,
		minKept:          -1,
		format:           graph.FormatMCL,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.store == nil {
		o.store = blobstore.NewMemoryStore()
	}
	return o
}
