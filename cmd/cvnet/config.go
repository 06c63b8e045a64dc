package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/lumberjack"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/cvnet"
)

// Config is the YAML run configuration. Command-line flags override it.
type Config struct {
	List         string        `yaml:"list"`
	K            int           `yaml:"k"`
	CVMethod     string        `yaml:"cv_method"`
	GenomeDir    string        `yaml:"genome_dir"`
	GenomeSuffix string        `yaml:"genome_suffix"`
	Alphabet     string        `yaml:"alphabet"`
	Similarity   string        `yaml:"similarity"`
	EdgeMethod   string        `yaml:"edge_method"`
	Cutoff       float32       `yaml:"cutoff"`
	MinKept      float32       `yaml:"min_kept"`
	Workers      int           `yaml:"workers"`
	MemoryLimit  string        `yaml:"memory_limit"`
	IOLimit      string        `yaml:"io_limit"`
	ArrayCache   string        `yaml:"array_cache"`
	Compression  string        `yaml:"compression"`
	Store        StoreConfig   `yaml:"store"`
	Output       string        `yaml:"output"`
	Format       string        `yaml:"format"`
	Index        string        `yaml:"index"`
	Log          LogConfig     `yaml:"log"`
	Metrics      MetricsConfig `yaml:"metrics"`
	Quiet        bool          `yaml:"quiet"`
}

// StoreConfig selects the artifact store.
type StoreConfig struct {
	// Type is local, memory, minio or s3.
	Type      string `yaml:"type"`
	Dir       string `yaml:"dir"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
	// CacheDir keeps a local copy of remote artifacts.
	CacheDir string `yaml:"cache_dir"`
}

// LogConfig configures logging. An empty File logs to stderr.
type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	File    string `yaml:"file"`
	MaxSize int    `yaml:"max_size"` // megabytes
	MaxAge  int    `yaml:"max_age"`  // days
}

// DefaultConfig returns the defaults of the original sm2mcl tool chain:
// Hao k=5, Cosine, CUT at 0.8, protein genomes listed in ./list.
func DefaultConfig() Config {
	return Config{
		List:         "list",
		K:            5,
		CVMethod:     "Hao",
		GenomeDir:    ".",
		GenomeSuffix: ".faa",
		Alphabet:     "protein",
		Similarity:   "Cosine",
		EdgeMethod:   "CUT",
		Cutoff:       0.8,
		MinKept:      -1,
		ArrayCache:   "256MiB",
		Compression:  "gzip",
		Store:        StoreConfig{Type: "local", Dir: "."},
		Format:       "mcl",
		Log:          LogConfig{Level: "info", Format: "text", MaxSize: 100, MaxAge: 28},
	}
}

// LoadConfig reads path over the defaults using strict parsing.
// An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// parseBytes accepts humanized sizes such as "4GiB" or "500MB". Empty is 0.
func parseBytes(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// newLogger builds the run logger. Quiet mode keeps warnings and errors.
// The returned closer flushes a log file, if any.
func newLogger(c LogConfig, quiet bool) (*cvnet.Logger, io.Closer, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, nil, err
	}
	if quiet && level < slog.LevelWarn {
		level = slog.LevelWarn
	}

	var w io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if c.File != "" {
		lj := &lumberjack.Logger{
			Filename: c.File,
			MaxSize:  c.MaxSize,
			MaxAge:   c.MaxAge,
		}
		w, closer = lj, lj
	}

	switch strings.ToLower(c.Format) {
	case "", "text":
		return cvnet.NewTextLogger(w, level), closer, nil
	case "json":
		return cvnet.NewJSONLogger(w, level), closer, nil
	}
	return nil, nil, fmt.Errorf("unknown log format %q", c.Format)
}
