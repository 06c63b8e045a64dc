package cvnet

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Logger wraps slog.Logger with cvnet-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that writes JSON records to w.
// A nil w means stderr.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable records to w.
// A nil w means stderr.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithRunID tags the logger with a fresh run id and returns both.
func (l *Logger) WithRunID() (*Logger, string) {
	id := uuid.NewString()
	return &Logger{Logger: l.Logger.With("run_id", id)}, id
}

// WithPhase adds a phase field to the logger.
func (l *Logger) WithPhase(phase string) *Logger {
	return &Logger{Logger: l.Logger.With("phase", phase)}
}

// WithGenome adds a genome field to the logger.
func (l *Logger) WithGenome(genome string) *Logger {
	return &Logger{Logger: l.Logger.With("genome", genome)}
}

// WithPair adds row and col genome fields to the logger.
func (l *Logger) WithPair(row, col string) *Logger {
	return &Logger{Logger: l.Logger.With("row", row, "col", col)}
}

// LogTask logs the outcome of one task.
func (l *Logger) LogTask(ctx context.Context, phase, task, outcome string, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "task failed",
			"phase", phase,
			"task", task,
			"outcome", outcome,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "task completed",
		"phase", phase,
		"task", task,
		"outcome", outcome,
		"duration", d,
	)
}

// LogPhase logs the totals of one phase.
func (l *Logger) LogPhase(ctx context.Context, s PhaseSummary) {
	args := []any{
		"phase", s.Phase,
		"succeeded", s.Succeeded,
		"cached", s.Cached,
		"failed", s.Failed,
		"skipped", s.Skipped,
		"duration", s.Duration,
	}
	if s.Failed > 0 || s.Skipped > 0 {
		l.WarnContext(ctx, "phase incomplete", args...)
		return
	}
	l.InfoContext(ctx, "phase completed", args...)
}

// LogCacheHit logs a reused artifact.
func (l *Logger) LogCacheHit(ctx context.Context, name string) {
	l.DebugContext(ctx, "artifact reused", "cached", true, "artifact", name)
}

// LogMemory logs the pair-matrix memory high-water mark.
func (l *Logger) LogMemory(ctx context.Context, peak, limit int64) {
	if limit > 0 {
		l.InfoContext(ctx, "matrix memory",
			"peak", humanize.IBytes(uint64(peak)),
			"limit", humanize.IBytes(uint64(limit)),
		)
		return
	}
	l.InfoContext(ctx, "matrix memory", "peak", humanize.IBytes(uint64(peak)))
}

// LogGraph logs the written graph.
func (l *Logger) LogGraph(ctx context.Context, genes, edges int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "graph write failed", "error", err)
		return
	}
	l.InfoContext(ctx, "graph written",
		"genes", genes,
		"edges", edges,
		"bytes", humanize.Bytes(uint64(bytes)),
	)
}
