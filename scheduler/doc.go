// Package scheduler runs the tasks of one pipeline phase on a fixed worker
// pool and reports the outcome of every task.
//
// A failing task never stops its siblings. Each task may name the genomes it
// needs; a genome whose producing task failed is remembered across phases,
// so later tasks that need it are skipped instead of run.
package scheduler
