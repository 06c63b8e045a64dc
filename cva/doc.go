// Package cva implements composition-vector arrays: the columnar, per-genome
// storage of every gene's sparse k-mer composition vector.
//
// An Array is organised by k-mer key. Each column holds the (gene, weight)
// entries of every gene that has a non-zero weight for that key, sorted by
// gene index. Two arrays are compared by aligning their column tables with
// Align and visiting only the shared columns.
//
// Build an array once from per-gene vectors, persist it with Encode (inside a
// compressed stream) and reload it with Decode. Arrays are immutable after
// construction except for SelectNorm, which keeps one of the three per-gene
// norms and drops the others.
package cva
