// Package source produces the composition vectors of a genome: one sparse
// vector per gene, keyed by k-mer.
//
// The pipeline only sees the Source interface. FASTA implements it over
// protein or nucleotide gene files with the Count and Hao methods; Memory
// serves precomputed vectors.
package source
