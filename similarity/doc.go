// Package similarity computes the gene-by-gene similarity matrix of two
// composition-vector arrays.
//
// A Method supplies three things: the norm kind it needs, an accumulation
// rule applied to every (a, b) entry pair of a shared column, and a scale
// applied once per cell after all columns are processed. The Engine drives
// alignment, accumulation and scaling; it does not know which method runs.
//
// Every method yields a similarity, not a distance: larger is closer.
//
// # Precision
//
// Cells accumulate in float64 and are narrowed to float32 by Scale. Stored
// matrices are float32, so a reloaded matrix is bit-identical to the one the
// engine returned.
package similarity
