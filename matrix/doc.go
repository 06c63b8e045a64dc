// Package matrix stores the dense similarity matrix of one genome pair and
// its reciprocal-best-hit list.
//
// A Matrix is addressed row-major as row*ncol+col. On disk it is written
// either dense (every cell) or sparse (only cells at or above a write-time
// floor, as (linear index, value) pairs); Read always materialises a dense
// buffer, filling omitted cells with zero.
package matrix
