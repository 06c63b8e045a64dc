// Package persistence provides the little-endian record encoding shared by
// every artifact format, plus atomic file helpers.
//
// Writers and readers carry a sticky error: after the first failure every
// further call is a no-op and Err reports the original cause. This keeps the
// format code in cva and matrix free of per-field error checks.
package persistence
