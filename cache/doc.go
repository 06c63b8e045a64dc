// Package cache is the content-addressed artifact cache of a run.
//
// Every artifact is named by a Fingerprint: its kind, the genomes it covers,
// the composition-vector method and k, and the similarity method. A valid
// artifact found in the store is reused; a missing or unreadable one is
// recomputed. Concurrent requests for the same artifact share one
// computation.
package cache
