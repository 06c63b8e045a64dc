// Package resource bounds what a run may hold at once: the bytes of dense
// pair matrices in flight and the byte rate of artifact writes.
package resource
