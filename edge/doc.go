// Package edge turns pair similarity matrices into sparse graph edges.
//
// A Selector reads one genome pair's artifacts and returns its edges already
// shifted into global gene coordinates. Policies:
//
//   - CUT: every cell with weight >= threshold.
//   - RBH: reciprocal best hits with weight > threshold.
//   - SRB: every cell >= max(threshold, weakest RBH of the pair).
//   - GRB: directed; each endpoint has its own floor, the weakest RBH it
//     took part in across all pairs (at least threshold). Needs Init.
//
// Directed reports whether the policy already emits both orientations of an
// edge it wants; for undirected policies the graph mirrors every edge.
package edge
