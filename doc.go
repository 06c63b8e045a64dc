// Package cvnet builds gene similarity networks from composition vectors.
//
// Every genome is reduced to a composition-vector array (one sparse k-mer
// vector per gene), every unordered genome pair gets a dense similarity
// matrix and its reciprocal-best-hit list, and an edge policy turns the
// matrices into one sparse graph over all genes, written in MCL format or as
// an edge list.
//
// # Quick Start
//
//	src, _ := source.NewFASTA("./genomes", "Hao")
//	p, _ := cvnet.New(src, cvnet.Config{
//	    K:          5,
//	    Similarity: "Cosine",
//	    EdgeMethod: "CUT",
//	    Cutoff:     0.1,
//	}, cvnet.WithStore(blobstore.NewLocalStore("./work")))
//
//	out, _ := os.Create(p.OutputName())
//	defer out.Close()
//	report, err := p.Run(ctx, genomes, out)
//
// # Resuming
//
// All intermediate artifacts live in the configured blobstore.Store under
// content-derived names (cva/<genome>.Hao5.cva.gz, sm/<a>-<b>.Hao5.Cosine.sm.gz,
// sm/<a>-<b>.Hao5.Cosine.rbh.gz). A run reuses every artifact that decodes
// and deletes the ones that do not. A failing task never stops the other
// tasks of its phase; the run then returns an error matching ErrIncomplete
// and writes no graph, and running again recomputes only what is missing.
//
// # Phases
//
//   - cva: one task per genome builds its array.
//   - pairs: one task per genome pair computes the matrix and RBH list.
//   - init: GRB only, folds all RBH lists into per-gene floors.
//   - edges: one task per pair selects edges into the shared graph.
//
// Phases are separated by barriers. Pair tasks of a genome whose array failed
// are skipped.
package cvnet
