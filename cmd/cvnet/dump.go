package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/cvnet/cva"
	"github.com/hupe1980/cvnet/matrix"
	"github.com/hupe1980/cvnet/source"
)

type dumpOptions struct {
	cva      string
	sm       string
	rbh      string
	stats    bool
	k        int
	alphabet string
	limit    int
}

func newDumpCmd() *cobra.Command {
	var o dumpOptions
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print a cached array, matrix or RBH list",
		Example: `  cvnet dump --cva cva/Ecoli.Hao5.cva.gz -k 5
  cvnet dump --sm sm/Ecoli-Bsub.Hao5.Cosine.sm.gz --stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set := 0
			for _, p := range []string{o.cva, o.sm, o.rbh} {
				if p != "" {
					set++
				}
			}
			if set != 1 {
				return usageError(errors.New("exactly one of --cva, --sm or --rbh is required"))
			}
			w := bufio.NewWriter(cmd.OutOrStdout())
			var err error
			switch {
			case o.cva != "":
				err = dumpCVA(w, o)
			case o.sm != "":
				err = dumpMatrix(w, o)
			default:
				err = dumpRBH(w, o)
			}
			if err != nil {
				return usageError(err)
			}
			return w.Flush()
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.cva, "cva", "", "composition vector array file")
	f.StringVar(&o.sm, "sm", "", "similarity matrix file")
	f.StringVar(&o.rbh, "rbh", "", "reciprocal best hit file")
	f.BoolVar(&o.stats, "stats", false, "print a summary of the values")
	f.IntVarP(&o.k, "kmer-length", "k", 0, "decode array keys as k-mers of this length")
	f.StringVarP(&o.alphabet, "genome-type", "g", "faa", "alphabet for decoding keys: faa or ffn")
	f.IntVarP(&o.limit, "limit", "n", -1, "print at most n rows (-1 = all, 0 = header only)")
	return cmd
}

func dumpCVA(w io.Writer, o dumpOptions) error {
	a, err := cva.Load(o.cva)
	if err != nil {
		return err
	}
	h := a.Header()
	fmt.Fprintf(w, "genes\t%d\ncolumns\t%d\nentries\t%d\n", h.Genes, h.Columns, h.Entries)

	key := func(k uint64) string { return strconv.FormatUint(k, 10) }
	if o.k > 0 {
		alpha, err := source.AlphabetByName(o.alphabet)
		if err != nil {
			return err
		}
		key = func(k uint64) string { return alpha.Decode(k, o.k) }
	}

	weights := make([]float64, 0, h.Entries)
	n := 0
	for k, entries := range a.Columns() {
		for _, e := range entries {
			weights = append(weights, float64(e.Weight))
		}
		if o.limit >= 0 && n >= o.limit {
			continue
		}
		n++
		fmt.Fprint(w, key(k))
		for _, e := range entries {
			fmt.Fprintf(w, "\t%d:%g", e.Gene, e.Weight)
		}
		fmt.Fprintln(w)
	}
	if o.stats {
		writeStats(w, weights)
	}
	return nil
}

func dumpMatrix(w io.Writer, o dumpOptions) error {
	m, err := matrix.Load(o.sm)
	if err != nil {
		return err
	}
	h := m.Header()
	fmt.Fprintf(w, "row\t%s\ncol\t%s\nnrow\t%d\nncol\t%d\nnsize\t%d\n", h.Row, h.Col, h.NRow, h.NCol, h.NSize)
	for i := 0; i < m.NRow() && (o.limit < 0 || i < o.limit); i++ {
		for j, v := range m.Row(i) {
			if j > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, strconv.FormatFloat(float64(v), 'g', 6, 32))
		}
		fmt.Fprintln(w)
	}
	if o.stats {
		data := make([]float64, len(m.Data()))
		for i, v := range m.Data() {
			data[i] = float64(v)
		}
		writeStats(w, data)
	}
	return nil
}

func dumpRBH(w io.Writer, o dumpOptions) error {
	l, err := matrix.LoadRBH(o.rbh)
	if err != nil {
		return err
	}
	h := l.Header
	fmt.Fprintf(w, "row\t%s\ncol\t%s\nnrow\t%d\nncol\t%d\nhits\t%d\n", h.Row, h.Col, h.NRow, h.NCol, len(l.Hits))
	weights := make([]float64, len(l.Hits))
	for i, hit := range l.Hits {
		weights[i] = float64(hit.Weight)
		if o.limit < 0 || i < o.limit {
			fmt.Fprintf(w, "%d\t%d\t%g\n", hit.Row, hit.Col, hit.Weight)
		}
	}
	if o.stats {
		writeStats(w, weights)
	}
	return nil
}

// summary describes a set of values.
type summary struct {
	N       int
	NonZero int
	Min     float64
	Max     float64
	Mean    float64
	StdDev  float64
	Median  float64
	Q90     float64
	Q99     float64
}

func summarize(x []float64) summary {
	s := summary{N: len(x)}
	if len(x) == 0 {
		return s
	}
	sorted := slices.Clone(x)
	slices.Sort(sorted)
	for _, v := range sorted {
		if v != 0 {
			s.NonZero++
		}
	}
	s.Min, s.Max = sorted[0], sorted[len(sorted)-1]
	s.Mean, s.StdDev = stat.MeanStdDev(sorted, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.Q90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	s.Q99 = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	return s
}

func writeStats(w io.Writer, x []float64) {
	s := summarize(x)
	fmt.Fprintf(w, "# n=%d nonzero=%d min=%g max=%g mean=%g stddev=%g median=%g q90=%g q99=%g\n",
		s.N, s.NonZero, s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.Q90, s.Q99)
}
