package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/cvnet/geneindex"
	"github.com/hupe1980/cvnet/source"
)

func newIndexCmd() *cobra.Command {
	var (
		list, dir, suffix, alphabet, output string
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Write the gene index of a genome list",
		Long: `Write the gene index of a genome list: one "genome start size" row per
genome, assigning contiguous global gene ids in list order. Gene counts are
the number of FASTA records of each genome file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			genomes, err := source.ReadListFile(list)
			if err != nil {
				return usageError(err)
			}
			alpha, err := source.AlphabetByName(alphabet)
			if err != nil {
				return configError(err)
			}
			// The method only matters for vectors; counting needs none.
			src, err := source.NewFASTA(dir, "Count", source.WithSuffix(suffix), source.WithAlphabet(alpha))
			if err != nil {
				return configError(err)
			}
			ix, _, err := geneindex.LoadOrRebuild(cmd.Context(), "", genomes, src.GeneCount)
			if err != nil {
				return usageError(err)
			}
			if output == "" || output == "-" {
				return ix.Write(cmd.OutOrStdout())
			}
			if err := geneindex.Save(output, ix); err != nil {
				return usageError(err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&list, "list", "i", "list", "genome list file")
	f.StringVarP(&dir, "genome-dir", "G", ".", "directory of genome files")
	f.StringVar(&suffix, "suffix", ".faa", "genome file suffix")
	f.StringVarP(&alphabet, "genome-type", "g", "faa", "sequence type: faa or ffn")
	f.StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}
