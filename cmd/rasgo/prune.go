package main

import (
	"rasgo-sdk/cmd"
	"rasgo-sdk/pkg/frame"
	"rasgo-sdk/pkg/prune"
	"rasgo-sdk/pkg/rasgo"

	"github.com/spf13/cobra"
)

func (a *app) pruneCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "prune",
		Short: "Drop low value rows, columns or features from a dataset",
	}

	var output string
	var columns []string

	// pruneRun reads the dataset, prunes it and writes the result.
	pruneRun := func(fn func(*cobra.Command, *rasgo.Rasgo, *frame.Dataset) (*frame.Dataset, error)) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			ds, err := a.readDataset(args[0])
			if err != nil {
				return err
			}
			return a.withClient(c.ErrOrStderr(), func(client *rasgo.Rasgo) error {
				pruned, err := fn(c, client, ds)
				if err != nil {
					return err
				}
				return cmd.WriteDataset(pruned, output, c.OutOrStdout())
			})
		}
	}

	var target string
	var opts prune.FeatureOptions
	var topN int
	var topPct, pctOfTop float64
	features := &cobra.Command{
		Use:   "features <csv>",
		Short: "Drop the features that explain the target least",
		Args:  cobra.ExactArgs(1),
		RunE: pruneRun(func(c *cobra.Command, client *rasgo.Rasgo, ds *frame.Dataset) (*frame.Dataset, error) {
			if c.Flags().Changed("top-n") {
				opts.TopN = &topN
			}
			if c.Flags().Changed("top-pct") {
				opts.TopNPct = &topPct
			}
			if c.Flags().Changed("pct-of-top") {
				opts.PctOfTopFeature = &pctOfTop
			}
			return client.Prune().Features(c.Context(), ds, target, opts)
		}),
	}
	features.Flags().StringVar(&target, "target", "", "target column")
	features.Flags().StringVar(&opts.TimeseriesIndex, "index", "", "datetime column to split train and test data on")
	features.Flags().StringSliceVar(&opts.ExcludeColumns, "exclude", nil, "columns to leave out of the model")
	features.Flags().IntVar(&topN, "top-n", 0, "keep the n most important features")
	features.Flags().Float64Var(&topPct, "top-pct", 0, "keep this fraction of the features")
	features.Flags().Float64Var(&pctOfTop, "pct-of-top", 0, "keep features at least this fraction as important as the top feature")
	_ = features.MarkFlagRequired("target")

	rows := &cobra.Command{
		Use:   "rows <csv>",
		Short: "Drop rows with missing values",
		Args:  cobra.ExactArgs(1),
		RunE: pruneRun(func(c *cobra.Command, client *rasgo.Rasgo, ds *frame.Dataset) (*frame.Dataset, error) {
			return client.Prune().RowsWithMissingData(ds, columns)
		}),
	}

	var threshold float64
	cols := &cobra.Command{
		Use:   "columns <csv>",
		Short: "Drop columns missing more than a share of their values",
		Args:  cobra.ExactArgs(1),
		RunE: pruneRun(func(c *cobra.Command, client *rasgo.Rasgo, ds *frame.Dataset) (*frame.Dataset, error) {
			return client.Prune().ColumnsWithMissingData(ds, columns, threshold)
		}),
	}
	cols.Flags().Float64Var(&threshold, "threshold", 50, "percent of missing values above which a column is dropped")

	duplicates := &cobra.Command{
		Use:   "duplicates <csv>",
		Short: "Drop rows that duplicate an earlier row",
		Args:  cobra.ExactArgs(1),
		RunE: pruneRun(func(c *cobra.Command, client *rasgo.Rasgo, ds *frame.Dataset) (*frame.Dataset, error) {
			return client.Prune().DuplicateRows(ds, columns)
		}),
	}

	for _, sub := range []*cobra.Command{features, rows, cols, duplicates} {
		sub.Flags().StringVarP(&output, "output", "o", "", "csv file to write")
		if sub != features {
			sub.Flags().StringSliceVar(&columns, "columns", nil, "columns to consider, all when empty")
		}
		c.AddCommand(sub)
	}
	return c
}
