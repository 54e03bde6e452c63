package main

import (
	"fmt"
	"io"
	"rasgo-sdk/cmd"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/evaluate"
	"rasgo-sdk/pkg/rasgo"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func (a *app) profileCommand() *cobra.Command {
	var opts evaluate.ProfileOptions

	c := &cobra.Command{
		Use:   "profile <csv>",
		Short: "Profile every column of a dataset and publish the profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ds, err := a.readDataset(args[0])
			if err != nil {
				return err
			}
			return a.withClient(c.OutOrStdout(), func(client *rasgo.Rasgo) error {
				profiles, err := client.Evaluate().Profile(c.Context(), ds, opts)
				if err != nil {
					return err
				}
				if opts.ReturnCLIOnly {
					printProfiles(c.OutOrStdout(), profiles)
				}
				return nil
			})
		},
	}
	c.Flags().StringSliceVar(&opts.ExcludeColumns, "exclude", nil, "columns to leave out of the profile")
	c.Flags().BoolVar(&opts.ReturnCLIOnly, "cli-only", false, "print the profile instead of opening it in a browser")
	c.Flags().StringVar(&opts.TimestampOverride, "timestamp", "", "timestamp recorded with the profile")
	return c
}

func printProfiles(out io.Writer, profiles api.ColumnProfiles) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "Rows", "Nulls", "Distinct", "Mean", "Min", "Max"})
	for _, p := range profiles.ColumnProfiles {
		s := p.FeatureStats
		t.AppendRow(table.Row{p.ColumnName, p.DataType, s.RecCt, s.NullRecCt, s.DistinctCt, optional(s.MeanVal), optional(s.MinVal), optional(s.MaxVal)})
	}
	t.Render()
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.4g", *v)
}

func (a *app) importanceCommand() *cobra.Command {
	var target string
	var opts evaluate.ImportanceOptions

	c := &cobra.Command{
		Use:   "importance <csv>",
		Short: "Measure how much each feature explains the target column",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ds, err := a.readDataset(args[0])
			if err != nil {
				return err
			}
			return a.withClient(c.OutOrStdout(), func(client *rasgo.Rasgo) error {
				stats, err := client.Evaluate().FeatureImportance(c.Context(), ds, target, opts)
				if err != nil {
					return err
				}
				printImportance(c.OutOrStdout(), stats)
				return nil
			})
		},
	}
	c.Flags().StringVar(&target, "target", "", "target column")
	c.Flags().StringVar(&opts.TimeseriesIndex, "index", "", "datetime column to split train and test data on")
	c.Flags().StringSliceVar(&opts.ExcludeColumns, "exclude", nil, "columns to leave out of the model")
	c.Flags().BoolVar(&opts.ReturnCLIOnly, "cli-only", false, "do not open the result in a browser")
	_ = c.MarkFlagRequired("target")
	return c
}

func printImportance(out io.Writer, stats api.FeatureImportanceStats) {
	features := make([]string, 0, len(stats.FeatureImportance))
	for f := range stats.FeatureImportance {
		features = append(features, f)
	}
	sort.SliceStable(features, func(i, j int) bool {
		return stats.FeatureImportance[features[i]] > stats.FeatureImportance[features[j]]
	})

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("Target %s  RMSE %.4g  R2 %.4g", stats.TargetFeature, stats.ModelPerformance.RMSE, stats.ModelPerformance.R2))
	t.AppendHeader(table.Row{"Feature", "Importance"})
	for _, f := range features {
		t.AppendRow(table.Row{f, fmt.Sprintf("%.4f", stats.FeatureImportance[f])})
	}
	t.Render()
}

func (a *app) evaluateCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "evaluate",
		Short: "Inspect data quality without publishing anything",
	}

	var output string
	var columns []string
	duplicates := &cobra.Command{
		Use:   "duplicates <csv>",
		Short: "List rows that duplicate an earlier row",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ds, err := a.readDataset(args[0])
			if err != nil {
				return err
			}
			return a.withClient(c.ErrOrStderr(), func(client *rasgo.Rasgo) error {
				dupes, err := client.Evaluate().DuplicateRows(ds, columns)
				if err != nil {
					return err
				}
				return cmd.WriteDataset(dupes, output, c.OutOrStdout())
			})
		},
	}
	duplicates.Flags().StringSliceVar(&columns, "columns", nil, "columns that identify a row, all when empty")
	duplicates.Flags().StringVarP(&output, "output", "o", "", "csv file to write")

	missing := &cobra.Command{
		Use:   "missing <csv>",
		Short: "Count the missing values of every column",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ds, err := a.readDataset(args[0])
			if err != nil {
				return err
			}
			return a.withClient(c.OutOrStdout(), func(client *rasgo.Rasgo) error {
				client.Evaluate().MissingData(ds)
				return nil
			})
		},
	}

	var datetimeColumn string
	var partitions []string
	gaps := &cobra.Command{
		Use:   "gaps <csv>",
		Short: "Find gaps in a timeseries",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ds, err := a.readDataset(args[0])
			if err != nil {
				return err
			}
			return a.withClient(c.ErrOrStderr(), func(client *rasgo.Rasgo) error {
				out, err := client.Evaluate().TimeseriesGaps(ds, datetimeColumn, partitions)
				if err != nil {
					return err
				}
				return cmd.WriteDataset(out, output, c.OutOrStdout())
			})
		},
	}
	gaps.Flags().StringVar(&datetimeColumn, "datetime", "", "datetime column")
	gaps.Flags().StringSliceVar(&partitions, "partition", nil, "columns partitioning the series")
	gaps.Flags().StringVarP(&output, "output", "o", "", "csv file to write")
	_ = gaps.MarkFlagRequired("datetime")

	var column, dataType string
	mismatches := &cobra.Command{
		Use:   "mismatches <csv>",
		Short: "List the values of a column that do not convert to a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ds, err := a.readDataset(args[0])
			if err != nil {
				return err
			}
			return a.withClient(c.ErrOrStderr(), func(client *rasgo.Rasgo) error {
				out, err := client.Evaluate().TypeMismatches(ds, column, dataType)
				if err != nil {
					return err
				}
				return cmd.WriteDataset(out, output, c.OutOrStdout())
			})
		},
	}
	mismatches.Flags().StringVar(&column, "column", "", "column to check")
	mismatches.Flags().StringVar(&dataType, "type", "numeric", "type to convert to, numeric or datetime")
	mismatches.Flags().StringVarP(&output, "output", "o", "", "csv file to write")
	_ = mismatches.MarkFlagRequired("column")

	c.AddCommand(duplicates, missing, gaps, mismatches)
	return c
}
