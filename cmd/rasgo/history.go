package main

import (
	"rasgo-sdk/pkg/rasgo"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func (a *app) historyCommand() *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "history",
		Short: "List tracked calls, newest first",
		Long:  "List tracked calls, newest first. Calls are only tracked when RASGO_TRACKING_DB is set.",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return a.withClient(c.OutOrStdout(), func(client *rasgo.Rasgo) error {
				events, err := client.History(c.Context(), a.experiment, limit)
				if err != nil {
					return err
				}

				t := table.NewWriter()
				t.SetOutputMirror(c.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Time", "Operation", "Dataset", "Experiment", "Duration", "Error"})
				for _, e := range events {
					t.AppendRow(table.Row{
						e.Timestamp.Local().Format(time.DateTime),
						e.Operation,
						e.DatasetId.String,
						e.ExperimentId.String,
						time.Duration(e.DurationMs) * time.Millisecond,
						e.Error.String,
					})
				}
				t.Render()
				return nil
			})
		},
	}
	c.Flags().IntVar(&limit, "limit", 20, "maximum number of calls to list, 0 for all")
	return c
}
