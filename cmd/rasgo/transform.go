package main

import (
	"fmt"
	"rasgo-sdk/cmd"
	"rasgo-sdk/pkg/frame"
	"rasgo-sdk/pkg/transform"

	"github.com/spf13/cobra"
)

var arithmetic = map[string]func(*frame.Dataset, float64, []string, []string) (*frame.Dataset, error){
	"add":      transform.Add,
	"subtract": transform.Subtract,
	"multiply": transform.Multiply,
	"divide":   transform.Divide,
}

func (a *app) transformCommand() *cobra.Command {
	var output string
	var columns, aliases []string
	var value float64
	var window int

	c := &cobra.Command{
		Use:   "transform <add|subtract|multiply|divide|rolling|cumulative> <csv>",
		Short: "Add derived columns to a dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			ds, err := a.readDataset(args[1])
			if err != nil {
				return err
			}

			switch op := args[0]; op {
			case "rolling":
				ds, err = transform.RollingAverage(ds, window, columns, aliases)
			case "cumulative":
				ds, err = transform.CumulativeAverage(ds, columns, aliases)
			default:
				fn, ok := arithmetic[op]
				if !ok {
					return fmt.Errorf("unknown transform '%s'", op)
				}
				ds, err = fn(ds, value, columns, aliases)
			}
			if err != nil {
				return err
			}
			return cmd.WriteDataset(ds, output, c.OutOrStdout())
		},
	}
	c.Flags().StringSliceVar(&columns, "columns", nil, "columns to transform")
	c.Flags().StringSliceVar(&aliases, "aliases", nil, "names of the new columns, one per column")
	c.Flags().Float64Var(&value, "value", 0, "operand of arithmetic transforms")
	c.Flags().IntVar(&window, "window", 3, "window of the rolling average")
	c.Flags().StringVarP(&output, "output", "o", "", "csv file to write")
	_ = c.MarkFlagRequired("columns")
	return c
}
