package main

import (
	"rasgo-sdk/cmd"
	"rasgo-sdk/pkg/rasgo"
	"rasgo-sdk/pkg/warehouse"

	"github.com/spf13/cobra"
)

func (a *app) warehouseCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "warehouse",
		Short: "Read and write warehouse tables",
	}

	var database, schema string
	tables := &cobra.Command{
		Use:   "tables",
		Short: "List the tables of a schema",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return a.withWarehouse(c, func(w *warehouse.SQLWarehouse) error {
				ds, err := w.GetSourceTables(c.Context(), database, schema)
				if err != nil {
					return err
				}
				printDataset(c.OutOrStdout(), ds)
				return nil
			})
		},
	}

	var filter warehouse.ColumnFilter
	columns := &cobra.Command{
		Use:   "columns",
		Short: "List the columns of a schema",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			filter.Database, filter.Schema = database, schema
			return a.withWarehouse(c, func(w *warehouse.SQLWarehouse) error {
				ds, err := w.GetSourceColumns(c.Context(), filter)
				if err != nil {
					return err
				}
				printDataset(c.OutOrStdout(), ds)
				return nil
			})
		},
	}
	columns.Flags().StringVar(&filter.Table, "table", "", "only list columns of this table")
	columns.Flags().StringVar(&filter.DataType, "type", "", "only list columns of this data type")

	var output string
	var filters, selected []string
	var limit int
	read := &cobra.Command{
		Use:   "read <table>",
		Short: "Read a table into a csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			parsed, err := cmd.ParseFilters(filters)
			if err != nil {
				return err
			}
			opts := warehouse.TableOptions{Database: database, Schema: schema, Filters: parsed, Columns: selected, Limit: limit}
			return a.withWarehouse(c, func(w *warehouse.SQLWarehouse) error {
				ds, err := w.GetSourceTable(c.Context(), args[0], opts)
				if err != nil {
					return err
				}
				return cmd.WriteDataset(ds, output, c.OutOrStdout())
			})
		},
	}
	read.Flags().StringArrayVar(&filters, "filter", nil, "column=value filter, repeatable")
	read.Flags().StringSliceVar(&selected, "columns", nil, "columns to read, all when empty")
	read.Flags().IntVar(&limit, "limit", 0, "maximum number of rows")
	read.Flags().StringVarP(&output, "output", "o", "", "csv file to write")

	var appendRows bool
	write := &cobra.Command{
		Use:   "write <csv> <table>",
		Short: "Write a csv to a table, replacing it unless --append is set",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			ds, err := a.readDataset(args[0])
			if err != nil {
				return err
			}
			return a.withWarehouse(c, func(w *warehouse.SQLWarehouse) error {
				return w.WriteDataFrameToTable(c.Context(), ds, args[1], appendRows)
			})
		},
	}
	write.Flags().BoolVar(&appendRows, "append", false, "append to an existing table")

	query := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a query and write the result as csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return a.withWarehouse(c, func(w *warehouse.SQLWarehouse) error {
				ds, err := w.QueryIntoDataFrame(c.Context(), args[0])
				if err != nil {
					return err
				}
				return cmd.WriteDataset(ds, output, c.OutOrStdout())
			})
		},
	}
	query.Flags().StringVarP(&output, "output", "o", "", "csv file to write")

	c.PersistentFlags().StringVar(&database, "database", "", "database, the connection default when empty")
	c.PersistentFlags().StringVar(&schema, "schema", "", "schema, the connection default when empty")
	c.AddCommand(tables, columns, read, write, query)
	return c
}

func (a *app) withWarehouse(c *cobra.Command, run func(*warehouse.SQLWarehouse) error) error {
	return a.withClient(c.ErrOrStderr(), func(client *rasgo.Rasgo) error {
		w, err := client.Connect(c.Context())
		if err != nil {
			return err
		}
		return run(w)
	})
}
