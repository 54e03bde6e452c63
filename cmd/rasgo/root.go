package main

import (
	"fmt"
	"io"
	"rasgo-sdk/cmd"
	"rasgo-sdk/pkg/frame"
	"rasgo-sdk/pkg/rasgo"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

type clientFactory func(envFile string, opts ...rasgo.Option) (*rasgo.Rasgo, error)

type app struct {
	envFile    string
	experiment string
	verbose    bool
	noBrowser  bool

	newClient clientFactory
	stdin     io.Reader
}

func newApp(newClient clientFactory, stdin io.Reader) *app {
	return &app{newClient: newClient, stdin: stdin}
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "rasgo",
		Short: "Profile, evaluate and prune datasets and move them in and out of the warehouse",
		Long: `rasgo runs the Rasgo SDK from the command line. Datasets are read from csv
files, "-" reads stdin. Results that are datasets are written as csv to
stdout or to the file given with --output.

Examples:
  rasgo profile sales.csv
  rasgo importance sales.csv --target REVENUE --exclude ID
  rasgo prune features sales.csv --target REVENUE --top-n 10 -o pruned.csv
  rasgo warehouse read SALES --filter "REGION=east" --limit 100`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			cmd.SetLogLevel(a.verbose)
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env", "", "env file to load config from")
	root.PersistentFlags().StringVar(&a.experiment, "experiment", "", "experiment id used to tag datasets and tracked calls")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&a.noBrowser, "no-browser", false, "print result urls instead of opening them")

	root.AddCommand(
		a.profileCommand(),
		a.importanceCommand(),
		a.evaluateCommand(),
		a.pruneCommand(),
		a.transformCommand(),
		a.warehouseCommand(),
		a.historyCommand(),
	)
	return root
}

// withClient builds a client for one command run and closes it afterwards.
// Console messages of the sdk go to console.
func (a *app) withClient(console io.Writer, run func(*rasgo.Rasgo) error) error {
	open := browser.OpenURL
	if a.noBrowser {
		open = func(string) error { return fmt.Errorf("browser disabled") }
	}

	client, err := a.newClient(a.envFile, rasgo.WithOutput(console), rasgo.WithBrowser(open))
	if err != nil {
		return err
	}
	defer client.Close()

	if a.experiment != "" {
		client.WithExperiment(a.experiment)
	}
	return run(client)
}

func (a *app) readDataset(path string) (*frame.Dataset, error) {
	return cmd.ReadDataset(path, a.stdin)
}

func printDataset(out io.Writer, ds *frame.Dataset) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)

	header := table.Row{}
	for _, name := range ds.Names() {
		header = append(header, name)
	}
	t.AppendHeader(header)

	for i := 0; i < ds.Nrow(); i++ {
		row := table.Row{}
		for _, name := range ds.Names() {
			row = append(row, ds.Value(name, i))
		}
		t.AppendRow(row)
	}
	t.Render()
}
