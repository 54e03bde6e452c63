package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"rasgo-sdk/pkg/frame"
	"strings"
)

// SetLogLevel routes sdk logs through the default slog handler at debug
// level when verbose, warnings only otherwise.
func SetLogLevel(verbose bool) {
	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		slog.SetLogLoggerLevel(slog.LevelWarn)
	}
}

// ReadDataset loads a csv file, or stdin when path is "-".
func ReadDataset(path string, stdin io.Reader) (*frame.Dataset, error) {
	if path == "-" {
		return frame.ReadCSV(stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening dataset '%s': %w", path, err)
	}
	defer file.Close()

	ds, err := frame.ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("error reading dataset '%s': %w", path, err)
	}
	return ds, nil
}

// WriteDataset writes ds as csv to path, or to stdout when path is "" or "-".
func WriteDataset(ds *frame.Dataset, path string, stdout io.Writer) error {
	if path == "" || path == "-" {
		return ds.WriteCSV(stdout)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating output file '%s': %w", path, err)
	}
	if err := ds.WriteCSV(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ParseFilters reads column=value pairs. Values may carry an operator prefix,
// e.g. "AMOUNT=>= 10", and "a|b|c" lists become IN filters.
func ParseFilters(pairs []string) (map[string]any, error) {
	filters := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		column, value, ok := strings.Cut(pair, "=")
		if !ok || column == "" {
			return nil, fmt.Errorf("invalid filter '%s', expected column=value", pair)
		}
		if strings.Contains(value, "|") {
			filters[column] = strings.Split(value, "|")
		} else {
			filters[column] = value
		}
	}
	return filters, nil
}
