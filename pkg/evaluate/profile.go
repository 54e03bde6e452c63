package evaluate

import (
	"context"
	"fmt"
	"log/slog"
	"rasgo-sdk/internal/tracking"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/frame"
	"time"
)

const commonValueLimit = 10

type ProfileOptions struct {
	ExcludeColumns []string
	// ReturnCLIOnly skips opening the profile page in a browser.
	ReturnCLIOnly bool
	// TimestampOverride replaces the generated payload timestamp, so that a
	// profile can be matched to the importance run that produced it.
	TimestampOverride string
}

// dropNulls removes columns that are entirely null, then any row that still
// holds a null.
func dropNulls(ds *frame.Dataset) (*frame.Dataset, error) {
	out, err := ds.DropEmptyColumns()
	if err != nil {
		return nil, err
	}
	return out.DropNullRows(), nil
}

// Profile computes per column statistics of ds and publishes them. Count
// statistics cover every row; the rest are computed after nulls are dropped.
func (e *Evaluator) Profile(ctx context.Context, ds *frame.Dataset, opts ProfileOptions) (result api.ColumnProfiles, err error) {
	defer func(start time.Time) { e.track(ctx, "profile", ds, start, err) }(time.Now())

	id := frame.SetDatasetID(ds, e.experimentID)

	timestamp := opts.TimestampOverride
	if timestamp == "" {
		timestamp = e.timestamp()
	}

	if err := confirmColumns(ds, opts.ExcludeColumns...); err != nil {
		return api.ColumnProfiles{}, err
	}
	profiled, err := ds.DropColumns(opts.ExcludeColumns...)
	if err != nil {
		return api.ColumnProfiles{}, err
	}

	columns := profiled.Names()
	profiles := make([]api.ColumnProfile, len(columns))
	for i, column := range columns {
		profiles[i] = api.ColumnProfile{
			ColumnName: column,
			DataType:   frame.MapType(profiled.Kind(column)),
			FeatureStats: api.FeatureStats{
				RecCt:        profiled.Nrow(),
				DistinctCt:   distinctCount(profiled, column),
				NullRecCt:    profiled.NullCount(column),
				ZeroValRecCt: zeroCount(profiled, column),
			},
			CommonValues: []api.CommonValue{},
		}
	}

	dense, err := dropNulls(profiled)
	if err != nil {
		return api.ColumnProfiles{}, err
	}

	rows := make([]int, dense.Nrow())
	for i := range rows {
		rows[i] = i
	}

	for i := range profiles {
		profile := &profiles[i]
		if !dense.HasColumn(profile.ColumnName) {
			continue
		}

		kind := dense.Kind(profile.ColumnName)
		profile.DataType = frame.MapType(kind)

		var counts []valueCount
		if frame.ProfileType(kind) == "number" {
			values := dense.Floats(profile.ColumnName)
			describe(values, &profile.FeatureStats)
			profile.Histogram = numericHistogram(values)
			counts = valueCounts(dense, profile.ColumnName, rows, false)
		} else {
			counts = valueCounts(dense, profile.ColumnName, rows, true)
		}

		for _, c := range counts[:min(len(counts), commonValueLimit)] {
			profile.CommonValues = append(profile.CommonValues, api.CommonValue{
				Val:   c.value,
				RecCt: c.count,
				Freq:  float64(c.count) / float64(profile.FeatureStats.RecCt),
			})
		}
	}

	url := e.datasetURL(id, "features")
	result = api.ColumnProfiles{ColumnProfiles: profiles, Timestamp: timestamp, URL: url}

	slog.Info("publishing dataframe profile", "dataset_id", id, "columns", len(profiles))
	if err := e.publisher.PostDataframeProfile(ctx, id, result); err != nil {
		return api.ColumnProfiles{}, err
	}
	e.tracker.Published(ctx, id, tracking.PayloadProfile, url, result)

	if !opts.ReturnCLIOnly {
		e.open(url)
		fmt.Fprintln(e.out, "Profile URL:", url)
	}
	return result, nil
}
