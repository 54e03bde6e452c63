package evaluate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"rasgo-sdk/internal/tracking"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/frame"
	"slices"
	"time"

	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/floats"
)

const (
	importanceSteps = 8
	trainingPct     = 0.8
	shapBins        = 10
	topCategories   = 10
)

type ImportanceOptions struct {
	// TimeseriesIndex orders rows for a date based split. Without it rows
	// are split at random.
	TimeseriesIndex string
	ExcludeColumns  []string
	ReturnCLIOnly   bool
}

// prepareFrame drops the excluded columns, nulls and datetime columns.
func prepareFrame(ds *frame.Dataset, exclude []string) (*frame.Dataset, error) {
	out, err := ds.DropColumns(exclude...)
	if err != nil {
		return nil, err
	}
	if out, err = dropNulls(out); err != nil {
		return nil, err
	}

	var dates []string
	for _, column := range out.Names() {
		if out.Kind(column) == frame.KindDatetime {
			dates = append(dates, column)
		}
	}
	return out.DropColumns(dates...)
}

// FeatureImportance fits a regression model of targetColumn on the other
// columns and publishes the shapley value distribution and mean absolute
// shapley value of every feature, along with the model's test performance.
// The dataset is profiled first with the same timestamp.
func (e *Evaluator) FeatureImportance(ctx context.Context, ds *frame.Dataset, targetColumn string, opts ImportanceOptions) (result api.FeatureImportanceStats, err error) {
	defer func(start time.Time) { e.track(ctx, "feature_importance", ds, start, err) }(time.Now())

	if err := confirmColumns(ds, targetColumn, opts.TimeseriesIndex); err != nil {
		return api.FeatureImportanceStats{}, err
	}
	if err := confirmColumns(ds, opts.ExcludeColumns...); err != nil {
		return api.FeatureImportanceStats{}, err
	}
	// The target and index stay available to the model even when excluded
	// from the profile.
	var exclude []string
	for _, c := range opts.ExcludeColumns {
		if c != targetColumn && c != opts.TimeseriesIndex {
			exclude = append(exclude, c)
		}
	}
	if !ds.Kind(targetColumn).IsNumeric() {
		return api.FeatureImportanceStats{}, api.Errorf(api.ErrInvalidParameter, "target column %s must be numeric", targetColumn)
	}

	bar := progressbar.NewOptions(importanceSteps,
		progressbar.OptionSetDescription("Calculating Feature Importance"),
		progressbar.OptionSetWriter(e.out),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish() //nolint:errcheck

	id := frame.SetDatasetID(ds, e.experimentID)
	_ = bar.Add(1)

	timestamp := e.timestamp()
	if _, err := e.Profile(ctx, ds, ProfileOptions{ExcludeColumns: opts.ExcludeColumns, ReturnCLIOnly: true, TimestampOverride: timestamp}); err != nil {
		return api.FeatureImportanceStats{}, err
	}
	_ = bar.Add(1)

	working := ds.Copy()
	_ = bar.Add(1)

	train, test, err := e.TrainTestSplit(working, trainingPct, opts.TimeseriesIndex)
	if err != nil {
		return api.FeatureImportanceStats{}, err
	}
	if opts.TimeseriesIndex != "" {
		exclude = append(exclude, opts.TimeseriesIndex)
	}
	_ = bar.Add(1)

	if train, err = prepareFrame(train, exclude); err != nil {
		return api.FeatureImportanceStats{}, err
	}
	if test, err = prepareFrame(test, exclude); err != nil {
		return api.FeatureImportanceStats{}, err
	}
	if !train.HasColumn(targetColumn) || train.Nrow() == 0 {
		return api.FeatureImportanceStats{}, api.Errorf(api.ErrInvalidParameter, "no training rows with a value for target column %s", targetColumn)
	}

	evalSet := test
	if test.Nrow() == 0 || !test.HasColumn(targetColumn) {
		slog.Warn("test split has no usable rows, evaluating model on the training split", "dataset_id", id)
		evalSet = train
	}

	var features []string
	for _, column := range train.Names() {
		if column != targetColumn && evalSet.HasColumn(column) {
			features = append(features, column)
		}
	}
	_ = bar.Add(1)

	model, err := fitLinearModel(train, features, targetColumn)
	if err != nil {
		return api.FeatureImportanceStats{}, err
	}
	shap := model.shapley(train)
	_ = bar.Add(1)

	distributions := make(map[string]api.ShapleyDistribution, len(features))
	for _, feature := range features {
		if train.Kind(feature).IsNumeric() {
			distributions[feature] = numericShapDistribution(train.Floats(feature), shap[feature], distinctCount(train, feature))
		} else {
			distributions[feature] = categoricalShapDistribution(train, feature, shap[feature])
		}
	}
	_ = bar.Add(1)

	importance := make(map[string]float64, len(features))
	for _, feature := range features {
		total := 0.0
		for _, v := range shap[feature] {
			total += math.Abs(v)
		}
		importance[feature] = total / float64(len(shap[feature]))
	}
	performance := model.performance(evalSet)
	_ = bar.Add(1)

	url := e.datasetURL(id, "importance")
	result = api.FeatureImportanceStats{
		TargetFeature:               targetColumn,
		FeatureShapleyDistributions: distributions,
		FeatureImportance:           importance,
		ModelPerformance:            performance,
		Timestamp:                   timestamp,
	}

	slog.Info("publishing feature importance", "dataset_id", id, "target", targetColumn, "features", len(features))
	if err := e.publisher.PostFeatureImportance(ctx, id, result); err != nil {
		return api.FeatureImportanceStats{}, err
	}
	e.tracker.Published(ctx, id, tracking.PayloadImportance, url, result)

	if !opts.ReturnCLIOnly {
		e.open(url)
	}
	_ = bar.Finish()
	fmt.Fprintln(e.out, "Importance URL:", url)
	return result, nil
}

// numericShapDistribution bins feature values against shapley values on a
// bins x bins grid, with bins capped by the number of distinct values.
func numericShapDistribution(values, shap []float64, distinct int) api.ShapleyDistribution {
	bins := max(min(shapBins, distinct), 1)
	xEdges := binEdges(floats.Min(values), floats.Max(values), bins)
	yEdges := binEdges(floats.Min(shap), floats.Max(shap), bins)

	grouped := make([][]float64, bins)
	for i, v := range values {
		b := binIndex(v, xEdges)
		grouped[b] = append(grouped[b], shap[i])
	}

	grid := make([][]float64, bins)
	for b, group := range grouped {
		grid[b] = histogram(group, yEdges)
	}

	featureEdges := make([]any, len(xEdges))
	for i, edge := range xEdges {
		featureEdges[i] = edge
	}
	return api.ShapleyDistribution{Histogram: grid, FeatureEdges: featureEdges, ShapEdges: yEdges}
}

// categoricalShapDistribution histograms the shapley values of each of the
// most frequent categories over the feature's full shapley range.
func categoricalShapDistribution(ds *frame.Dataset, feature string, shap []float64) api.ShapleyDistribution {
	edges := binEdges(floats.Min(shap), floats.Max(shap), shapBins)
	values := ds.Strings(feature)

	counts := valueCounts(ds, feature, allRows(ds), true)
	counts = counts[:min(len(counts), topCategories)]

	dist := api.ShapleyDistribution{
		Histogram:    make([][]float64, 0, len(counts)),
		FeatureEdges: make([]any, 0, len(counts)),
		ShapEdges:    slices.Clone(edges),
	}
	for _, c := range counts {
		category := c.value.(string)
		var group []float64
		for i, v := range values {
			if v == category {
				group = append(group, shap[i])
			}
		}
		dist.Histogram = append(dist.Histogram, histogram(group, edges))
		dist.FeatureEdges = append(dist.FeatureEdges, category)
	}
	return dist
}
