package api

// FeatureStats holds the per column statistics of a profile. Count stats are
// always present, the remaining values only for numeric columns that still
// have rows after nulls are dropped.
type FeatureStats struct {
	RecCt        int `json:"recCt"`
	DistinctCt   int `json:"distinctCt"`
	NullRecCt    int `json:"nullRecCt"`
	ZeroValRecCt int `json:"zeroValRecCt"`

	MeanVal     *float64 `json:"meanVal,omitempty"`
	MedianVal   *float64 `json:"medianVal,omitempty"`
	MaxVal      *float64 `json:"maxVal,omitempty"`
	MinVal      *float64 `json:"minVal,omitempty"`
	SumVal      *float64 `json:"sumVal,omitempty"`
	StdDevVal   *float64 `json:"stdDevVal,omitempty"`
	VarianceVal *float64 `json:"varianceVal,omitempty"`
	SkewVal     *float64 `json:"skewVal,omitempty"`
	KurtosisVal *float64 `json:"kurtosisVal,omitempty"`
	Q1Val       *float64 `json:"q1Val,omitempty"`
	Q3Val       *float64 `json:"q3Val,omitempty"`
	Pct5Val     *float64 `json:"pct5Val,omitempty"`
	Pct95Val    *float64 `json:"pct95Val,omitempty"`
}

type HistogramBucket struct {
	Height        int     `json:"height"`
	BucketFloor   float64 `json:"bucketFloor"`
	BucketCeiling float64 `json:"bucketCeiling"`
}

type CommonValue struct {
	Val   any     `json:"val"`
	RecCt int     `json:"recCt"`
	Freq  float64 `json:"freq"`
}

type ColumnProfile struct {
	ColumnName   string            `json:"columnName"`
	DataType     string            `json:"dataType"`
	FeatureStats FeatureStats      `json:"featureStats"`
	CommonValues []CommonValue     `json:"commonValues"`
	Histogram    []HistogramBucket `json:"histogram,omitempty"`
}

type ColumnProfiles struct {
	ColumnProfiles []ColumnProfile `json:"columnProfiles"`
	Timestamp      string          `json:"timestamp"`
	URL            string          `json:"url"`
}

// ShapleyDistribution is the binned joint distribution of a feature and its
// shapley values. For numeric features FeatureEdges are bin edges and
// Histogram is a 2-D grid; for categorical features FeatureEdges holds the
// category values and each Histogram row counts the shap values of one
// category.
type ShapleyDistribution struct {
	Histogram    [][]float64 `json:"Histogram"`
	FeatureEdges []any       `json:"feature_edges"`
	ShapEdges    []float64   `json:"shap_edges"`
}

type ModelPerformance struct {
	RMSE float64 `json:"RMSE"`
	R2   float64 `json:"R2"`
}

type FeatureImportanceStats struct {
	TargetFeature               string                         `json:"targetFeature"`
	FeatureShapleyDistributions map[string]ShapleyDistribution `json:"featureShapleyDistributions"`
	FeatureImportance           map[string]float64             `json:"featureImportance"`
	ModelPerformance            ModelPerformance               `json:"modelPerformance"`
	Timestamp                   string                         `json:"timestamp"`
}

type Organization struct {
	Account    string  `json:"account"`
	Database   string  `json:"database"`
	Schema     string  `json:"schema"`
	Warehouse  string  `json:"warehouse"`
	RolePrefix *string `json:"rolePrefix"`
}

type UserProfile struct {
	Id           int          `json:"id"`
	Email        string       `json:"email"`
	SnowUsername *string      `json:"snowUsername"`
	SnowPassword string       `json:"snowPassword"`
	SnowRole     string       `json:"snowRole"`
	Organization Organization `json:"organization"`
}
