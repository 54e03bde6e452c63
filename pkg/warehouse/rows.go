package warehouse

import (
	"database/sql"
	"fmt"
	"math"
	"rasgo-sdk/pkg/frame"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/series"
	"github.com/jmoiron/sqlx"
)

const timestampLayout = "2006-01-02 15:04:05.999999"

// scanDataset reads every row into a dataset. Column kinds come from the
// column types reported by the driver, resolved through the dialect
// catalogue, and cells keep the values the driver returned.
func scanDataset(rows *sqlx.Rows, dialect *Dialect) (*frame.Dataset, error) {
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("error reading result columns: %w", err)
	}

	cells := make([][]any, len(types))
	for i := range cells {
		cells[i] = []any{}
	}
	for n := 0; rows.Next(); n++ {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("error scanning row %d: %w", n, err)
		}
		for i, v := range values {
			cells[i] = append(cells[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}

	columns := make([]series.Series, len(types))
	for i, ct := range types {
		columns[i] = buildSeries(ct.Name(), columnKind(dialect, ct, cells[i]), cells[i])
	}
	return frame.FromColumns(columns...)
}

func columnKind(dialect *Dialect, ct *sql.ColumnType, values []any) frame.Kind {
	if kind, ok := dialect.ColumnKind(ct.DatabaseTypeName()); ok {
		if kind == frame.KindInteger {
			if _, scale, ok := ct.DecimalSize(); ok && scale > 0 {
				return frame.KindFloat
			}
		}
		return kind
	}
	if kind, ok := scanTypeKind(ct.ScanType()); ok {
		return kind
	}
	return valueKind(values)
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	nullTimeType  = reflect.TypeOf(sql.NullTime{})
	nullIntTypes  = []reflect.Type{reflect.TypeOf(sql.NullInt64{}), reflect.TypeOf(sql.NullInt32{}), reflect.TypeOf(sql.NullInt16{}), reflect.TypeOf(sql.NullByte{})}
	nullFloatType = reflect.TypeOf(sql.NullFloat64{})
	nullBoolType  = reflect.TypeOf(sql.NullBool{})
)

// scanTypeKind covers numeric, boolean and time scan types. Text scan types
// are left to valueKind since some drivers scan decimals into strings.
func scanTypeKind(t reflect.Type) (frame.Kind, bool) {
	if t == nil {
		return "", false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType, nullTimeType:
		return frame.KindDatetime, true
	case nullFloatType:
		return frame.KindFloat, true
	case nullBoolType:
		return frame.KindBoolean, true
	}
	for _, nt := range nullIntTypes {
		if t == nt {
			return frame.KindInteger, true
		}
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return frame.KindInteger, true
	case reflect.Float32, reflect.Float64:
		return frame.KindFloat, true
	case reflect.Bool:
		return frame.KindBoolean, true
	}
	return "", false
}

// valueKind classifies a column with no declared type, such as an
// expression in sqlite, by the first value the driver returned.
func valueKind(values []any) frame.Kind {
	for _, v := range values {
		switch v.(type) {
		case nil:
			continue
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return frame.KindInteger
		case float32, float64:
			return frame.KindFloat
		case bool:
			return frame.KindBoolean
		case time.Time:
			return frame.KindDatetime
		default:
			return frame.KindString
		}
	}
	return frame.KindString
}

// buildSeries converts the driver values of a column to a series of the
// given kind. A column with a value that does not convert is kept as text.
func buildSeries(name string, kind frame.Kind, values []any) series.Series {
	out := make([]any, len(values))

	var convert func(any) (any, bool)
	t := series.String
	switch kind {
	case frame.KindInteger:
		convert, t = toInt, series.Int
	case frame.KindFloat:
		convert, t = toFloat, series.Float
	case frame.KindBoolean:
		convert, t = toBool, series.Bool
	default:
		convert = func(v any) (any, bool) { return renderCell(v), true }
	}

	for i, v := range values {
		if v == nil {
			continue
		}
		converted, ok := convert(v)
		if !ok {
			return buildSeries(name, frame.KindString, values)
		}
		out[i] = converted
	}
	return series.New(out, t, name)
}

func toInt(v any) (any, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int8:
		return int(val), true
	case int16:
		return int(val), true
	case int32:
		return int(val), true
	case int64:
		return int(val), true
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, false
		}
		return int(val), true
	case uint8:
		return int(val), true
	case uint16:
		return int(val), true
	case uint32:
		return int(val), true
	case uint64:
		if val > math.MaxInt64 {
			return nil, false
		}
		return int(val), true
	case float64:
		if val != math.Trunc(val) {
			return nil, false
		}
		return int(val), true
	case []byte, string:
		i, err := strconv.ParseInt(strings.TrimSpace(renderCell(val)), 10, 64)
		if err != nil {
			return nil, false
		}
		return int(i), true
	}
	return nil, false
}

func toFloat(v any) (any, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case []byte, string:
		f, err := strconv.ParseFloat(strings.TrimSpace(renderCell(val)), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	}
	if i, ok := toInt(v); ok {
		return float64(i.(int)), true
	}
	return nil, false
}

func toBool(v any) (any, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case []byte, string:
		b, err := strconv.ParseBool(strings.TrimSpace(renderCell(val)))
		if err != nil {
			return nil, false
		}
		return b, true
	}
	if i, ok := toInt(v); ok && (i.(int) == 0 || i.(int) == 1) {
		return i.(int) == 1, true
	}
	return nil, false
}

func renderCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format(timestampLayout)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case *string:
		if val == nil {
			return ""
		}
		return *val
	default:
		return fmt.Sprint(val)
	}
}
