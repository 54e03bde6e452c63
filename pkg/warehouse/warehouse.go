package warehouse

import (
	"context"
	"fmt"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/frame"
	"reflect"
	"sort"
	"strings"
)

// DataWarehouse is the warehouse access used by the SDK. Every read returns a
// dataset, every write is table level.
type DataWarehouse interface {
	GetSourceTable(ctx context.Context, table string, opts TableOptions) (*frame.Dataset, error)

	GetSourceTables(ctx context.Context, database, schema string) (*frame.Dataset, error)

	GetSourceColumns(ctx context.Context, filter ColumnFilter) (*frame.Dataset, error)

	WriteDataFrameToTable(ctx context.Context, ds *frame.Dataset, table string, appendRows bool) error

	ExecuteQuery(ctx context.Context, query string, args ...any) error

	QueryIntoDataFrame(ctx context.Context, query string, args ...any) (*frame.Dataset, error)

	Close() error
}

type TableMetadata struct {
	Database string
	Schema   string
	Table    string
}

// FQTN joins the non empty parts of the table name with dots.
func (m TableMetadata) FQTN() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{m.Database, m.Schema, m.Table} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// TableOptions selects what GetSourceTable reads. Empty database and schema
// fall back to the connection defaults, a zero limit reads every row.
type TableOptions struct {
	Database string
	Schema   string
	Filters  map[string]any
	Columns  []string
	Limit    int
}

type ColumnFilter struct {
	Database string
	Schema   string
	Table    string
	DataType string
}

// MakeSelectStatement builds a SELECT over table with ? placeholders. Slice
// filter values become IN lists, string values starting with an operator are
// parsed as filter expressions and everything else is an equality. Filters are
// applied in sorted column order.
func MakeSelectStatement(table TableMetadata, filters map[string]any, limit int, columns []string) (string, []any, error) {
	if err := checkIdentifier("table", table.FQTN()); err != nil {
		return "", nil, err
	}

	selected := "*"
	if len(columns) > 0 {
		for _, c := range columns {
			if err := checkIdentifier("column", c); err != nil {
				return "", nil, err
			}
		}
		selected = strings.Join(columns, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s", selected, table.FQTN())

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var args []any
	comparisons := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := checkIdentifier("column", k); err != nil {
			return "", nil, err
		}
		cond, values, err := filterCondition(k, filters[k])
		if err != nil {
			return "", nil, err
		}
		comparisons = append(comparisons, cond)
		args = append(args, values...)
	}

	if len(comparisons) > 0 {
		query += " WHERE " + strings.Join(comparisons, " and ")
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return query, args, nil
}

func filterCondition(column string, value any) (string, []any, error) {
	if s, ok := value.(string); ok {
		if isFilterExpression(s) {
			cond, args, err := ParseFilter(column, s)
			if err != nil {
				return "", nil, api.Errorf(api.ErrInvalidParameter, "invalid filter on %s: %v", column, err)
			}
			return cond, args, nil
		}
		return column + " = ?", []any{s}, nil
	}

	if value == nil {
		return column + " IS NULL", nil, nil
	}

	rv := reflect.ValueOf(value)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		if rv.Len() == 0 {
			return "", nil, api.Errorf(api.ErrInvalidParameter, "filter on %s has an empty list", column)
		}
		values := make([]any, rv.Len())
		for i := range values {
			values[i] = rv.Index(i).Interface()
		}
		return fmt.Sprintf("%s IN (%s)", column, placeholders(len(values))), values, nil
	}

	return column + " = ?", []any{value}, nil
}
