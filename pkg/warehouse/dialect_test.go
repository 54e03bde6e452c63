package warehouse_test

import (
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/frame"
	"rasgo-sdk/pkg/warehouse"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialects(t *testing.T) {
	assert.Equal(t, []string{"clickhouse", "postgres", "snowflake", "sqlite"}, warehouse.Dialects())

	for _, name := range warehouse.Dialects() {
		d, err := warehouse.GetDialect(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name)
		assert.NotEmpty(t, d.TablesQuery, name)
		assert.NotEmpty(t, d.ColumnsQuery, name)
		assert.NotEmpty(t, d.Clone, name)
		for _, kind := range []frame.Kind{frame.KindInteger, frame.KindFloat, frame.KindBoolean, frame.KindDatetime, frame.KindString} {
			assert.Contains(t, d.TypeMap(), kind, name)
		}
	}

	_, err := warehouse.GetDialect("oracle")
	assert.ErrorIs(t, err, api.ErrUnsupported)
}

func TestQualifyTable(t *testing.T) {
	snowflake, err := warehouse.GetDialect("SNOWFLAKE")
	require.NoError(t, err)
	assert.Equal(t, "DB.PUBLIC.T", snowflake.QualifyTable("DB", "PUBLIC", "T").FQTN())
	assert.Equal(t, "OTHER.S.T", snowflake.QualifyTable("DB", "PUBLIC", "OTHER.S.T").FQTN())

	postgres, err := warehouse.GetDialect("postgres")
	require.NoError(t, err)
	assert.Equal(t, "PUBLIC.T", postgres.QualifyTable("DB", "PUBLIC", "T").FQTN())

	clickhouse, err := warehouse.GetDialect("clickhouse")
	require.NoError(t, err)
	assert.Equal(t, "DB.T", clickhouse.QualifyTable("DB", "PUBLIC", "T").FQTN())

	sqlite, err := warehouse.GetDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "T", sqlite.QualifyTable("/tmp/x.db", "", "T").FQTN())
}

func TestColumnKind(t *testing.T) {
	cases := []struct {
		dialect, databaseType string
		kind                  frame.Kind
	}{
		{"snowflake", "FIXED", frame.KindInteger},
		{"snowflake", "NUMBER(38,0)", frame.KindInteger},
		{"snowflake", "TIMESTAMP_NTZ", frame.KindDatetime},
		{"postgres", "int8", frame.KindInteger},
		{"postgres", "NUMERIC", frame.KindFloat},
		{"postgres", "TEXT", frame.KindString},
		{"clickhouse", "Nullable(Int64)", frame.KindInteger},
		{"clickhouse", "LowCardinality(Nullable(String))", frame.KindString},
		{"clickhouse", "DateTime64(3)", frame.KindDatetime},
		{"sqlite", "BOOLEAN", frame.KindBoolean},
		{"sqlite", "real", frame.KindFloat},
	}

	for _, c := range cases {
		d, err := warehouse.GetDialect(c.dialect)
		require.NoError(t, err)
		kind, ok := d.ColumnKind(c.databaseType)
		assert.True(t, ok, c.databaseType)
		assert.Equal(t, c.kind, kind, c.databaseType)
	}

	sqlite, err := warehouse.GetDialect("sqlite")
	require.NoError(t, err)
	_, ok := sqlite.ColumnKind("")
	assert.False(t, ok)
}
