package integrationtests

import (
	"context"
	"rasgo-sdk/pkg/frame"
	"rasgo-sdk/pkg/warehouse"
	"testing"
	"time"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgresWarehouse(t *testing.T, ctx context.Context) *warehouse.SQLWarehouse {
	t.Helper()

	dsn := setupPostgresContainer(t, ctx)
	w, err := warehouse.Connect(ctx, warehouse.Credentials{
		Dialect:    "postgres",
		DSN:        dsn,
		Schema:     "public",
		RolePrefix: "ORG_",
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestPostgresWarehouse(t *testing.T) {
	skipShort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	w := setupPostgresWarehouse(t, ctx)

	ds, err := frame.FromColumns(
		series.New([]int{1, 2, 3}, series.Int, "Store Id"),
		series.New([]float64{10.5, 20, 30.25}, series.Float, "amount"),
		series.New([]bool{true, false, true}, series.Bool, "open"),
		series.New([]string{"east", "west", "east"}, series.String, "region"),
	)
	require.NoError(t, err)

	require.NoError(t, w.WriteDataFrameToTable(ctx, ds, "Sales", false))
	require.NoError(t, w.WriteDataFrameToTable(ctx, ds, "Sales", true))

	read, err := w.GetSourceTable(ctx, "SALES", warehouse.TableOptions{
		Filters: map[string]any{"REGION": "east", "STORE_ID": "IN (1, 2)"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"store_id", "amount", "open", "region"}, read.Names())
	assert.Equal(t, 2, read.Nrow())
	assert.Equal(t, frame.KindBoolean, read.Kind("open"))

	tables, err := w.GetSourceTables(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"sales"}, tables.Strings("TABLE_NAME"))

	columns, err := w.GetSourceColumns(ctx, warehouse.ColumnFilter{Table: "sales", DataType: "text"})
	require.NoError(t, err)
	assert.Equal(t, []string{"region"}, columns.Strings("COLUMN_NAME"))

	require.NoError(t, w.CloneTable(ctx, "SALES_COPY", "SALES", false))
	require.NoError(t, w.AppendToTable(ctx, "SALES", "SALES_COPY"))
	count, err := w.QueryIntoDataFrame(ctx, "SELECT COUNT(*) AS n FROM SALES_COPY WHERE amount > ?", 15)
	require.NoError(t, err)
	assert.Equal(t, 8, count.Value("n", 0))

	require.NoError(t, w.ExecuteQuery(ctx, "CREATE ROLE ORG_READER"))
	require.NoError(t, w.ExecuteQuery(ctx, "CREATE ROLE ORG_PUBLISHER"))
	require.NoError(t, w.GrantTableAccess(ctx, "SALES", ""))
	require.NoError(t, w.GrantTableOwnership(ctx, "SALES", ""))

	owner, err := w.QueryIntoDataFrame(ctx, "SELECT tableowner FROM pg_tables WHERE tablename = ?", "sales")
	require.NoError(t, err)
	assert.Equal(t, "org_publisher", owner.Strings("tableowner")[0])
}
