package frame_test

import (
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/frame"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDDL(t *testing.T) {
	ds := readSales(t)

	ddl := frame.GenerateDDL(ds, "DB.PUBLIC.SALES", frame.DDLOptions{})
	assert.Equal(t, "CREATE OR REPLACE TABLE DB.PUBLIC.SALES (\n  store INTEGER,\n  amount REAL,\n  open INTEGER,\n  region TEXT,\n  day TIMESTAMP\n)", ddl)

	ddl = frame.GenerateDDL(ds, "T", frame.DDLOptions{
		Append: true,
		Types:  frame.TypeMap{frame.KindString: "String"},
		Suffix: "ENGINE = Memory",
	})
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS T (\n  store String,\n  amount String,\n  open String,\n  region String,\n  day String\n) ENGINE = Memory", ddl)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "STORE_ID", frame.NormalizeName(" store id "))
	assert.Equal(t, "_2021_SALES", frame.NormalizeName("2021-sales"))
	assert.Equal(t, "A_B", frame.NormalizeName("a.b"))

	ds := readSales(t)
	require.NoError(t, frame.NormalizeColumns(ds))
	assert.Equal(t, []string{"STORE", "AMOUNT", "OPEN", "REGION", "DAY"}, ds.Names())
}

func TestConfirmColumns(t *testing.T) {
	ds := readSales(t)
	require.NoError(t, frame.NormalizeColumns(ds))

	require.NoError(t, frame.ConfirmColumns(ds, []string{"STORE"}, []string{"AMOUNT"}))

	err := frame.ConfirmColumns(ds, []string{"store"}, []string{"nope"})
	assert.ErrorIs(t, err, api.ErrColumnNotFound)
	assert.Contains(t, err.Error(), "Consider these: ([STORE])")
}

func TestDatasetID(t *testing.T) {
	ds := readSales(t)

	id := frame.SetDatasetID(ds, "")
	assert.NotEmpty(t, id)
	assert.Equal(t, id, frame.SetDatasetID(ds, ""))
	assert.Equal(t, "exp", frame.SetDatasetID(ds, "exp"))
	assert.Equal(t, "exp", ds.Attrs[frame.IDAttribute])

	assert.NotEqual(t, frame.GenerateUniqueID(), frame.GenerateUniqueID())
}

func TestSchemaAndTypes(t *testing.T) {
	ds := readSales(t)

	schema := frame.BuildSchema(ds, true)
	assert.Equal(t, frame.SchemaField{Name: "index", Type: "integer"}, schema["index"])
	assert.Equal(t, "number", schema["amount"].Type)
	assert.Equal(t, "datetime", schema["day"].Type)

	assert.Equal(t, "bool", frame.MapType(frame.KindBoolean))
	assert.Equal(t, "object", frame.MapType(frame.KindString))
	assert.Equal(t, "number", frame.ProfileType(frame.KindInteger))
	assert.Equal(t, "string", frame.ProfileType(frame.KindDatetime))
}
