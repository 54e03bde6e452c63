package rasgo_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"rasgo-sdk/internal/config"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/evaluate"
	"rasgo-sdk/pkg/frame"
	"rasgo-sdk/pkg/rasgo"
	"rasgo-sdk/pkg/warehouse"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, apiURL string) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		APIURL:     apiURL,
		AppURL:     "http://app",
		Timeout:    time.Second,
		TrackingDB: filepath.Join(dir, "tracking.db"),
		Warehouse: config.WarehouseConfig{
			Dialect:        "sqlite",
			DSN:            filepath.Join(dir, "warehouse.db"),
			WriteBatchSize: 100,
		},
		Stage: config.StageConfig{ChunkRows: 10, UploadWorkers: 2},
	}
}

func testDataset(t *testing.T) *frame.Dataset {
	ds, err := frame.FromColumns(
		series.New([]int{1, 2, 3, 4}, series.Int, "a"),
		series.New([]string{"x", "y", "x", "z"}, series.String, "b"),
	)
	require.NoError(t, err)
	return ds
}

func noBrowser(string) error { return nil }

func TestProfileThroughAPI(t *testing.T) {
	var profiled string
	r := chi.NewRouter()
	r.Post("/v1/dataframes/{id}/profile", func(w http.ResponseWriter, r *http.Request) {
		profiled = chi.URLParam(r, "id")
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(r)
	defer server.Close()

	var out bytes.Buffer
	client, err := rasgo.New(testConfig(t, server.URL), rasgo.WithOutput(&out), rasgo.WithBrowser(noBrowser))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	_, err = client.WithExperiment("exp1").Evaluate().Profile(ctx, testDataset(t), evaluate.ProfileOptions{})
	require.NoError(t, err)

	assert.Equal(t, "exp1", profiled)
	assert.Contains(t, out.String(), "Profile URL: http://app/dataframes/exp1/")

	history, err := client.History(ctx, "exp1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "profile", history[0].Operation)
}

func TestConnectWithDSN(t *testing.T) {
	client, err := rasgo.New(testConfig(t, "http://127.0.0.1:1"), rasgo.WithBrowser(noBrowser))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	w, err := client.Connect(ctx)
	require.NoError(t, err)

	require.NoError(t, w.WriteDataFrameToTable(ctx, testDataset(t), "things", false))
	ds, err := w.GetSourceTable(ctx, "THINGS", warehouseFilter("B", "x"))
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Nrow())

	again, err := client.Connect(ctx)
	require.NoError(t, err)
	assert.Same(t, w, again)

	history, err := client.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestConnectFromUserProfile(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 1, "snowUsername": "JDOE", "organization": {"account": "acct"}}`)) //nolint:errcheck
	})
	server := httptest.NewServer(r)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.Warehouse = config.WarehouseConfig{Dialect: "snowflake"}

	client, err := rasgo.New(cfg)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Connect(context.Background())
	assert.ErrorIs(t, err, api.ErrMissingCredentials)
}

func TestConnectStagedWrites(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Stage.Bucket = "stage"
	cfg.Stage.Dir = t.TempDir()

	client, err := rasgo.New(cfg)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	w, err := client.Connect(ctx)
	require.NoError(t, err)

	err = w.WriteDataFrameToTable(ctx, testDataset(t), "things", false)
	assert.ErrorIs(t, err, api.ErrUnsupported)
}

func warehouseFilter(column string, value any) warehouse.TableOptions {
	return warehouse.TableOptions{Filters: map[string]any{column: value}}
}
