package integrationtests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	minioUsername = "admin"
	minioPassword = "password"

	warehouseDB       = "rasgo_wh"
	warehouseUser     = "rasgo"
	warehousePassword = "rasgo_password"
)

func skipShort(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
}

func terminateOnCleanup(t *testing.T, name string, c testcontainers.Container) {
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(c), "Failed to terminate %s container", name)
	})
}

// setupMinioContainer starts a MinIO server and returns its http endpoint,
// used as the S3 stage for bulk loads.
func setupMinioContainer(t *testing.T, ctx context.Context) string {
	container, err := minio.Run(ctx,
		"minio/minio:RELEASE.2024-01-16T16-07-38Z",
		minio.WithUsername(minioUsername),
		minio.WithPassword(minioPassword),
	)
	require.NoError(t, err, "Failed to start MinIO container")
	terminateOnCleanup(t, "MinIO", container)

	addr, err := container.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get MinIO address")

	return "http://" + addr
}

// setupPostgresContainer starts a postgres server standing in for the
// warehouse and tracking databases and returns its DSN.
func setupPostgresContainer(t *testing.T, ctx context.Context) string {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(warehouseDB),
		postgres.WithUsername(warehouseUser),
		postgres.WithPassword(warehousePassword),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	terminateOnCleanup(t, "PostgreSQL", container)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get PostgreSQL DSN")

	return dsn
}
