package tracking

import (
	"context"
	"log/slog"
	"rasgo-sdk/internal/database"
	"time"

	"gorm.io/gorm"
)

const (
	PayloadProfile    = database.PayloadProfile
	PayloadImportance = database.PayloadImportance
)

// Tracker records SDK calls and the payloads they publish. Failures to record
// are logged and never surface to the caller.
type Tracker interface {
	Track(ctx context.Context, operation, datasetId string, start time.Time, err error)
	Published(ctx context.Context, datasetId, kind, url string, payload any)
	SetExperiment(experimentId string)
}

type DBTracker struct {
	db           *gorm.DB
	experimentId string
}

func NewDBTracker(db *gorm.DB, experimentId string) *DBTracker {
	return &DBTracker{db: db, experimentId: experimentId}
}

func (t *DBTracker) SetExperiment(experimentId string) {
	t.experimentId = experimentId
}

func (t *DBTracker) Track(ctx context.Context, operation, datasetId string, start time.Time, err error) {
	if recErr := database.RecordUsage(ctx, t.db, operation, datasetId, t.experimentId, time.Since(start), err); recErr != nil {
		slog.Warn("unable to track usage", "operation", operation, "error", recErr)
	}
}

func (t *DBTracker) Published(ctx context.Context, datasetId, kind, url string, payload any) {
	if err := database.SavePayload(ctx, t.db, datasetId, kind, url, payload); err != nil {
		slog.Warn("unable to save published payload", "dataset_id", datasetId, "kind", kind, "error", err)
	}
}

type NoopTracker struct{}

func (NoopTracker) Track(context.Context, string, string, time.Time, error) {}

func (NoopTracker) Published(context.Context, string, string, string, any) {}

func (NoopTracker) SetExperiment(string) {}
