package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func RecordUsage(ctx context.Context, db *gorm.DB, operation, datasetId, experimentId string, duration time.Duration, callErr error) error {
	event := UsageEvent{
		Id:           uuid.New(),
		Operation:    operation,
		DatasetId:    nullString(datasetId),
		ExperimentId: nullString(experimentId),
		Timestamp:    time.Now().UTC(),
		DurationMs:   duration.Milliseconds(),
	}
	if callErr != nil {
		event.Error = nullString(callErr.Error())
	}

	if err := db.WithContext(ctx).Create(&event).Error; err != nil {
		slog.Error("error recording usage event", "operation", operation, "error", err)
		return fmt.Errorf("error recording usage event: %w", err)
	}
	return nil
}

func SavePayload(ctx context.Context, db *gorm.DB, datasetId, kind, url string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error serializing %s payload: %w", kind, err)
	}

	record := PublishedPayload{
		Id:        uuid.New(),
		DatasetId: datasetId,
		Kind:      kind,
		URL:       url,
		Timestamp: time.Now().UTC(),
		Payload:   datatypes.JSON(data),
	}

	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		slog.Error("error saving payload", "dataset_id", datasetId, "kind", kind, "error", err)
		return fmt.Errorf("error saving payload: %w", err)
	}
	return nil
}

// ListUsage returns the most recent events first. An empty experimentId
// lists events from every experiment.
func ListUsage(ctx context.Context, db *gorm.DB, experimentId string, limit int) ([]UsageEvent, error) {
	query := db.WithContext(ctx).Order("timestamp DESC")
	if experimentId != "" {
		query = query.Where("experiment_id = ?", experimentId)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var events []UsageEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("error listing usage events: %w", err)
	}
	return events, nil
}

func ListPayloads(ctx context.Context, db *gorm.DB, datasetId string) ([]PublishedPayload, error) {
	var payloads []PublishedPayload
	if err := db.WithContext(ctx).
		Where("dataset_id = ?", datasetId).
		Order("timestamp ASC").
		Find(&payloads).Error; err != nil {
		return nil, fmt.Errorf("error listing payloads for dataset %s: %w", datasetId, err)
	}
	return payloads, nil
}
