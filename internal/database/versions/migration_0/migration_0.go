package migration_0

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UsageEvent struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Operation    string    `gorm:"size:64;not null;index"`
	DatasetId    sql.NullString
	ExperimentId sql.NullString `gorm:"index"`
	Timestamp    time.Time
	DurationMs   int64
}

type PublishedPayload struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	DatasetId string    `gorm:"not null;index"`
	Kind      string    `gorm:"size:20;not null"`
	URL       string
	Timestamp time.Time
	Payload   datatypes.JSON
}

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&UsageEvent{}, &PublishedPayload{}); err != nil {
		return fmt.Errorf("initial migration failed: %w", err)
	}
	return nil
}
