package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	PayloadProfile    string = "PROFILE"
	PayloadImportance string = "IMPORTANCE"
)

// UsageEvent is one call made through the SDK.
type UsageEvent struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Operation    string    `gorm:"size:64;not null;index"`
	DatasetId    sql.NullString
	ExperimentId sql.NullString `gorm:"index"`
	Timestamp    time.Time
	DurationMs   int64
	Error        sql.NullString
}

// PublishedPayload is a copy of a profile or importance payload posted to the
// web API, kept so results can be reviewed offline.
type PublishedPayload struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	DatasetId string    `gorm:"not null;index"`
	Kind      string    `gorm:"size:20;not null"`
	URL       string
	Timestamp time.Time
	Payload   datatypes.JSON
}
