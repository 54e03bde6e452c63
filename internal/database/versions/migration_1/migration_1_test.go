package migration_1

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type OldUsageEvent struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Operation    string    `gorm:"size:64;not null"`
	DatasetId    sql.NullString
	ExperimentId sql.NullString
	Timestamp    time.Time
	DurationMs   int64
}

func (OldUsageEvent) TableName() string {
	return "usage_events"
}

func TestMigrationAddsErrorColumn(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&OldUsageEvent{}))

	old := OldUsageEvent{Id: uuid.New(), Operation: "profile", Timestamp: time.Now()}
	require.NoError(t, db.Create(&old).Error)

	require.NoError(t, Migration(db))
	assert.True(t, db.Migrator().HasColumn(&UsageEvent{}, "error"))

	var count int64
	require.NoError(t, db.Table("usage_events").Where("error IS NULL").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, Rollback(db))
	assert.False(t, db.Migrator().HasColumn(&UsageEvent{}, "error"))
}
