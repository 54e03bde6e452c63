package migration_1

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

type UsageEvent struct {
	Error sql.NullString
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().AddColumn(&UsageEvent{}, "error"); err != nil {
		return fmt.Errorf("error adding Error column: %w", err)
	}
	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropColumn(&UsageEvent{}, "Error"); err != nil {
		return fmt.Errorf("error dropping Error column: %w", err)
	}
	return nil
}
