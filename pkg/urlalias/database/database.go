package database

import (
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Connect opens a database connection.
// For now, uses SQLite. Can be swapped to Postgres later via GORM driver.
// Foreign key enforcement is switched on so click events cascade with
// their short URLs.
func Connect(dsn string) (*gorm.DB, error) {
	if !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
}
