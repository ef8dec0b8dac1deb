package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/employee-directory/internal/pkg/logger"
)

// sqliteBusyTimeoutMS is how long a writer waits on a locked file before
// failing with "database is locked".
const sqliteBusyTimeoutMS = 5000

// NewSQLiteService opens (creating if needed) the database file at path.
// ":memory:" opens a private in-memory database.
func NewSQLiteService(path string, logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "SQLiteService")
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	serviceLog.Info("Opening SQLite database...", "path", path)

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time; a single connection queues writes
	// in the pool instead of surfacing lock errors. For ":memory:" it also
	// keeps every query on the same database.
	sqlDB.SetMaxOpenConns(1)
	return &Service{db: db, log: serviceLog, driver: "sqlite"}, nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, ":memory:") {
		return path
	}
	if strings.Contains(path, "_busy_timeout") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", path, sep, sqliteBusyTimeoutMS)
}
