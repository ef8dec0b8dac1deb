package testutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/yungbote/employee-directory/internal/data/db"
	types "github.com/yungbote/employee-directory/internal/domain"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	pgOnce sync.Once
	pgDB   *gorm.DB
	pgErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
	}
}

// SQLite returns a fresh, migrated in-memory database private to the test.
func SQLite(tb testing.TB) *gorm.DB {
	tb.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), gormConfig())
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrateAll(conn); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// Postgres returns the shared integration database, skipping the test when
// TEST_POSTGRES_DSN is unset.
func Postgres(tb testing.TB) *gorm.DB {
	tb.Helper()

	pgOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			pgErr = errMissingDSN
			return
		}
		pgDB, pgErr = gorm.Open(postgres.Open(dsn), gormConfig())
		if pgErr != nil {
			return
		}
		pgErr = db.AutoMigrateAll(pgDB)
	})

	if errors.Is(pgErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run repo integration tests")
	}
	if pgErr != nil {
		tb.Fatalf("failed to init test db: %v", pgErr)
	}
	return pgDB
}

// Reset empties the employees table. Postgres tests share one database, so
// they run serially and call Reset first.
func Reset(tb testing.TB, conn *gorm.DB) {
	tb.Helper()
	if err := conn.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&types.Employee{}).Error; err != nil {
		tb.Fatalf("reset employees: %v", err)
	}
}

func SeedEmployees(tb testing.TB, ctx context.Context, conn *gorm.DB, recs ...types.Employee) {
	tb.Helper()
	for _, rec := range recs {
		r := rec
		if err := conn.WithContext(ctx).Create(&r).Error; err != nil {
			tb.Fatalf("seed employee %q: %v", rec.Name, err)
		}
	}
}
