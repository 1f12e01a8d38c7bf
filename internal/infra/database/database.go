// Package database implements the relational stores and the "database"
// inventory backend on top of gorm. PostgreSQL is the production driver;
// SQLite serves local runs and the test suites.
package database

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const backendName = "database"

// Options selects and tunes the relational connection.
type Options struct {
	Driver      string // postgres | sqlite
	DSN         string
	AutoMigrate bool
	Debug       bool
}

// Open connects, pings and optionally migrates the schema.
func Open(opts Options, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(opts.Driver) {
	case "postgres", "postgresql":
		dsn := NormalizeDSN(opts.DSN)
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dsn := strings.TrimSpace(opts.DSN)
		if dsn == "" {
			dsn = "pipeline.db"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", opts.Driver)
	}

	level := gormlogger.Warn
	if opts.Debug {
		level = gormlogger.Info
	}
	cfg := &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dialector.Name() == "sqlite" {
		// One connection serialises writers; code inside a transaction must
		// only use the transaction handle.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("db ping failed: %w", err)
	}

	logger.Info("database connected",
		zap.String("driver", dialector.Name()),
		zap.String("dsn", MaskDSN(opts.DSN)),
	)

	if opts.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate creates or updates every table used by the stores.
func Migrate(db *gorm.DB) error {
	for _, m := range []any{
		&teamRow{}, &userRow{}, &paymentSchemaRow{}, &propertyRow{},
		&prospectRow{}, &noteRow{}, &activityRow{},
	} {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

var kvPairRegex = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)

// NormalizeDSN accepts a URL style DSN (postgres://...) or a key=value list.
// Quotes and extra whitespace are removed and sslmode defaults to disable
// for key=value lists.
func NormalizeDSN(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), "\"'")
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	if !kvPairRegex.MatchString(s) {
		return s
	}
	cleaned := strings.Join(strings.Fields(s), " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

var (
	kvPasswordRegex  = regexp.MustCompile(`(password=)([^\s]+)`)
	urlPasswordRegex = regexp.MustCompile(`(://[^:/@]+:)([^@]+)(@)`)
)

// MaskDSN hides the password of a DSN for logging.
func MaskDSN(dsn string) string {
	masked := kvPasswordRegex.ReplaceAllString(dsn, `${1}***`)
	return urlPasswordRegex.ReplaceAllString(masked, `${1}***${3}`)
}
