package store

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"time"

	"github.com/dixieflatline76/PexWall/util/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Options selects and configures the database backend.
type Options struct {
	Type     string // sqlite (default) or postgres
	FilePath string // sqlite database file, ":memory:" for an in-memory database
	DSN      string // postgres DSN
	Verbose  bool   // log every statement
}

// DB wraps the gorm connection used by the repositories.
type DB struct {
	db     *gorm.DB
	dbType string
}

// TxFunc runs inside a transaction.
type TxFunc func(tx *gorm.DB) error

// Open connects to the configured database and migrates the schema.
func Open(opts Options) (*DB, error) {
	level := logger.Warn
	if opts.Verbose {
		level = logger.Info
	}
	gormLogger := logger.New(
		stdlog.New(os.Stderr, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormCfg := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	}

	var db *gorm.DB
	var err error

	switch opts.Type {
	case "sqlite", "sqlite3", "":
		path := opts.FilePath
		if path == "" {
			path = "wallpaper_database.db"
		}
		dsn := path
		if path != ":memory:" {
			dsn = fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
		}
		db, err = gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
		}
		log.Printf("Using SQLite database file: %s", path)

	case "postgres", "postgresql":
		if opts.DSN == "" {
			return nil, errors.New("postgres requires a DSN")
		}
		db, err = gorm.Open(postgres.Open(opts.DSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
		}
		log.Print("Connected to PostgreSQL database")

	default:
		return nil, fmt.Errorf("unsupported database type: %s", opts.Type)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB instance: %w", err)
	}
	if opts.Type == "postgres" || opts.Type == "postgresql" {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// SQLite serialises writers, and an in-memory database lives only as
		// long as its one connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	if err := db.AutoMigrate(&Wallpaper{}, &SearchResult{}, &WorkRequest{}, &Setting{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &DB{db: db, dbType: opts.Type}, nil
}

// Gorm returns the underlying *gorm.DB.
func (d *DB) Gorm() *gorm.DB {
	return d.db
}

// WithContext returns a *gorm.DB bound to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx)
}

// Transaction runs fn inside a transaction bound to ctx.
func (d *DB) Transaction(ctx context.Context, fn TxFunc) error {
	return d.db.WithContext(ctx).Transaction(fn)
}

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
