package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database is the SQLite catalog store. Reads go through plain SQL; batch
// writes go through gorm on the same connection.
type Database struct {
	db  *sql.DB
	orm *gorm.DB
}

func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases consistent across queries
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	orm, err := gorm.Open(sqlite.New(sqlite.Config{Conn: db}), &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	return &Database{db: db, orm: orm}, nil
}

// GetDB returns the underlying connection pool
func (d *Database) GetDB() *sql.DB {
	return d.db
}

// ORM returns the gorm handle used for batch writes
func (d *Database) ORM() *gorm.DB {
	return d.orm
}

func (d *Database) Close() error {
	return d.db.Close()
}
