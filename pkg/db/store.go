package db

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the persistence facade over users, conversations and messages.
//
// It owns the relational schema and the JSON encoding of the goals and
// preferences columns, so the same typed interface is served whether the
// backing store is SQLite or Postgres.
type Store struct {
	db     *sqlx.DB
	logger *log.Logger
}

// NewStore opens the database identified by driver ("sqlite3" or "postgres")
// and dsn, runs pending migrations, and returns the store.
func NewStore(driver, dsn string, logger *log.Logger) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		// WAL mode for better concurrency under parallel requests.
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := RunMigrations(db.DB, driver, logger); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying sqlx.DB instance.
func (s *Store) DB() *sqlx.DB {
	return s.db
}
