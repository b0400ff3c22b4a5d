package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported database dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// Config selects the backing database.
type Config struct {
	// Driver is one of sqlite, postgres or mysql. Empty means sqlite.
	Driver string
	// DSN is passed to the driver. For sqlite an empty DSN with an empty
	// DataDir opens an in-memory database.
	DSN string
	// DataDir holds the sqlite database file when DSN is empty.
	DataDir string
}

// Store persists admins, roles, audit entries and site settings.
type Store struct {
	db      *sqlx.DB
	dialect string
	now     func() time.Time
}

// New opens the database described by cfg and applies migrations.
func New(cfg Config) (*Store, error) {
	dialect := cfg.Driver
	if dialect == "" {
		dialect = DialectSQLite
	}

	driverName, dsn, err := resolveDSN(dialect, cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	s, err := newWithDB(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection. Migrations are not applied; the
// caller owns the schema. Used with sqlmock in tests.
func NewWithDB(db *sqlx.DB, dialect string) *Store {
	return &Store{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
}

func newWithDB(db *sqlx.DB, dialect string) (*Store, error) {
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	s := NewWithDB(db, dialect)
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if err := s.seed(context.Background()); err != nil {
		return nil, fmt.Errorf("seed database: %w", err)
	}
	return s, nil
}

func resolveDSN(dialect string, cfg Config) (driverName, dsn string, err error) {
	switch dialect {
	case DialectSQLite:
		dsn = cfg.DSN
		if dsn == "" {
			if cfg.DataDir == "" {
				dsn = ":memory:"
			} else {
				if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
					return "", "", fmt.Errorf("create data dir: %w", err)
				}
				dsn = filepath.Join(cfg.DataDir, "lasercalc.db") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
			}
		}
		// Store times in a sortable text form so range filters compare correctly.
		return "sqlite", appendParam(dsn, "_time_format=sqlite"), nil
	case DialectPostgres:
		if cfg.DSN == "" {
			return "", "", fmt.Errorf("postgres requires a dsn")
		}
		return "pgx", cfg.DSN, nil
	case DialectMySQL:
		if cfg.DSN == "" {
			return "", "", fmt.Errorf("mysql requires a dsn")
		}
		// clientFoundRows makes RowsAffected count matched rows, not changed ones.
		return "mysql", appendParam(appendParam(cfg.DSN, "parseTime=true"), "clientFoundRows=true"), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", dialect)
	}
}

func appendParam(dsn, param string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	return dsn + "?" + param
}

// Dialect returns the database dialect in use.
func (s *Store) Dialect() string {
	return s.dialect
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock overrides the time source used for created_at and updated_at.
func (s *Store) SetClock(now func() time.Time) {
	s.now = func() time.Time { return now().UTC() }
}

// insert runs a named INSERT and returns the generated id. Postgres has no
// LastInsertId so the id is read back with RETURNING.
func (s *Store) insert(ctx context.Context, query string, arg interface{}) (int64, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return 0, err
	}
	q = s.db.Rebind(q)

	if s.dialect == DialectPostgres {
		var id int64
		if err := s.db.QueryRowxContext(ctx, q+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// execAffecting runs a positional statement and reports ErrNotFound when no row matched.
func (s *Store) execAffecting(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
