// Package store keeps a local history of submitted tasks in PostgreSQL or MySQL.
//
// The driver is chosen from the DSN scheme: postgres:// and postgresql:// use
// lib/pq, mysql:// is converted to a go-sql-driver/mysql config.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

var ErrUnsupportedDSN = errors.New("store: unsupported DSN scheme")

// Dialect is the SQL flavour of a Store.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// Record is one row of task history.
type Record struct {
	TaskID       string
	TaskName     string
	Status       string
	ErrorMessage string
	ResultPath   string
	UpdatedAt    time.Time
}

// Store is a task history table. It is safe for concurrent use.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open parses dsn and opens a connection pool. No connection is made until
// the first query.
func Open(dsn string) (*Store, error) {
	dialect, driverDSN, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(string(dialect), driverDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db, dialect: dialect}, nil
}

// ParseDSN returns the dialect of dsn and the connection string its driver
// expects.
func ParseDSN(dsn string) (Dialect, string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUnsupportedDSN, err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		conn, err := pq.ParseURL(dsn)
		if err != nil {
			return "", "", fmt.Errorf("invalid postgres DSN: %w", err)
		}
		return Postgres, conn, nil
	case "mysql":
		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		if u.Port() == "" {
			cfg.Addr = u.Host + ":3306"
		}
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		cfg.ParseTime = true
		if cfg.DBName == "" {
			return "", "", fmt.Errorf("invalid mysql DSN: missing database name")
		}
		return MySQL, cfg.FormatDSN(), nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDSN, u.Scheme)
	}
}

// Dialect reports the SQL flavour in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the history table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.dialect, err)
	}
	if _, err := s.db.ExecContext(ctx, createTableSQL(s.dialect)); err != nil {
		return fmt.Errorf("failed to create task_history table: %w", err)
	}
	return nil
}

// Record inserts rec or updates the existing row with the same task ID.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if rec.TaskID == "" {
		return fmt.Errorf("record has no task id")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, upsertSQL(s.dialect),
		rec.TaskID, rec.TaskName, rec.Status, rec.ErrorMessage, rec.ResultPath, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to record task %s: %w", rec.TaskID, err)
	}
	return nil
}

// List returns the most recently updated records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, listSQL(s.dialect), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list task history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.TaskID, &r.TaskName, &r.Status, &r.ErrorMessage, &r.ResultPath, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task history: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func createTableSQL(d Dialect) string {
	if d == MySQL {
		return "CREATE TABLE IF NOT EXISTS `task_history` (" +
			"`task_id` VARCHAR(64) PRIMARY KEY, " +
			"`task_name` VARCHAR(255) NOT NULL, " +
			"`status` VARCHAR(32) NOT NULL, " +
			"`error_message` TEXT NOT NULL, " +
			"`result_path` TEXT NOT NULL, " +
			"`updated_at` DATETIME(6) NOT NULL)"
	}
	return "CREATE TABLE IF NOT EXISTS task_history (" +
		"task_id TEXT PRIMARY KEY, " +
		"task_name TEXT NOT NULL, " +
		"status TEXT NOT NULL, " +
		"error_message TEXT NOT NULL, " +
		"result_path TEXT NOT NULL, " +
		"updated_at TIMESTAMPTZ NOT NULL)"
}

func upsertSQL(d Dialect) string {
	if d == MySQL {
		return "INSERT INTO `task_history` (task_id, task_name, status, error_message, result_path, updated_at) " +
			"VALUES (?, ?, ?, ?, ?, ?) " +
			"ON DUPLICATE KEY UPDATE task_name = VALUES(task_name), status = VALUES(status), " +
			"error_message = VALUES(error_message), result_path = VALUES(result_path), updated_at = VALUES(updated_at)"
	}
	return "INSERT INTO task_history (task_id, task_name, status, error_message, result_path, updated_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6) " +
		"ON CONFLICT (task_id) DO UPDATE SET task_name = EXCLUDED.task_name, status = EXCLUDED.status, " +
		"error_message = EXCLUDED.error_message, result_path = EXCLUDED.result_path, updated_at = EXCLUDED.updated_at"
}

func listSQL(d Dialect) string {
	const cols = "task_id, task_name, status, error_message, result_path, updated_at"
	if d == MySQL {
		return "SELECT " + cols + " FROM `task_history` ORDER BY updated_at DESC LIMIT ?"
	}
	return "SELECT " + cols + " FROM task_history ORDER BY updated_at DESC LIMIT $1"
}
