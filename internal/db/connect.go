package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // driver: mysql
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Normalize maps common aliases to a Driver.
func Normalize(d string) Driver {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "pg", "pgsql", "pgx", "postgres":
		return DriverPostgres
	case "sqlite3", "sqlite", "":
		return DriverSQLite
	case "mysql":
		return DriverMySQL
	default:
		return Driver(d)
	}
}

// Open opens a DB, tunes the pool and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:examvault.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/examvault?sslmode=disable"
		}
	case DriverMySQL:
		drvName = "mysql"
		if dsn == "" {
			dsn = "root@tcp(localhost:3306)/examvault?parseTime=true&charset=utf8mb4"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	tunePool(driver, db)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if driver == DriverSQLite {
		if err := applySQLitePragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func tunePool(driver Driver, db *sql.DB) {
	maxOpen := 20
	maxIdle := 10
	connLife := 45 * time.Minute
	idleLife := 15 * time.Minute

	if driver == DriverSQLite {
		// single writer; a tiny pool avoids SQLITE_BUSY
		maxOpen, maxIdle = 1, 1
		connLife, idleLife = 0, 0
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connLife)
	db.SetConnMaxIdleTime(idleLife)
}

func applySQLitePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

// ensureSchema runs one statement at a time; the mysql driver rejects
// multi-statement Exec unless the DSN opts in.
func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema []string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	case DriverMySQL:
		schema = schemaMySQL
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

var schemaSQLite = []string{`
CREATE TABLE IF NOT EXISTS exams (
  id TEXT PRIMARY KEY,
  institute_id TEXT NOT NULL,
  content_address TEXT NOT NULL UNIQUE,
  encryption_key TEXT NOT NULL,
  name TEXT NOT NULL,
  time_limit_minutes INTEGER NOT NULL,
  question_count INTEGER NOT NULL,
  approval_state TEXT NOT NULL DEFAULT 'pending',
  results_released INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  exam_id TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  answers_json TEXT NOT NULL,
  score REAL NOT NULL,
  correct_count INTEGER NOT NULL,
  total_questions INTEGER NOT NULL,
  submitted_at INTEGER NOT NULL,
  UNIQUE (student_id, exam_id)
)`, `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'student'
)`, `
CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  event_key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
)`,
}

var schemaPostgres = []string{`
CREATE TABLE IF NOT EXISTS exams (
  id TEXT PRIMARY KEY,
  institute_id TEXT NOT NULL,
  content_address TEXT NOT NULL UNIQUE,
  encryption_key TEXT NOT NULL,
  name TEXT NOT NULL,
  time_limit_minutes INTEGER NOT NULL,
  question_count INTEGER NOT NULL,
  approval_state TEXT NOT NULL DEFAULT 'pending',
  results_released BOOLEAN NOT NULL DEFAULT FALSE,
  created_at BIGINT NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  exam_id TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  answers_json TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  correct_count INTEGER NOT NULL,
  total_questions INTEGER NOT NULL,
  submitted_at BIGINT NOT NULL,
  UNIQUE (student_id, exam_id)
)`, `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'student'
)`, `
CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  event_key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
)`,
}

var schemaMySQL = []string{`
CREATE TABLE IF NOT EXISTS exams (
  id VARCHAR(64) PRIMARY KEY,
  institute_id VARCHAR(64) NOT NULL,
  content_address VARCHAR(255) NOT NULL UNIQUE,
  encryption_key VARCHAR(255) NOT NULL,
  name VARCHAR(255) NOT NULL,
  time_limit_minutes INT NOT NULL,
  question_count INT NOT NULL,
  approval_state VARCHAR(16) NOT NULL DEFAULT 'pending',
  results_released BOOLEAN NOT NULL DEFAULT FALSE,
  created_at BIGINT NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS attempts (
  id VARCHAR(64) PRIMARY KEY,
  student_id VARCHAR(64) NOT NULL,
  exam_id VARCHAR(64) NOT NULL,
  answers_json TEXT NOT NULL,
  score DOUBLE NOT NULL,
  correct_count INT NOT NULL,
  total_questions INT NOT NULL,
  submitted_at BIGINT NOT NULL,
  UNIQUE KEY uniq_student_exam (student_id, exam_id),
  FOREIGN KEY (exam_id) REFERENCES exams(id) ON DELETE CASCADE
)`, `
CREATE TABLE IF NOT EXISTS users (
  id VARCHAR(64) PRIMARY KEY,
  name VARCHAR(255) NOT NULL DEFAULT '',
  email VARCHAR(255) NOT NULL DEFAULT '',
  role VARCHAR(32) NOT NULL DEFAULT 'student'
)`, `
CREATE TABLE IF NOT EXISTS event_log (
  seq BIGINT AUTO_INCREMENT PRIMARY KEY,
  site_id VARCHAR(64) NOT NULL DEFAULT 'local',
  typ VARCHAR(64) NOT NULL,
  event_key VARCHAR(255) NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
)`,
}
