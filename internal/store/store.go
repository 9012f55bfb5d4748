package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store is the local attempt journal. It records attempts and every answer
// write together with its delivery status.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
	seq *sequenceCounter
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps pragmas and in-memory databases consistent.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := migrate(context.Background(), drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		drv.Close()
		return nil, err
	}

	return &Store{db: db, drv: drv, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// AttemptRepo returns an AttemptRepo backed by this store.
func (s *Store) AttemptRepo() AttemptRepo {
	return &attemptRepo{drv: s.drv, seq: s.seq}
}

// AnswerWriteRepo returns an AnswerWriteRepo backed by this store.
func (s *Store) AnswerWriteRepo() AnswerWriteRepo {
	return &answerWriteRepo{drv: s.drv, seq: s.seq}
}

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		sequence INTEGER NOT NULL,
		token TEXT NOT NULL,
		assessment_id TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		api_url TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		question_count INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		score REAL,
		correct_count INTEGER,
		total_questions INTEGER,
		duration_s REAL,
		passed INTEGER,
		result_language TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS answer_writes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		attempt_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		option_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (attempt_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS answer_writes_status ON answer_writes (status, attempt_id, seq)`,
}

func migrate(ctx context.Context, drv *entsql.Driver) error {
	for _, stmt := range ddl {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return err
		}
	}
	return nil
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DataDir resolves the directory holding the journal and log file:
// $XDG_DATA_HOME/qcm, falling back to ~/.local/share/qcm.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "qcm"), nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. QCM_DB environment variable
// 2. $XDG_DATA_HOME/qcm/qcm.db
// 3. ~/.local/share/qcm/qcm.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("QCM_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, "qcm.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
