package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sets (
	repo TEXT NOT NULL,
	name TEXT NOT NULL,
	PRIMARY KEY (repo, name)
);
CREATE TABLE IF NOT EXISTS set_items (
	repo TEXT NOT NULL,
	name TEXT NOT NULL,
	seq  INTEGER NOT NULL,
	item TEXT NOT NULL,
	PRIMARY KEY (repo, name, seq)
);
CREATE TABLE IF NOT EXISTS checkpoints (
	repo  TEXT NOT NULL,
	name  TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (repo, name)
);
`

// SQLiteStore keeps every repository's sets and checkpoints in one database file
type SQLiteStore struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	logger logger.Logger
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string, log logger.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, apperrors.Configuration("sqlite storage requires a database path")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite|sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, sqliteSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{conn: conn, logger: log}, nil
}

// lock serializes access to the connection and makes ctx interrupt queries
func (s *SQLiteStore) lock(ctx context.Context) func() {
	s.mu.Lock()
	s.conn.SetInterrupt(ctx.Done())
	return func() {
		s.conn.SetInterrupt(nil)
		s.mu.Unlock()
	}
}

func (s *SQLiteStore) ReadSet(ctx context.Context, repo models.RepoID, set SetName) ([]json.RawMessage, bool, error) {
	defer s.lock(ctx)()
	return s.readSet(repo, set)
}

func (s *SQLiteStore) readSet(repo models.RepoID, set SetName) ([]json.RawMessage, bool, error) {
	found := false
	err := sqlitex.Execute(s.conn, "SELECT 1 FROM sets WHERE repo = ? AND name = ?", &sqlitex.ExecOptions{
		Args: []any{repo.Key(), string(set)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up set: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	items := []json.RawMessage{}
	err = sqlitex.Execute(s.conn, "SELECT item FROM set_items WHERE repo = ? AND name = ? ORDER BY seq", &sqlitex.ExecOptions{
		Args: []any{repo.Key(), string(set)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			items = append(items, json.RawMessage(stmt.ColumnText(0)))
			return nil
		},
	})
	if err != nil {
		return nil, true, fmt.Errorf("failed to read set items: %w", err)
	}
	if !validItems(items) {
		return nil, true, apperrors.MalformedCache(nil, "%s set of %s", set, repo)
	}
	return items, true, nil
}

func (s *SQLiteStore) AppendSet(ctx context.Context, repo models.RepoID, set SetName, items []json.RawMessage) (err error) {
	defer s.lock(ctx)()
	defer sqlitex.Save(s.conn)(&err)

	_, _, readErr := s.readSet(repo, set)
	if readErr != nil {
		if !apperrors.IsRecoverable(readErr) {
			return readErr
		}
		s.logger.WithError(readErr).WarnWithFields("Malformed set will be overwritten", map[string]interface{}{
			"repo": repo.String(),
			"set":  string(set),
		})
		if err := s.clearItems(repo, set); err != nil {
			return err
		}
	}

	next := 0
	err = sqlitex.Execute(s.conn, "SELECT COALESCE(MAX(seq) + 1, 0) FROM set_items WHERE repo = ? AND name = ?", &sqlitex.ExecOptions{
		Args: []any{repo.Key(), string(set)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			next = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to read next sequence: %w", err)
	}

	return s.insertItems(repo, set, next, items)
}

func (s *SQLiteStore) ReplaceSet(ctx context.Context, repo models.RepoID, set SetName, items []json.RawMessage) (err error) {
	defer s.lock(ctx)()
	defer sqlitex.Save(s.conn)(&err)

	if err := s.clearItems(repo, set); err != nil {
		return err
	}
	return s.insertItems(repo, set, 0, items)
}

func (s *SQLiteStore) clearItems(repo models.RepoID, set SetName) error {
	err := sqlitex.Execute(s.conn, "DELETE FROM set_items WHERE repo = ? AND name = ?", &sqlitex.ExecOptions{
		Args: []any{repo.Key(), string(set)},
	})
	if err != nil {
		return fmt.Errorf("failed to clear set: %w", err)
	}
	return nil
}

func (s *SQLiteStore) insertItems(repo models.RepoID, set SetName, seq int, items []json.RawMessage) error {
	err := sqlitex.Execute(s.conn, "INSERT OR IGNORE INTO sets (repo, name) VALUES (?, ?)", &sqlitex.ExecOptions{
		Args: []any{repo.Key(), string(set)},
	})
	if err != nil {
		return fmt.Errorf("failed to register set: %w", err)
	}

	for i, item := range items {
		err := sqlitex.Execute(s.conn, "INSERT INTO set_items (repo, name, seq, item) VALUES (?, ?, ?, ?)", &sqlitex.ExecOptions{
			Args: []any{repo.Key(), string(set), seq + i, string(item)},
		})
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) ReadCheckpoint(ctx context.Context, repo models.RepoID, name string) (string, bool, error) {
	defer s.lock(ctx)()

	var (
		value string
		found bool
	)
	err := sqlitex.Execute(s.conn, "SELECT value FROM checkpoints WHERE repo = ? AND name = ?", &sqlitex.ExecOptions{
		Args: []any{repo.Key(), name},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return value, found, nil
}

func (s *SQLiteStore) WriteCheckpoint(ctx context.Context, repo models.RepoID, name, value string) error {
	defer s.lock(ctx)()

	err := sqlitex.Execute(s.conn,
		"INSERT INTO checkpoints (repo, name, value) VALUES (?, ?, ?) ON CONFLICT (repo, name) DO UPDATE SET value = excluded.value",
		&sqlitex.ExecOptions{Args: []any{repo.Key(), name, value}})
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteCheckpoint(ctx context.Context, repo models.RepoID, name string) error {
	defer s.lock(ctx)()

	err := sqlitex.Execute(s.conn, "DELETE FROM checkpoints WHERE repo = ? AND name = ?", &sqlitex.ExecOptions{
		Args: []any{repo.Key(), name},
	})
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}
