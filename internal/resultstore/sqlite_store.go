package resultstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crawshaw.io/sqlite"

	"github.com/localrivet/recursum/internal/errortypes"
)

// SQLiteStore is an implementation of Store that uses SQLite. A single
// connection is shared and guarded by a mutex.
type SQLiteStore struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	dbPath string
}

// NewSQLiteStore creates a new SQLiteStore instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// OpenSQLiteStore creates and initializes a store at dbPath.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	s := NewSQLiteStore()
	if err := s.Initialize(dbPath); err != nil {
		return nil, err
	}
	return s, nil
}

// Initialize initializes the store with the given database path.
func (s *SQLiteStore) Initialize(dbPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dbPath = dbPath

	conn, err := sqlite.OpenConn(dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to open SQLite database").WithField("path", dbPath)
	}
	s.conn = conn

	if err := s.createTable(); err != nil {
		s.conn.Close()
		s.conn = nil
		return errortypes.DatabaseError(err, "failed to create table").WithField("path", dbPath)
	}

	return nil
}

// createTable creates the summaries table if it doesn't exist.
func (s *SQLiteStore) createTable() error {
	stmt, err := s.conn.Prepare(`
	CREATE TABLE IF NOT EXISTS summaries (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		model TEXT NOT NULL,
		summary_length TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		result TEXT NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("failed to prepare create table statement: %w", err)
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to execute create table statement: %w", err)
	}
	return nil
}

// Close closes the store and releases any resources.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// lock takes the connection and makes ctx cancellation interrupt running
// statements. The returned func must be called to release it.
func (s *SQLiteStore) lock(ctx context.Context) (func(), error) {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return nil, errortypes.DatabaseError(nil, "store is not initialized")
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.conn.SetInterrupt(ctx.Done())
	return func() {
		s.conn.SetInterrupt(nil)
		s.mu.Unlock()
	}, nil
}

// Store inserts or replaces a record.
func (s *SQLiteStore) Store(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	result, err := encodeResult(rec.Result)
	if err != nil {
		return err
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	stmt, err := s.conn.Prepare(`
	INSERT OR REPLACE INTO summaries (id, source, model, summary_length, created_at, result)
	VALUES (?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to prepare insert statement")
	}
	defer stmt.Reset()

	// Bind parameters; indices in sqlite are 1-based
	stmt.BindText(1, rec.ID)
	stmt.BindText(2, rec.Source)
	stmt.BindText(3, rec.Model)
	stmt.BindText(4, rec.SummaryLength)
	stmt.BindInt64(5, rec.CreatedAt.UnixNano())
	stmt.BindText(6, result)

	if _, err := stmt.Step(); err != nil {
		return errortypes.DatabaseError(err, "failed to insert summary").WithField("id", rec.ID)
	}
	return nil
}

// Get returns the record with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	stmt, err := s.conn.Prepare(`
	SELECT id, source, model, summary_length, created_at, result
	FROM summaries WHERE id = ?;`)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to prepare select statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, id)
	hasRow, err := stmt.Step()
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to query summary").WithField("id", id)
	}
	if !hasRow {
		return nil, notFound(id)
	}
	return scanRecord(stmt)
}

// List returns up to limit records, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Record, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	stmt, err := s.conn.Prepare(`
	SELECT id, source, model, summary_length, created_at, result
	FROM summaries ORDER BY created_at DESC, id ASC LIMIT ?;`)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to prepare list statement")
	}
	defer stmt.Reset()

	stmt.BindInt64(1, int64(listLimit(limit)))

	var records []*Record
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, errortypes.DatabaseError(err, "failed to list summaries")
		}
		if !hasRow {
			break
		}
		rec, err := scanRecord(stmt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes one record.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	stmt, err := s.conn.Prepare(`DELETE FROM summaries WHERE id = ?;`)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to prepare delete statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, id)
	if _, err := stmt.Step(); err != nil {
		return errortypes.DatabaseError(err, "failed to delete summary").WithField("id", id)
	}
	if s.conn.Changes() == 0 {
		return notFound(id)
	}
	return nil
}

// Clear removes every record.
func (s *SQLiteStore) Clear(ctx context.Context) (int, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	stmt, err := s.conn.Prepare(`DELETE FROM summaries;`)
	if err != nil {
		return 0, errortypes.DatabaseError(err, "failed to prepare clear statement")
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return 0, errortypes.DatabaseError(err, "failed to clear summaries")
	}
	return s.conn.Changes(), nil
}

func scanRecord(stmt *sqlite.Stmt) (*Record, error) {
	// Column indices are 0-based
	result, err := decodeResult(stmt.ColumnText(5))
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:            stmt.ColumnText(0),
		Source:        stmt.ColumnText(1),
		Model:         stmt.ColumnText(2),
		SummaryLength: stmt.ColumnText(3),
		CreatedAt:     time.Unix(0, stmt.ColumnInt64(4)).UTC(),
		Result:        result,
	}, nil
}
