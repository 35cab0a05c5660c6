package resultstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localrivet/recursum/internal/errortypes"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	DB *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and creates the summaries table.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to connect to Postgres")
	}
	ps := &PostgresStore{DB: db}
	if err := ps.createTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return ps, nil
}

func (ps *PostgresStore) createTable(ctx context.Context) error {
	_, err := ps.DB.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS summaries (
                id TEXT PRIMARY KEY,
                source TEXT NOT NULL,
                model TEXT NOT NULL,
                summary_length TEXT NOT NULL,
                created_at TIMESTAMPTZ NOT NULL,
                result JSONB NOT NULL
        );`)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to create table")
	}
	return nil
}

// Close closes the pool.
func (ps *PostgresStore) Close() error {
	if ps != nil && ps.DB != nil {
		ps.DB.Close()
	}
	return nil
}

// Store inserts or replaces a record.
func (ps *PostgresStore) Store(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	result, err := encodeResult(rec.Result)
	if err != nil {
		return err
	}
	_, err = ps.DB.Exec(ctx, `
                INSERT INTO summaries (id, source, model, summary_length, created_at, result)
                VALUES ($1, $2, $3, $4, $5, $6::jsonb)
                ON CONFLICT (id) DO UPDATE SET
                        source = EXCLUDED.source,
                        model = EXCLUDED.model,
                        summary_length = EXCLUDED.summary_length,
                        created_at = EXCLUDED.created_at,
                        result = EXCLUDED.result
        `, rec.ID, rec.Source, rec.Model, rec.SummaryLength, rec.CreatedAt, result)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to insert summary").WithField("id", rec.ID)
	}
	return nil
}

// Get returns the record with the given id.
func (ps *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	row := ps.DB.QueryRow(ctx, `
        SELECT id, source, model, summary_length, created_at, result::text
        FROM summaries WHERE id = $1
        `, id)
	rec, err := scanPostgresRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns up to limit records, newest first.
func (ps *PostgresStore) List(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := ps.DB.Query(ctx, `
        SELECT id, source, model, summary_length, created_at, result::text
        FROM summaries
        ORDER BY created_at DESC, id ASC
        LIMIT $1
        `, listLimit(limit))
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to list summaries")
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errortypes.DatabaseError(err, "failed to list summaries")
	}
	return records, nil
}

// Delete removes one record.
func (ps *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := ps.DB.Exec(ctx, `DELETE FROM summaries WHERE id = $1`, id)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to delete summary").WithField("id", id)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

// Clear removes every record.
func (ps *PostgresStore) Clear(ctx context.Context) (int, error) {
	tag, err := ps.DB.Exec(ctx, `DELETE FROM summaries`)
	if err != nil {
		return 0, errortypes.DatabaseError(err, "failed to clear summaries")
	}
	return int(tag.RowsAffected()), nil
}

func scanPostgresRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var result string
	if err := row.Scan(&rec.ID, &rec.Source, &rec.Model, &rec.SummaryLength, &rec.CreatedAt, &result); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, errortypes.DatabaseError(err, "failed to scan summary")
	}
	r, err := decodeResult(result)
	if err != nil {
		return nil, err
	}
	rec.Result = r
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}
