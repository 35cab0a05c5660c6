// Package resultstore persists summarization results so they can be listed
// and fetched again from the MCP and HTTP surfaces.
package resultstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/localrivet/recursum/internal/errortypes"
	"github.com/localrivet/recursum/internal/reducer"
)

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 50

// Record is one stored summarization.
type Record struct {
	ID            string         `json:"id"`
	Source        string         `json:"source,omitempty"`
	Model         string         `json:"model,omitempty"`
	SummaryLength string         `json:"summary_length"`
	CreatedAt     time.Time      `json:"created_at"`
	Result        reducer.Result `json:"result"`
}

// Store defines the interface for storing and retrieving results.
type Store interface {
	// Store inserts or replaces a record.
	Store(ctx context.Context, rec *Record) error

	// Get returns the record with the given id, or a not-found error.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]*Record, error)

	// Delete removes one record, or returns a not-found error.
	Delete(ctx context.Context, id string) error

	// Clear removes every record and reports how many were removed.
	Clear(ctx context.Context) (int, error)

	// Close releases any resources.
	Close() error
}

func validateRecord(rec *Record) error {
	if rec == nil {
		return errortypes.ValidationError(nil, "record is nil")
	}
	if rec.ID == "" {
		return errortypes.ValidationError(nil, "record id is empty")
	}
	return nil
}

func notFound(id string) error {
	return errortypes.NotFoundError(fmt.Errorf("no summary with id %q", id), "summary not found").
		WithField("id", id)
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

func encodeResult(r reducer.Result) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", errortypes.InternalError(err, "failed to encode result")
	}
	return string(b), nil
}

func decodeResult(s string) (reducer.Result, error) {
	var r reducer.Result
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return r, errortypes.DatabaseError(err, "stored result is corrupt")
	}
	return r, nil
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the store for driver. dsn is a file path for sqlite and a
// connection string for postgres.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLiteStore(dsn)
	case DriverPostgres:
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, errortypes.ConfigError(fmt.Errorf("unknown store driver %q", driver), "invalid store configuration")
	}
}
