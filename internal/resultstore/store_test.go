package resultstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/localrivet/recursum/internal/errortypes"
	"github.com/localrivet/recursum/internal/reducer"
)

func newRecord(id string, createdAt time.Time) *Record {
	return &Record{
		ID:            id,
		Source:        id + ".txt",
		Model:         "test-model",
		SummaryLength: string(reducer.LengthShort),
		CreatedAt:     createdAt,
		Result: reducer.Result{
			Summary:         "summary of " + id,
			OriginalLength:  100,
			SummaryLength:   14,
			ChunksProcessed: 3,
			Levels:          2,
			InputTokens:     40,
			OutputTokens:    20,
			TotalTokens:     60,
		},
	}
}

// testStore runs the shared behaviour checks against any Store.
func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := s.Store(ctx, newRecord(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Store(%s) error = %v", id, err)
		}
	}

	t.Run("Get", func(t *testing.T) {
		rec, err := s.Get(ctx, "b")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		want := newRecord("b", base.Add(time.Minute))
		if rec.Source != want.Source || rec.Model != want.Model || rec.SummaryLength != want.SummaryLength {
			t.Errorf("unexpected record %+v", rec)
		}
		if rec.Result != want.Result {
			t.Errorf("Result = %+v, want %+v", rec.Result, want.Result)
		}
		if !rec.CreatedAt.Equal(want.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, want.CreatedAt)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		if !errortypes.IsNotFoundError(err) {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		recs, err := s.List(ctx, 2)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(recs) != 2 || recs[0].ID != "c" || recs[1].ID != "b" {
			t.Errorf("unexpected list order: %v", ids(recs))
		}
	})

	t.Run("StoreReplaces", func(t *testing.T) {
		rec := newRecord("a", base)
		rec.Result.Summary = "replaced"
		if err := s.Store(ctx, rec); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
		got, err := s.Get(ctx, "a")
		if err != nil || got.Result.Summary != "replaced" {
			t.Errorf("expected replaced summary, got %+v, %v", got, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.Delete(ctx, "a"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := s.Delete(ctx, "a"); !errortypes.IsNotFoundError(err) {
			t.Errorf("expected not found on second delete, got %v", err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		n, err := s.Clear(ctx)
		if err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 cleared records, got %d", n)
		}
		recs, err := s.List(ctx, 0)
		if err != nil || len(recs) != 0 {
			t.Errorf("expected empty store, got %v, %v", ids(recs), err)
		}
	})

	t.Run("InvalidRecord", func(t *testing.T) {
		if err := s.Store(ctx, &Record{}); !errortypes.IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func ids(recs []*Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer s.Close()

	testStore(t, s)
}

func TestSQLiteStore_NotInitialized(t *testing.T) {
	s := NewSQLiteStore()
	if _, err := s.Get(context.Background(), "x"); !errortypes.IsDatabaseError(err) {
		t.Errorf("expected database error, got %v", err)
	}
}

func TestSQLiteStore_CanceledContext(t *testing.T) {
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.List(ctx, 1); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("RECURSUM_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("RECURSUM_TEST_POSTGRES_URL not set")
	}

	s, err := NewPostgresStore(context.Background(), url)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	defer s.Close()
	if _, err := s.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	testStore(t, s)
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mongo", ""); !errortypes.IsConfigError(err) {
		t.Errorf("expected config error, got %v", err)
	}
}
