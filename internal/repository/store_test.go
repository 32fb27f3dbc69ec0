package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

func strPtr(s string) *string { return &s }

func sampleRecord(i int) entity.FinalRecord {
	rec := entity.FinalRecord{
		ID:               uuid.New(),
		CreatedAt:        time.Date(2025, 4, 1, 10, 0, i, 0, time.UTC),
		FullName:         strPtr(fmt.Sprintf("Marie Dupont %d", i)),
		Employer:         strPtr("ACME SAS"),
		AverageNetSalary: 2050,
		MonthlyCapacity:  676.5,
		TotalBorrowable:  162360,
		LoanYears:        20,
		Verified:         i%2 == 0,
	}
	if !rec.Verified {
		rec.Reason = "no bank transfer match"
	}
	return rec
}

// exerciseStore checks the append-only contract shared by every backend.
func exerciseStore(t *testing.T, s ResultStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Latest(ctx); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("Latest on empty store: expected ErrNotFound, got %v", err)
	}
	empty, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List on empty store: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty list, got %d", len(empty))
	}

	var want []entity.FinalRecord
	for i := 0; i < 3; i++ {
		rec := sampleRecord(i)
		want = append(want, rec)
		if err := s.Append(ctx, rec); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("List returned %d records, want %d", len(got), len(want))
	}
	for i := range want {
		assertSameRecord(t, got[i], want[i])
	}

	latest, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	assertSameRecord(t, latest, want[2])

	n, err := s.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v; want 3", n, err)
	}
}

func assertSameRecord(t *testing.T, got, want entity.FinalRecord) {
	t.Helper()
	if got.ID != want.ID {
		t.Errorf("id = %s, want %s", got.ID, want.ID)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created_at = %s, want %s", got.CreatedAt, want.CreatedAt)
	}
	if entity.StringValue(got.FullName) != entity.StringValue(want.FullName) {
		t.Errorf("full_name = %v, want %v", entity.StringValue(got.FullName), entity.StringValue(want.FullName))
	}
	if got.Position != nil {
		t.Errorf("position = %q, want nil", *got.Position)
	}
	if got.MonthlyCapacity != want.MonthlyCapacity || got.TotalBorrowable != want.TotalBorrowable || got.AverageNetSalary != want.AverageNetSalary {
		t.Errorf("figures = %+v, want %+v", got, want)
	}
	if got.LoanYears != want.LoanYears || got.Verified != want.Verified || got.Reason != want.Reason {
		t.Errorf("verdict = %v/%q years %d, want %v/%q years %d",
			got.Verified, got.Reason, got.LoanYears, want.Verified, want.Reason, want.LoanYears)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "json", "db.json"), nil)
	exerciseStore(t, s)

	// a second handle on the same file sees the same history
	again := NewFileStore(s.Path(), nil)
	n, err := again.Count(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("reopened Count = %d, %v; want 3", n, err)
	}
}

func TestFileStore_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	if err := os.WriteFile(path, []byte(`[{"id": "not-closed"`), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path, nil)
	ctx := context.Background()

	recs, err := s.List(ctx)
	if err != nil || len(recs) != 0 {
		t.Fatalf("List = %v, %v; want empty", recs, err)
	}

	if err := s.Append(ctx, sampleRecord(0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Fatalf("Count = %d, want 1", n)
	}
	matches, _ := filepath.Glob(path + ".corrupt-*")
	if len(matches) != 1 {
		t.Errorf("expected the corrupt file to be kept aside, found %v", matches)
	}
}

func TestFileStore_ConcurrentAppends(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "db.json"), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Append(ctx, sampleRecord(i)); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if n, _ := s.Count(ctx); n != 10 {
		t.Fatalf("Count = %d, want 10", n)
	}
}

func TestFileStore_WriteFailureIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(filepath.Join(blocker, "db.json"), nil)
	if err := s.Append(context.Background(), sampleRecord(0)); !errors.Is(err, common.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestSQLStore_SQLite(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "records.db")
	s, err := OpenSQLite(context.Background(), dsn, nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = s.Close() }()

	exerciseStore(t, s)

	if err := HealthCheck(context.Background(), s, time.Second, nil); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func TestSQLStore_MigrationIsIdempotent(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "records.db")
	ctx := context.Background()

	first, err := OpenSQLite(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := first.Append(ctx, sampleRecord(0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	_ = first.Close()

	second, err := OpenSQLite(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = second.Close() }()
	if n, _ := second.Count(ctx); n != 1 {
		t.Fatalf("Count after reopen = %d, want 1", n)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = rdb.Close() }()

	key := "income-verifier:test:" + uuid.NewString()
	defer rdb.Del(ctx, key)

	exerciseStore(t, NewRedisStore(rdb, key, nil))
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), common.StoreConfig{Backend: "cassandra"}, nil)
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestOpen_File(t *testing.T) {
	s, err := Open(context.Background(), common.StoreConfig{Backend: "file", Path: filepath.Join(t.TempDir(), "db.json")}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("expected *FileStore, got %T", s)
	}
}
