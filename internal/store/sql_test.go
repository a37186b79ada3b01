package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"mixtape/internal/library"
)

func TestSQLiteDocumentsRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "mixtape.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	docs := NewSQLDocuments(db, SQLite)
	defer docs.Close()

	if err := docs.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if err := docs.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema is not idempotent: %v", err)
	}

	if _, err := docs.Read(ctx, "playlists"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := docs.Write(ctx, "playlists", []byte(`[1]`)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := docs.Write(ctx, "playlists", []byte(`[2]`)); err != nil {
		t.Fatalf("update: %v", err)
	}

	body, err := docs.Read(ctx, "playlists")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "[2]" {
		t.Fatalf("expected [2], got %s", body)
	}

	unlock, err := docs.LockDocument(ctx, "playlists")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}

func openSQLiteDocs(t *testing.T, path string) *SQLDocuments {
	t.Helper()
	docs, err := OpenSQLiteDocuments(context.Background(), path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	t.Cleanup(func() { _ = docs.Close() })
	return docs
}

func TestSQLiteLockExcludesOtherHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixtape.db")
	first := openSQLiteDocs(t, path)
	second := openSQLiteDocs(t, path)

	unlock, err := first.LockDocument(context.Background(), PlaylistsDocument)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := second.LockDocument(ctx, PlaylistsDocument); err == nil {
		t.Fatal("second handle acquired a held lock")
	}

	other, err := second.LockDocument(context.Background(), UsersDocument)
	if err != nil {
		t.Fatalf("lock on another document: %v", err)
	}
	_ = other()

	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	again, err := second.LockDocument(context.Background(), PlaylistsDocument)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	_ = again()
}

func TestSQLiteHandlesDoNotLoseUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixtape.db")
	ctx := context.Background()

	stores := []*library.Store{
		library.New(NewPlaylistDocument(openSQLiteDocs(t, path))),
		library.New(NewPlaylistDocument(openSQLiteDocs(t, path))),
	}

	p, err := stores[0].CreatePlaylist(ctx, "alice", "Shared")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const adds = 40
	var wg sync.WaitGroup
	errs := make(chan error, adds)
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := stores[i%2].AddRemoteItem(ctx, "alice", p.ID, library.RemoteItem{
				ItemID: fmt.Sprintf("v%02d", i),
				Title:  fmt.Sprintf("Clip %02d", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	got, err := stores[1].GetPlaylist(ctx, "alice", p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Items) != adds {
		t.Fatalf("expected %d items, got %d", adds, len(got.Items))
	}
	seen := make(map[string]bool, adds)
	for _, item := range got.Items {
		if seen[item.ID] {
			t.Fatalf("item %s stored twice", item.ID)
		}
		seen[item.ID] = true
	}
}

func TestPostgresDocumentsRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	docs := NewSQLDocuments(db, Postgres)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE name = $1")).
		WithArgs("playlists").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(`[]`))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE name = $1")).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"body"}))

	body, err := docs.Read(context.Background(), "playlists")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "[]" {
		t.Fatalf("expected [], got %s", body)
	}

	if _, err := docs.Read(context.Background(), "users"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresDocumentsWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	docs := NewSQLDocuments(db, Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, CURRENT_TIMESTAMP)")).
		WithArgs("playlists", `[{"id":"pl_1"}]`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := docs.Write(context.Background(), "playlists", []byte(`[{"id":"pl_1"}]`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresDocumentsWriteFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	docs := NewSQLDocuments(db, Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnError(&pgconn.PgError{Code: "53100", Message: "could not extend file"})
	mock.ExpectRollback()

	err = docs.Write(context.Background(), "playlists", []byte(`[]`))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "sqlstate 53100") {
		t.Fatalf("expected SQLSTATE in error, got %v", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected wrapped PgError, got %T", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	docs := NewSQLDocuments(db, Postgres)
	key := advisoryKey("playlists")

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_lock($1)")).
		WithArgs(key).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WithArgs(key).
		WillReturnResult(sqlmock.NewResult(0, 0))

	unlock, err := docs.LockDocument(context.Background(), "playlists")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := NewSQLDocuments(nil, Postgres)
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("unexpected postgres query %q", got)
	}
	lite := NewSQLDocuments(nil, SQLite)
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("unexpected sqlite query %q", got)
	}
}
