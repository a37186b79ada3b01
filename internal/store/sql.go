package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour spoken by SQLDocuments.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// SQLDocuments stores documents as rows of the documents table.
type SQLDocuments struct {
	db      *sql.DB
	dialect Dialect

	// lockBase prefixes the flock files guarding SQLite documents.
	lockBase string
}

// NewSQLDocuments wraps an open database handle. The schema is expected to
// exist; call EnsureSchema for SQLite or run cmd/migrate for Postgres.
// SQLite handles built this way are not locked across processes; use
// OpenSQLiteDocuments for a shared database file.
func NewSQLDocuments(db *sql.DB, dialect Dialect) *SQLDocuments {
	return &SQLDocuments{db: db, dialect: dialect}
}

// OpenSQLiteDocuments opens the SQLite file at path, creates the schema and
// guards each document with a flock on <path>-<name>.lock.
func OpenSQLiteDocuments(ctx context.Context, path string) (*SQLDocuments, error) {
	db, err := OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}

	docs := &SQLDocuments{db: db, dialect: SQLite}
	if path != ":memory:" {
		docs.lockBase = path
	}
	if err := docs.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return docs, nil
}

// OpenSQLite opens the database file at path and applies connection pragmas.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection; a single connection keeps them in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	return db, nil
}

// EnsureSchema creates the documents table when it is missing.
func (d *SQLDocuments) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS documents (
			name TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	if _, err := d.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create documents table: %w", describe(err))
	}
	return nil
}

func (d *SQLDocuments) Read(ctx context.Context, name string) ([]byte, error) {
	var body string
	err := d.db.QueryRowContext(ctx, d.rebind(`
		SELECT body
		FROM documents
		WHERE name = ?
	`), name).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("select %s: %w", name, describe(err))
	}
	return []byte(body), nil
}

func (d *SQLDocuments) Write(ctx context.Context, name string, body []byte) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", describe(err))
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, d.rebind(`
		INSERT INTO documents (name, body, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE
		SET body = excluded.body, updated_at = excluded.updated_at
	`), name, string(body)); err != nil {
		return fmt.Errorf("upsert %s: %w", name, describe(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", describe(err))
	}
	tx = nil

	return nil
}

// LockDocument takes a Postgres session advisory lock keyed by the document
// name on a dedicated connection. SQLite only serialises single writes, so
// a read-modify-write cycle is guarded by a flock beside the database file.
func (d *SQLDocuments) LockDocument(ctx context.Context, name string) (func() error, error) {
	if d.dialect != Postgres {
		if d.lockBase == "" {
			return func() error { return nil }, nil
		}
		return lockFile(ctx, d.lockBase+"-"+name+".lock", name)
	}

	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve lock connection: %w", describe(err))
	}

	key := advisoryKey(name)
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("advisory lock %s: %w", name, describe(err))
	}

	return func() error {
		_, unlockErr := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
		closeErr := conn.Close()
		if err := errors.Join(unlockErr, closeErr); err != nil {
			return fmt.Errorf("advisory unlock %s: %w", name, describe(err))
		}
		return nil
	}, nil
}

func (d *SQLDocuments) Close() error {
	return d.db.Close()
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d *SQLDocuments) rebind(query string) string {
	if d.dialect != Postgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func advisoryKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("mixtape:" + name))
	return int64(h.Sum64())
}

// describe attaches the SQLSTATE of Postgres errors to the message.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w (sqlstate %s)", err, pgErr.Code)
	}
	return err
}
