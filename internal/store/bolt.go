package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var documentsBucket = []byte("documents")

// BoltDocuments keeps documents in a single bbolt bucket. bbolt holds an
// exclusive file lock, so only one process can open the database.
type BoltDocuments struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the bbolt database at path.
func OpenBolt(path string) (*BoltDocuments, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(documentsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltDocuments{db: db}, nil
}

func (b *BoltDocuments) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var body []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(documentsBucket).Get([]byte(name))
		if v == nil {
			return ErrDocumentNotFound
		}
		// v is only valid inside the transaction.
		body = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (b *BoltDocuments) Write(ctx context.Context, name string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).Put([]byte(name), body)
	}); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

func (b *BoltDocuments) Close() error {
	return b.db.Close()
}
