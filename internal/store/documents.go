package store

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned by Documents.Read for a name that was never written.
var ErrDocumentNotFound = errors.New("document not found")

// Documents persists named JSON documents. Write replaces a document
// atomically: readers observe either the previous body or the new one.
type Documents interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, body []byte) error
	Close() error
}

// DocumentLocker is implemented by backends that can keep other processes out
// of a document while it is read, changed and written back.
type DocumentLocker interface {
	LockDocument(ctx context.Context, name string) (unlock func() error, err error)
}

func lockDocument(ctx context.Context, docs Documents, name string) (func() error, error) {
	locker, ok := docs.(DocumentLocker)
	if !ok {
		return func() error { return nil }, nil
	}
	return locker.LockDocument(ctx, name)
}
