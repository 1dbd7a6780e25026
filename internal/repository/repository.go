package repository

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by a BlobStore when the key has never been written.
var ErrNotFound = errors.New("blob not found")

// BlobStore is a keyed byte store. Implementations must be safe for
// concurrent use.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// ParseError reports a persisted snapshot that could not be decoded.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing snapshot %q: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
