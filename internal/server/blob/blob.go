// Package blob abstracts the byte-addressable store holding encrypted file
// content. The vault never hands this layer plaintext; keys are opaque
// handles recorded on the document row.
package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the contract the vault requires from a blob backend. Get must
// return common.ErrBlobMissing (wrapped) when the key is absent, so callers
// can tell a data-integrity fault from ordinary I/O failure.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// NewStorageKey builds a fresh unpredictable object key, sharded by date.
func NewStorageKey() string {
	d := time.Now().UTC()
	return fmt.Sprintf("documents/%d/%02d/%02d/%v", d.Year(), int(d.Month()), d.Day(), uuid.New())
}
