// Package blobs implements the blob store collaborator for the file
// transfer envelope: insert-with-optional-expiry keyed by a random id, and
// fetch-by-id. Contents are already encrypted before they get here.
package blobs

import (
	"context"
	"time"
)

type Repository interface {
	// Put stores data under id. A non-nil expireAt hands the blob to the
	// store's expiry mechanism.
	Put(ctx context.Context, id string, data []byte, expireAt *time.Time) error

	// Get returns the stored bytes or common.ErrNotFound if the blob is
	// absent or already expired.
	Get(ctx context.Context, id string) ([]byte, error)
}
