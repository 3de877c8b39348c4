// Package captchas implements the one-time challenge store. The whole
// point of the interface is Take: get-and-delete must be a single atomic
// operation so a challenge can never be answered twice, even by concurrent
// verifiers racing on the same id.
package captchas

import (
	"context"
	"time"
)

type Repository interface {
	// Save stores the expected answer for a challenge id.
	Save(ctx context.Context, id, answer string, expireAt time.Time) error

	// Take atomically removes and returns the stored answer. Returns
	// common.ErrNotFound if the id is unknown, expired or already taken.
	Take(ctx context.Context, id string) (string, error)
}
