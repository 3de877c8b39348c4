// Package messages implements the message-record store collaborator.
// Records are opaque to it: it routes, orders and expires them, nothing
// else.
package messages

import (
	"context"
	"time"

	"github.com/securechat/securechat/internal/models"
)

type Repository interface {
	Create(ctx context.Context, msg *models.Message) error

	// CreatePair inserts the recipient copy and the sender's archival copy
	// of one logical message together: both land or neither does.
	CreatePair(ctx context.Context, recipient, archive *models.Message) error

	// Conversation returns records with to = me and (from = partner or
	// originalTo = partner), oldest first, at most limit (0 = no limit).
	Conversation(ctx context.Context, me, partner string, limit int) ([]*models.Message, error)

	// DistinctSendersSince lists usernames that sent to me after since,
	// for the "messages missed while away" view.
	DistinctSendersSince(ctx context.Context, me string, since time.Time) ([]string, error)

	// DeleteConversation removes both directions of a conversation as seen
	// from me's mailbox and returns the number of records removed.
	DeleteConversation(ctx context.Context, me, partner string) (int64, error)

	// DeleteExpired implements the store's TTL mechanism: it drops every
	// record whose expireAt has elapsed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
