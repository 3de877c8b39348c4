package messages

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/securechat/securechat/internal/dbx"
	"github.com/securechat/securechat/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Message) error {
	query := `
		INSERT INTO messages (
			id, from_user, to_user, original_to, ts,
			eph_pub, iv, ciphertext, enc_alg, kex_alg, sig_alg, expire_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	var expireAt sql.NullTime
	if m.ExpireAt != nil {
		expireAt = sql.NullTime{Time: *m.ExpireAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.From, m.To, m.OriginalTo, m.Timestamp,
		m.EphemeralPublicKeyB64, m.IVB64, m.CiphertextB64,
		m.EncAlg, m.KexAlg, m.SigAlg, expireAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreatePair(ctx context.Context, recipient, archive *models.Message) error {
	db, ok := r.db.(*sql.DB)
	if !ok {
		// already inside a transaction handle
		if err := r.Create(ctx, recipient); err != nil {
			return err
		}
		return r.Create(ctx, archive)
	}
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txRepo := NewPostgresRepository(tx)
		if err := txRepo.Create(ctx, recipient); err != nil {
			return err
		}
		return txRepo.Create(ctx, archive)
	})
}

func (r *PostgresRepository) Conversation(ctx context.Context, me, partner string, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, from_user, to_user, original_to, ts,
		       eph_pub, iv, ciphertext, enc_alg, kex_alg, sig_alg, expire_at
		FROM messages
		WHERE to_user = $1 AND (from_user = $2 OR original_to = $2)
		ORDER BY ts ASC`
	args := []any{me, partner}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		m := &models.Message{}
		var expireAt sql.NullTime
		err := rows.Scan(
			&m.ID, &m.From, &m.To, &m.OriginalTo, &m.Timestamp,
			&m.EphemeralPublicKeyB64, &m.IVB64, &m.CiphertextB64,
			&m.EncAlg, &m.KexAlg, &m.SigAlg, &expireAt,
		)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if expireAt.Valid {
			t := expireAt.Time
			m.ExpireAt = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) DistinctSendersSince(ctx context.Context, me string, since time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT from_user FROM messages
		WHERE to_user = $1 AND from_user <> $1 AND ts > $2
		ORDER BY from_user`, me, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var senders []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		senders = append(senders, s)
	}
	return senders, rows.Err()
}

func (r *PostgresRepository) DeleteConversation(ctx context.Context, me, partner string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM messages
		WHERE to_user = $1 AND (from_user = $2 OR original_to = $2)`, me, partner)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM messages WHERE expire_at IS NOT NULL AND expire_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
