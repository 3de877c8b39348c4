package captchas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/securechat/securechat/internal/common"
	"github.com/securechat/securechat/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, id, answer string, expireAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO captchas (id, answer, expire_at)
		VALUES ($1, $2, $3)`, id, answer, expireAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Take relies on DELETE ... RETURNING being a single atomic statement:
// of any number of concurrent takers exactly one gets the row.
func (r *PostgresRepository) Take(ctx context.Context, id string) (string, error) {
	var answer string
	err := r.db.QueryRowContext(ctx, `
		DELETE FROM captchas
		WHERE id = $1 AND expire_at > $2
		RETURNING answer`, id, time.Now()).Scan(&answer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return answer, nil
}

// DeleteExpired drops stale challenges; the sweeper calls it so abandoned
// registrations do not accumulate.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM captchas WHERE expire_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
