package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/securechat/securechat/internal/common"
	"github.com/securechat/securechat/internal/dbx"
	"github.com/securechat/securechat/internal/models"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (
			username,
			password_salt, password_hash, password_iters,
			sign_pub, sign_env_ct, sign_env_iv, sign_env_salt, sign_env_iters,
			exch_pub, exch_env_ct, exch_env_iv, exch_env_salt, exch_env_iters,
			enc_email, enc_full_name, enc_address, enc_gender
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.ExecContext(ctx, query,
		u.Username,
		u.PasswordSaltB64, u.PasswordHashB64, u.PasswordIterations,
		u.SigningPublicKeyB64,
		u.SigningKeyEnvelope.CiphertextB64, u.SigningKeyEnvelope.IVB64,
		u.SigningKeyEnvelope.SaltB64, u.SigningKeyEnvelope.Iterations,
		u.ExchangePublicKeyB64,
		u.ExchangeKeyEnvelope.CiphertextB64, u.ExchangeKeyEnvelope.IVB64,
		u.ExchangeKeyEnvelope.SaltB64, u.ExchangeKeyEnvelope.Iterations,
		u.EncryptedEmail, u.EncryptedFullName, u.EncryptedAddress, u.EncryptedGender,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return common.ErrDuplicateUser
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT username,
		       password_salt, password_hash, password_iters,
		       sign_pub, sign_env_ct, sign_env_iv, sign_env_salt, sign_env_iters,
		       exch_pub, exch_env_ct, exch_env_iv, exch_env_salt, exch_env_iters,
		       failed_attempts, lockout_until, session_token, last_logout_at,
		       enc_email, enc_full_name, enc_address, enc_gender, enc_avatar,
		       created_at
		FROM users
		WHERE username = $1`

	u := &models.User{}
	var lockoutUntil, lastLogoutAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&u.Username,
		&u.PasswordSaltB64, &u.PasswordHashB64, &u.PasswordIterations,
		&u.SigningPublicKeyB64,
		&u.SigningKeyEnvelope.CiphertextB64, &u.SigningKeyEnvelope.IVB64,
		&u.SigningKeyEnvelope.SaltB64, &u.SigningKeyEnvelope.Iterations,
		&u.ExchangePublicKeyB64,
		&u.ExchangeKeyEnvelope.CiphertextB64, &u.ExchangeKeyEnvelope.IVB64,
		&u.ExchangeKeyEnvelope.SaltB64, &u.ExchangeKeyEnvelope.Iterations,
		&u.FailedAttempts, &lockoutUntil, &u.SessionToken, &lastLogoutAt,
		&u.EncryptedEmail, &u.EncryptedFullName, &u.EncryptedAddress,
		&u.EncryptedGender, &u.EncryptedAvatar,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if lockoutUntil.Valid {
		t := lockoutUntil.Time
		u.LockoutUntil = &t
	}
	if lastLogoutAt.Valid {
		t := lastLogoutAt.Time
		u.LastLogoutAt = &t
	}

	contacts, err := r.Contacts(ctx, username)
	if err != nil {
		return nil, err
	}
	u.Contacts = contacts

	return u, nil
}

func (r *PostgresRepository) IssueSession(ctx context.Context, username, token string) error {
	return r.updateOne(ctx,
		`UPDATE users SET session_token = $2 WHERE username = $1`, username, token)
}

func (r *PostgresRepository) SessionToken(ctx context.Context, username string) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx,
		`SELECT session_token FROM users WHERE username = $1`, username).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

func (r *PostgresRepository) IncrementFailedAttempts(ctx context.Context, username string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET failed_attempts = failed_attempts + 1
		WHERE username = $1
		RETURNING failed_attempts`, username).Scan(&n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) LockUntil(ctx context.Context, username string, until time.Time) error {
	return r.updateOne(ctx,
		`UPDATE users SET lockout_until = $2 WHERE username = $1`, username, until)
}

func (r *PostgresRepository) ResetLockout(ctx context.Context, username string) error {
	return r.updateOne(ctx,
		`UPDATE users SET failed_attempts = 0, lockout_until = NULL WHERE username = $1`, username)
}

func (r *PostgresRepository) ReplaceCredentials(ctx context.Context, username string, b *models.CredentialBundle) error {
	query := `
		UPDATE users SET
			password_salt = $2, password_hash = $3, password_iters = $4,
			sign_env_ct = $5, sign_env_iv = $6, sign_env_salt = $7, sign_env_iters = $8,
			exch_env_ct = $9, exch_env_iv = $10, exch_env_salt = $11, exch_env_iters = $12
		WHERE username = $1`

	return r.updateOne(ctx, query, username,
		b.PasswordSaltB64, b.PasswordHashB64, b.PasswordIterations,
		b.SigningKeyEnvelope.CiphertextB64, b.SigningKeyEnvelope.IVB64,
		b.SigningKeyEnvelope.SaltB64, b.SigningKeyEnvelope.Iterations,
		b.ExchangeKeyEnvelope.CiphertextB64, b.ExchangeKeyEnvelope.IVB64,
		b.ExchangeKeyEnvelope.SaltB64, b.ExchangeKeyEnvelope.Iterations,
	)
}

func (r *PostgresRepository) AddContact(ctx context.Context, username, contact string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_contacts (username, contact)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, username, contact)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Contacts(ctx context.Context, username string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT contact FROM user_contacts
		WHERE username = $1
		ORDER BY contact`, username)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var contacts []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *PostgresRepository) SetLastLogout(ctx context.Context, username string, at time.Time) error {
	return r.updateOne(ctx,
		`UPDATE users SET last_logout_at = $2 WHERE username = $1`, username, at)
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, username string, p EncryptedProfile) error {
	return r.updateOne(ctx, `
		UPDATE users SET enc_email = $2, enc_full_name = $3, enc_address = $4, enc_gender = $5
		WHERE username = $1`, username, p.Email, p.FullName, p.Address, p.Gender)
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, username, encryptedAvatar string) error {
	return r.updateOne(ctx,
		`UPDATE users SET enc_avatar = $2 WHERE username = $1`, username, encryptedAvatar)
}

func (r *PostgresRepository) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
