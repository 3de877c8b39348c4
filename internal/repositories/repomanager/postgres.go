package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/securechat/securechat/internal/repositories/captchas"
	"github.com/securechat/securechat/internal/repositories/messages"
	"github.com/securechat/securechat/internal/repositories/users"
	"github.com/securechat/securechat/migrations"
)

type PostgresRepositoryManager struct {
	db       *sql.DB
	users    *users.PostgresRepository
	messages *messages.PostgresRepository
	captchas *captchas.PostgresRepository
}

func NewPostgresRepositoryManager(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:       db,
		users:    users.NewPostgresRepository(db),
		messages: messages.NewPostgresRepository(db),
		captchas: captchas.NewPostgresRepository(db),
	}

	if err := m.runMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}

func (m *PostgresRepositoryManager) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, m.db, ".")
}

func (m *PostgresRepositoryManager) Users() users.Repository       { return m.users }
func (m *PostgresRepositoryManager) Messages() messages.Repository { return m.messages }
func (m *PostgresRepositoryManager) Captchas() captchas.Repository { return m.captchas }
func (m *PostgresRepositoryManager) Conn() *sql.DB                 { return m.db }
func (m *PostgresRepositoryManager) Close() error                  { return m.db.Close() }
