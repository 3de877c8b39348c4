package captchas

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/securechat/securechat/internal/common"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestSave_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expire := time.Now().Add(5 * time.Minute)
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+captchas`).
		WithArgs("c-1", "12", expire).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), "c-1", "12", expire); err != nil {
		t.Fatalf("Save error: %v", err)
	}
}

func TestTake_IsSingleDeleteReturning(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^\s*DELETE\s+FROM\s+captchas\s+WHERE\s+id\s*=\s*\$1\s+AND\s+expire_at\s*>\s*\$2\s+RETURNING\s+answer`).
		WithArgs("c-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"answer"}).AddRow("12"))

	answer, err := repo.Take(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Take error: %v", err)
	}
	if answer != "12" {
		t.Fatalf("expected 12, got %q", answer)
	}
}

func TestTake_UnknownOrSpent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^\s*DELETE\s+FROM\s+captchas`).
		WithArgs("gone", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Take(context.Background(), "gone")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteExpired_CountReturned(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`(?s)^\s*DELETE\s+FROM\s+captchas\s+WHERE\s+expire_at\s*<=\s*\$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("DeleteExpired error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
}
