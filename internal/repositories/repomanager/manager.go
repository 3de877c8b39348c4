// Package repomanager wires the SQL-backed stores to a shared database
// handle and runs schema migrations.
package repomanager

import (
	"database/sql"

	"github.com/securechat/securechat/internal/repositories/captchas"
	"github.com/securechat/securechat/internal/repositories/messages"
	"github.com/securechat/securechat/internal/repositories/users"
)

type RepositoryManager interface {
	Users() users.Repository
	Messages() messages.Repository
	Captchas() captchas.Repository

	// Conn exposes the underlying handle for transactional work
	// (dbx.WithTx).
	Conn() *sql.DB

	Close() error
}
