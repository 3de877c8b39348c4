// Package cli is the interactive terminal client for SecureChat. It drives
// the auth and chat services directly; all crypto happens in-process and
// plaintext never leaves the session.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/securechat/securechat/internal/auth"
	"github.com/securechat/securechat/internal/captcha"
	"github.com/securechat/securechat/internal/chat"
	"github.com/securechat/securechat/internal/common"
)

// downloadDir is where getfile writes received files, relative to the cwd.
const downloadDir = "downloads"

type App struct {
	authService *auth.Service
	chatService *chat.Service
	captchas    *captcha.Provider
	reader      *bufio.Reader

	session *auth.Session
}

func NewApp(authService *auth.Service, chatService *chat.Service, captchas *captcha.Provider) *App {
	return &App{
		authService: authService,
		chatService: chatService,
		captchas:    captchas,
		reader:      bufio.NewReader(os.Stdin),
	}
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) showLogin() string {
	if a.session == nil {
		return "(not logged in)"
	}
	return a.session.Username()
}

// ensureSession checks the session token before an authed command runs and
// drops the local session if another client has logged in meanwhile.
func (a *App) ensureSession(ctx context.Context) error {
	if a.session == nil {
		return common.ErrInvalidToken
	}
	ok, err := a.authService.IsSessionValid(ctx, a.session.Username(), a.session.Token())
	if err != nil {
		return err
	}
	if !ok {
		printlnFn("Session ended: this account was logged in from another client.")
		a.session = nil
		return common.ErrInvalidToken
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	printlnFn("SecureChat CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.showLogin, scanner)
	return nil
}
