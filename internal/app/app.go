// Package app wires the SecureChat core together: stores, services and the
// background expiry sweeper, with signal-driven graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/securechat/securechat/internal/auth"
	"github.com/securechat/securechat/internal/captcha"
	"github.com/securechat/securechat/internal/chat"
	"github.com/securechat/securechat/internal/config"
	"github.com/securechat/securechat/internal/logging"
	"github.com/securechat/securechat/internal/profile"
	"github.com/securechat/securechat/internal/repositories/blobs"
	"github.com/securechat/securechat/internal/repositories/repomanager"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	manager repomanager.RepositoryManager

	authService *auth.Service
	chatService *chat.Service
	captchas    *captcha.Provider
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	manager, err := repomanager.NewPostgresRepositoryManager(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobRepo, err := blobs.NewS3Repository(ctx, blobs.S3Options{
		User:         cfg.S3RootUser,
		Password:     cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	profileKey, err := base64.StdEncoding.DecodeString(cfg.ProfileKeyB64)
	if err != nil {
		return nil, fmt.Errorf("profile key: %w", err)
	}
	profileCipher, err := profile.NewCipher(profileKey)
	if err != nil {
		return nil, fmt.Errorf("profile key: %w", err)
	}

	captchaProvider := captcha.NewProvider(manager.Captchas())
	authService := auth.NewService(manager.Users(), captchaProvider, profileCipher,
		[]byte(cfg.SessionSecret), cfg.PBKDF2Iterations, logger)
	chatService := chat.NewService(manager.Users(), manager.Messages(), blobRepo, logger)

	return &App{
		config:      cfg,
		logger:      logger,
		manager:     manager,
		authService: authService,
		chatService: chatService,
		captchas:    captchaProvider,
	}, nil
}

func (app *App) Auth() *auth.Service         { return app.authService }
func (app *App) Chat() *chat.Service         { return app.chatService }
func (app *App) Captchas() *captcha.Provider { return app.captchas }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runExpirySweeper periodically purges expired message and captcha records.
// The blob store expires objects on its own.
func (app *App) runExpirySweeper(ctx context.Context) {
	ticker := time.NewTicker(app.config.ExpirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			if n, err := app.manager.Messages().DeleteExpired(ctx, now); err != nil {
				app.logger.Error(ctx, "message expiry sweep failed", "error", err)
			} else if n > 0 {
				app.logger.Info(ctx, "expired messages purged", "count", n)
			}
			if sweeper, ok := app.manager.Captchas().(interface {
				DeleteExpired(ctx context.Context, now time.Time) (int64, error)
			}); ok {
				if _, err := sweeper.DeleteExpired(ctx, now); err != nil {
					app.logger.Error(ctx, "captcha expiry sweep failed", "error", err)
				}
			}
		}
	}
}

// Run blocks until the worker fn returns or a termination signal arrives,
// then releases resources.
func (app *App) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runExpirySweeper(ctx)
	}()

	err := fn(ctx)
	cancelFunc()
	wg.Wait()

	if closeErr := app.manager.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
