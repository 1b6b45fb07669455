// Package server initializes and runs the vault server. It opens the
// database, runs migrations, builds the cipher from the configured master
// key, wires the storage and service layers and starts the HTTP endpoint
// with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"docvault/internal/common"
	"docvault/internal/cryptox"
	"docvault/internal/logging"
	"docvault/internal/server/blob"
	"docvault/internal/server/config"
	vaulthttp "docvault/internal/server/http"
	"docvault/internal/server/repositories/repomanager"
	"docvault/internal/server/services"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *vaulthttp.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	key, err := cfg.EncryptionKey()
	if err != nil {
		return nil, fmt.Errorf("master key error: %w", err)
	}
	cipher, err := cryptox.NewCipher(key)
	// the cipher holds its own key schedule; drop the raw bytes either way
	common.WipeByteArray(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init error: %w", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager(cipher)
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs, err := blob.NewS3Store(ctx, blob.S3Options{
		AccessKey:    cfg.S3RootUser,
		SecretKey:    cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	events := vaulthttp.NewEventsCounter()
	vault := services.NewVaultService(db, repos, blobs, cipher, logger, events)
	shares := services.NewShareService(db, repos, logger, events, cfg.ShareTTL)

	controller := vaulthttp.NewVaultController(vault, shares, logger)
	httpServer := vaulthttp.NewServer(cfg.EndpointAddrHTTP, logger, controller, []byte(cfg.JWTSecret))

	return &App{config: cfg, logger: logger, db: db, httpServer: httpServer}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
