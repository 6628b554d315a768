// Package server wires the application together: configuration, logging,
// database with migrations, the AWS-backed queue and object store, and the
// HTTP API with graceful shutdown. The PDF worker process reuses the same
// wiring through NewWorker.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/profiledoc/profiledoc/internal/logging"
	"github.com/profiledoc/profiledoc/internal/server/config"
	"github.com/profiledoc/profiledoc/internal/server/httpapi"
	"github.com/profiledoc/profiledoc/internal/server/pdf"
	"github.com/profiledoc/profiledoc/internal/server/queue"
	"github.com/profiledoc/profiledoc/internal/server/repositories/repomanager"
	"github.com/profiledoc/profiledoc/internal/server/services"
	"github.com/profiledoc/profiledoc/internal/server/storage"
	"github.com/profiledoc/profiledoc/internal/server/worker"
)

const shutdownTimeout = 10 * time.Second

// App is the HTTP API process: auth endpoints plus the profile-PDF
// endpoints, backed by Postgres, SQS and S3.
type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	users   *services.UserService
	profile *services.ProfileService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	q, err := queue.NewSQSQueue(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("queue init error: %w", err)
	}

	store, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		users:   services.NewUserService(db, m, cfg),
		profile: services.NewProfileService(q, store, pdf.NewFPDFRenderer()),
	}, nil
}

// Run serves HTTP until ctx is cancelled or a signal arrives, then shuts
// down gracefully.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()
	defer app.db.Close()

	if n, err := app.users.PurgeExpiredRefreshTokens(ctx); err != nil {
		app.logger.Warn(ctx, "error purging expired refresh tokens", "error", err)
	} else if n > 0 {
		app.logger.Info(ctx, "purged expired refresh tokens", "count", n)
	}

	api := httpapi.NewServer(app.users, app.profile, app.logger)
	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: api.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// WorkerApp is the PDF worker process: it consumes render jobs from the
// queue and uploads the documents to the object store.
type WorkerApp struct {
	logger logging.Logger
	worker *worker.Worker
}

func NewWorkerApp(ctx context.Context, cfg *config.Config) (*WorkerApp, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	q, err := queue.NewSQSQueue(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("queue init error: %w", err)
	}

	store, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	return &WorkerApp{
		logger: logger,
		worker: worker.NewWorker(q, store, pdf.NewFPDFRenderer(), logger, cfg),
	}, nil
}

// Run polls the queue until a signal arrives.
func (app *WorkerApp) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()
	return app.worker.Run(ctx)
}
