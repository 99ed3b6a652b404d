// Package server wires the remote authority: storage, the optional event
// archive and the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vaxtrace/vaxsync/internal/logging"
	"github.com/vaxtrace/vaxsync/internal/server/archive"
	"github.com/vaxtrace/vaxsync/internal/server/config"
	"github.com/vaxtrace/vaxsync/internal/server/httpapi"
	"github.com/vaxtrace/vaxsync/internal/server/repositories/repomanager"
	"github.com/vaxtrace/vaxsync/internal/server/service"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	service *service.Service

	lis   net.Listener
	ready chan struct{}
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	var repos repomanager.RepositoryManager
	switch c.Storage {
	case config.StoragePostgres:
		pm, err := repomanager.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		repos = pm
	case config.StorageMemory:
		repos = repomanager.NewInMemoryRepositoryManager()
	default:
		return nil, fmt.Errorf("unknown storage %q", c.Storage)
	}

	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	var arch archive.Archiver = archive.Nop{}
	if c.Archive == config.ArchiveS3 {
		s3a, err := archive.NewS3Archiver(ctx, archive.S3Config{
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			Prefix:       c.S3Prefix,
		})
		if err != nil {
			_ = repos.Close()
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		arch = s3a
	}

	return &App{
		config:  c,
		logger:  logger,
		repos:   repos,
		service: service.New(repos, arch, logger),
		ready:   make(chan struct{}),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Ready is closed once the listener is bound.
func (app *App) Ready() <-chan struct{} {
	return app.ready
}

// Addr is the bound listen address; valid after Ready.
func (app *App) Addr() string {
	return app.lis.Addr().String()
}

// Run serves the API until ctx is cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.repos.Close()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage, "auth", app.config.SecretKey != "")
	app.initSignalHandler(cancelFunc)

	lis, err := net.Listen("tcp", app.config.Address)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	app.lis = lis
	close(app.ready)

	srv := &http.Server{
		Handler:           httpapi.NewRouter(app.service, app.config.SecretKey, app.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			app.logger.Warn(sctx, "shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting server", "address", lis.Addr().String())
	err = srv.Serve(lis)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancelFunc()
		<-stopped
		return err
	}
	<-stopped
	return nil
}
