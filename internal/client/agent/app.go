// Package agent wires the background half of the device: the local store,
// the caching proxy in front of the UI, the control worker and its gRPC
// endpoint, the connectivity monitor and the outbox replay.
package agent

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

	"golang.org/x/sync/errgroup"

	"github.com/vaxtrace/vaxsync/internal/client/config"
	"github.com/vaxtrace/vaxsync/internal/client/connectivity"
	"github.com/vaxtrace/vaxsync/internal/client/control"
	"github.com/vaxtrace/vaxsync/internal/client/proxy"
	"github.com/vaxtrace/vaxsync/internal/client/remote"
	"github.com/vaxtrace/vaxsync/internal/client/services"
	"github.com/vaxtrace/vaxsync/internal/client/store"
	"github.com/vaxtrace/vaxsync/internal/client/syncer"
	"github.com/vaxtrace/vaxsync/internal/logging"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   *store.Store
	proxy   *proxy.Proxy
	worker  *control.Worker
	control *control.Server
	monitor *connectivity.Monitor

	proxyLis   net.Listener
	controlLis net.Listener
	ready      chan struct{}
}

func NewApp(c *config.Config, logger logging.Logger) (*App, error) {
	st := store.New(c.DataPath, logger)
	sessions := services.NewSessionService(st, logger)
	rc := remote.New(c.RemoteBaseURL, c.RequestTimeout, sessions.Token)

	mode := syncer.Mode(c.ReplayMode)
	if mode != syncer.ModeRouted && mode != syncer.ModeGeneric {
		return nil, fmt.Errorf("unknown replay mode %q", c.ReplayMode)
	}
	sy := syncer.New(st, rc, syncer.Config{Mode: mode, Workers: c.ReplayWorkers}, logger)

	px, err := proxy.New(proxy.Config{
		UpstreamURL:   c.UpstreamURL,
		CacheVersion:  c.CacheVersion,
		DynamicPrefix: c.DynamicPrefix,
		OfflinePage:   c.OfflinePage,
		StaticAssets:  c.StaticAssets,
		Timeout:       c.RequestTimeout,
	}, st.Cache(), logger)
	if err != nil {
		return nil, fmt.Errorf("proxy init error: %w", err)
	}

	app := &App{config: c, logger: logger, store: st, proxy: px, ready: make(chan struct{})}

	app.monitor = connectivity.New(rc, app.triggerSync, connectivity.Config{
		Interval:     c.OnlineCheckInterval,
		SettleDelay:  c.SettleDelay,
		ProbeTimeout: c.RequestTimeout,
	}, logger)

	app.worker = control.NewWorker(control.Deps{
		Syncer:  sy,
		Cache:   px,
		Counter: st,
		Online:  app.monitor.Online,
	}, logger)
	app.control = control.NewServer(c.ControlAddr, app.worker, logger)

	return app, nil
}

// triggerSync hands a replay to the worker so it is serialised with every
// other control request.
func (app *App) triggerSync(ctx context.Context) {
	resp, err := app.worker.Call(ctx, control.TriggerSync)
	if err != nil {
		app.logger.Warn(ctx, "auto sync not delivered", "error", err)
		return
	}
	app.logger.Info(ctx, "auto sync finished", "resolved", resp.Resolved, "failed", resp.Failed)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) listen() error {
	var err error
	if app.proxyLis, err = net.Listen("tcp", app.config.ProxyAddr); err != nil {
		return fmt.Errorf("proxy listen: %w", err)
	}
	if app.controlLis, err = net.Listen("tcp", app.config.ControlAddr); err != nil {
		_ = app.proxyLis.Close()
		return fmt.Errorf("control listen: %w", err)
	}
	return nil
}

// Ready is closed once both listeners are bound.
func (app *App) Ready() <-chan struct{} {
	return app.ready
}

// ProxyAddr is the bound proxy address; valid after Ready.
func (app *App) ProxyAddr() string {
	return app.proxyLis.Addr().String()
}

// ControlAddr is the bound control address; valid after Ready.
func (app *App) ControlAddr() string {
	return app.controlLis.Addr().String()
}

func (app *App) startProxy(ctx context.Context) error {
	srv := &http.Server{Handler: app.proxy, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping proxy...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	app.logger.Info(ctx, "Starting proxy", "address", app.proxyLis.Addr().String(), "upstream", app.config.UpstreamURL)
	if err := srv.Serve(app.proxyLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run starts every component and blocks until ctx is cancelled, a signal
// arrives or a component fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting agent...")
	app.initSignalHandler(cancelFunc)

	if _, err := app.store.DB(ctx); err != nil {
		return err
	}
	defer app.store.Close()

	installed := app.proxy.Install(ctx)
	if err := app.proxy.Activate(ctx); err != nil {
		app.logger.Warn(ctx, "cache activation failed", "error", err)
	}
	app.logger.Debug(ctx, "proxy installed", "assets", installed)

	if err := app.listen(); err != nil {
		return err
	}
	close(app.ready)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return app.control.Serve(gctx, app.controlLis)
	})
	g.Go(func() error {
		return app.startProxy(gctx)
	})
	g.Go(func() error {
		app.monitor.Run(gctx)
		app.monitor.Stop()
		return nil
	})

	err := g.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "agent stopped")
	return err
}
