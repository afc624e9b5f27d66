package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gracechapel/outreach-backend/internal/db"
	"github.com/gracechapel/outreach-backend/internal/handlers"
	"github.com/gracechapel/outreach-backend/internal/observability"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Ledger   *db.LedgerService

	server       *http.Server
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	cfg := LoadConfig()

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	handlers.RegisterValidators()

	ledger, err := db.NewLedgerService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	if err := ledger.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("ledger automigrate: %w", err)
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(clients, ledger.DB(), log)
	serviceset := wireServices(log, cfg, clients, reposet)
	handlerset := wireHandlers(log, serviceset, ledger, clients)
	router := wireRouter(handlerset, cfg)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "outreach-backend",
		Environment: cfg.Env,
	})

	return &App{
		Log:      log,
		Cfg:      cfg,
		Clients:  clients,
		Repos:    reposet,
		Services: serviceset,
		Ledger:   ledger,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		otelShutdown: otelShutdown,
	}, nil
}

// Run starts the worker pool and the HTTP listener, then blocks until ctx is
// cancelled or the listener fails. Shutdown drains in-flight webhooks first
// and queued events second, so an accepted event is never silently dropped.
func (a *App) Run(ctx context.Context) error {
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	a.Services.Dispatcher.Start(workerCtx)

	a.Log.Info("http server starting", "addr", a.server.Addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
		a.Services.Dispatcher.Stop()
		return nil
	case err := <-errCh:
		a.Services.Dispatcher.Stop()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.otelShutdown(ctx)
	}
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}
