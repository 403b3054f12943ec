// Package main boots the storefront page host.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairyhunter13/storefront-state/internal/api"
	"github.com/fairyhunter13/storefront-state/internal/config"
	httpapi "github.com/fairyhunter13/storefront-state/internal/http"
	"github.com/fairyhunter13/storefront-state/internal/obs"
	"github.com/fairyhunter13/storefront-state/internal/queue"
	"github.com/fairyhunter13/storefront-state/internal/session"
	"github.com/fairyhunter13/storefront-state/internal/store"
)

func main() {
	cfg := config.Load()
	obs.InitLogger(cfg.LogLevel)
	obs.Logger.Info("service_starting", "catalog_base_url", cfg.CatalogBaseURL)

	client, err := api.NewClient(cfg.CatalogBaseURL, api.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}))
	if err != nil {
		obs.Logger.Error("api_client_error", "error", err)
		os.Exit(1)
	}
	catalog := api.NewCatalogClient(client)

	q := queue.New(128)
	mgr := queue.NewManager(cfg, q)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)

	reg := session.NewRegistry(func(id string) *store.Store {
		return store.New(catalog, api.NewCartClient(client),
			store.WithRunner(mgr),
			store.WithFetchTimeout(cfg.RequestTimeout),
			store.WithSessionID(id),
		)
	}, cfg.SessionTTL)
	go reg.Run(ctx, cfg.SessionSweepInterval)

	app := httpapi.NewApp(cfg, reg, mgr)
	mux := httpapi.NewRouter(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", "signal", s.String())

	app.StartShutdown()
	obs.Logger.Info("shutdown_drain_begin",
		"backlog_size", mgr.BacklogSize(),
		"worker_count", mgr.WorkerCount(),
		"sessions_active", reg.Len(),
	)

	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelDrain()
	if drained := mgr.DrainUntil(ctxDrain); !drained {
		obs.Logger.Warn("shutdown_drain_timeout")
	} else {
		obs.Logger.Info("shutdown_drain_complete")
	}

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	mgr.Stop()
	obs.Logger.Info("service_stopped")
}
