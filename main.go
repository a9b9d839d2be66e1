package main

// GET  /cart, POST /cart/{add,remove,quantity,clear} - session cart
// POST /checkout/order, /checkout/verify            - payment overlay checkout
// POST /auth/{login,signup,google,logout}            - account
// GET  /profile, PUT /profile, GET /profile/orders   - profile and order history
// GET  /products, /products/{id}, POST .../reviews   - catalog
// ANY  /api/{path}                                   - backend proxy
// GET  /metrics, /healthz

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/client"
	"storefront/config"
	"storefront/handler"
	"storefront/logging"
	"storefront/payment"
	"storefront/service"
	"storefront/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stdout})

	// --- Session storage ---
	kv, err := openKV(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("session storage unavailable")
	}
	defer kv.Close()

	sessions := store.NewSessions(kv, nil)
	sessions.Events().Subscribe(func(ev store.SessionEvent) {
		logging.Info().Str("session", ev.SessionID).Str("event", string(ev.Kind)).Msg("session changed")
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Carts ---
	carts := store.NewCartRegistry()
	go carts.Run(ctx, cfg.Cart.SweepInterval, cfg.Cart.IdleTimeout)

	// --- Service ---
	svc := service.NewService(
		client.New(cfg.Backend.BaseURL, cfg.Backend.Timeout),
		carts,
		sessions,
		payment.NewBrowserOverlay(),
		cfg.Payment,
	)
	var serviceInterface service.ServiceInterface = svc

	// --- Router ---
	r := handler.NewRouter(
		handler.NewHandler(serviceInterface),
		handler.NewProxy(cfg.Backend.BaseURL, cfg.Backend.Timeout),
		cfg.RateLimit.RequestsPerMinute,
	)

	// --- Server ---
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Chain(r, handler.Stack(cfg.CORS.AllowedOrigins)...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Str("backend", cfg.Backend.BaseURL).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openKV picks Postgres when a DSN is configured and runs its migrations;
// otherwise sessions live in memory.
func openKV(db config.DatabaseConfig) (store.KV, error) {
	if db.DSN == "" {
		logging.Info().Msg("no database configured, sessions kept in memory")
		return store.NewMemoryKV(), nil
	}
	kv, err := store.NewPostgresKV(db.DSN)
	if err != nil {
		return nil, err
	}
	if err := kv.Migrate(); err != nil {
		kv.Close()
		return nil, err
	}
	logging.Info().Msg("database migrations executed successfully")
	return kv, nil
}
