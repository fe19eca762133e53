// Package app wires together all storefront components and runs the daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/velora/storefront/internal/config"
	"github.com/velora/storefront/internal/engine"
	"github.com/velora/storefront/internal/gateway"
	"github.com/velora/storefront/internal/guard"
	handler "github.com/velora/storefront/internal/handler/http"
	"github.com/velora/storefront/internal/session"
	"github.com/velora/storefront/pkg/health"
	"github.com/velora/storefront/pkg/httpclient"
)

// App wires together all dependencies and runs the storefront daemon.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	rdb        *redis.Client
	sessions   *session.Store
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Redis holds the shared session record; every storefront process
	// pointed at the same key mirrors the same login.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	// Session store over the shared record.
	records := session.NewRedisRecordStore(rdb, cfg.SessionKey)
	sessions := session.NewStore(records, logger)

	// Commerce API transport: no automatic retries, breaker in front.
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.APITimeout
	transport := httpclient.NewCircuitBreakerClient(
		httpclient.New(clientCfg),
		httpclient.DefaultCircuitBreakerConfig("commerce-api"),
		logger,
	)
	api := gateway.NewClient(cfg.APIBaseURL, transport, sessions, logger)

	// Engines share one guard so cart and wishlist operations dedupe
	// through the same key space.
	g := guard.New()
	cart := engine.NewCart(api, g, sessions, logger)
	wishlist := engine.NewWishlist(api, g, sessions, logger)

	sessions.SetHooks(session.Hooks{
		Load:  loadAll(cart, wishlist),
		Clear: clearAll(cart, wishlist),
	})

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	// HTTP router.
	router := handler.NewRouter(
		handler.NewSessionHandler(sessions, api, logger),
		handler.NewCartHandler(cart, sessions, logger),
		handler.NewWishlistHandler(wishlist, sessions, logger),
		handler.NewBadgeHandler(cart, wishlist, sessions),
		healthHandler,
		logger,
		handler.RouterConfig{
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		},
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		rdb:        rdb,
		sessions:   sessions,
		httpServer: httpServer,
	}, nil
}

// loadAll fetches both collections in parallel and reports the combined
// outcome once both have settled.
func loadAll(cart *engine.Cart, wishlist *engine.Wishlist) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var wg sync.WaitGroup
		var cartErr, wishlistErr error

		wg.Add(2)
		go func() {
			defer wg.Done()
			cartErr = cart.FetchAll(ctx)
		}()
		go func() {
			defer wg.Done()
			wishlistErr = wishlist.FetchAll(ctx)
		}()
		wg.Wait()

		return errors.Join(cartErr, wishlistErr)
	}
}

func clearAll(cart *engine.Cart, wishlist *engine.Wishlist) func() {
	return func() {
		cart.Clear()
		wishlist.Clear()
	}
}

// Run restores any persisted session, starts the record watcher and the HTTP
// server, and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	if err := a.sessions.Restore(ctx); err != nil {
		// A dead Redis at boot already failed NewApp; a restore failure
		// here means the record could not be read, which degrades to a
		// logged-out start rather than a crash.
		a.logger.Warn("session restore failed", slog.String("error", err.Error()))
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		if err := a.sessions.Watch(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("session watcher stopped", slog.String("error", err.Error()))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
