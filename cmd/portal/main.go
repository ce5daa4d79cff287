package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/telemed-portal/internal/api/router"
	"github.com/wolfman30/telemed-portal/internal/app/bootstrap"
	"github.com/wolfman30/telemed-portal/internal/backend"
	appconfig "github.com/wolfman30/telemed-portal/internal/config"
	"github.com/wolfman30/telemed-portal/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/telemed-portal/internal/http/middleware"
	"github.com/wolfman30/telemed-portal/internal/notify"
	"github.com/wolfman30/telemed-portal/internal/observability/metrics"
	"github.com/wolfman30/telemed-portal/internal/portal"
	"github.com/wolfman30/telemed-portal/internal/session"
	"github.com/wolfman30/telemed-portal/internal/theme"
	"github.com/wolfman30/telemed-portal/pkg/logging"
)

func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telemed portal",
		"env", cfg.Env,
		"port", cfg.Port,
		"backend", cfg.BackendBaseURL,
	)

	ctx := context.Background()
	loc := cfg.Location()
	metricsHandler, backendMetrics, portalMetrics := setupMetrics()

	client := backend.New(cfg.BackendBaseURL,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithRetryPause(cfg.BackendRetryPause),
		backend.WithLogger(logger),
		backend.WithObserver(backendMetrics),
	)

	// Session and preference storage
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	pool := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	manager := session.NewManager(
		bootstrap.BuildTokenStore(redisClient, cfg),
		session.BackendAuth{Client: client},
		portalMetrics,
		logger,
	)

	pages := portal.NewPages(portal.Deps{
		Options:         portal.Options{Location: loc, Logger: logger},
		Prefs:           bootstrap.BuildPrefsStore(pool),
		History:         bootstrap.BuildHistoryStore(redisClient, cfg),
		SymptomObserver: portalMetrics,
		SearchDebounce:  cfg.SearchDebounce,
		SearchMinLength: cfg.SearchMinQueryLength,
	})

	// Idle sessions give up their cached user and page state.
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	manager.OnExpire(pages.Forget)
	if cfg.SessionIdleTimeout > 0 {
		go manager.RunSweeper(sweepCtx, cfg.SessionIdleTimeout, time.Minute)
	}

	hub := notify.NewHub(notify.Config{
		Source:    unreadSource(manager, client),
		SessionID: httpmiddleware.SessionIDFromRequest,
		Interval:  cfg.NotificationPollInterval,
		Observer:  portalMetrics,
		Logger:    logger,
	})

	h := handlers.New(handlers.Config{
		Pages:    pages,
		API:      func(token string) handlers.BackendAPI { return client.WithToken(token) },
		Sessions: manager,
		Themes:   theme.NewCookie(cfg.CookieSecure || cfg.IsProduction()),
		Notifier: hub,
		Audit:    bootstrap.BuildAuditService(pool, logger),
		Location: loc,
		Logger:   logger,
	})

	// Setup router
	r := router.New(&router.Config{
		Logger:   logger,
		Handler:  h,
		Sessions: manager,
		Session: httpmiddleware.SessionConfig{
			CookieName: cfg.SessionCookie,
			TTL:        cfg.SessionTTL,
			Secure:     cfg.CookieSecure || cfg.IsProduction(),
		},
		Notifications:      http.HandlerFunc(hub.HandleWebSocket),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:          cfg.RateLimitPerSecond,
		RateBurst:          cfg.RateLimitBurst,
	})

	// Create HTTP server. Read/write deadlines would also apply to hijacked
	// websocket connections; /api requests are bounded by the router timeout.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopSweeper()
	hub.Close()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if pool != nil {
		pool.Close()
	}

	logger.Info("server stopped")
}

// setupMetrics registers the portal collectors on a private registry.
func setupMetrics() (http.Handler, *metrics.BackendMetrics, *metrics.PortalMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return handler, metrics.NewBackendMetrics(registry), metrics.NewPortalMetrics(registry)
}

// sessionLookup resolves the token of a browser session.
type sessionLookup interface {
	Current(ctx context.Context, sessionID string) (session.Session, error)
}

// unreadSource reads the badge count with the token of the polling session.
// A session that signed out in the meantime reports ErrUnauthorized, which
// stops its poller.
func unreadSource(sessions sessionLookup, client *backend.Client) notify.Source {
	return notify.SourceFunc(func(ctx context.Context, sessionID string) (int, error) {
		sess, err := sessions.Current(ctx, sessionID)
		if err != nil {
			return 0, err
		}
		if !sess.Authenticated() {
			return 0, backend.ErrUnauthorized
		}
		return client.WithToken(sess.Token).UnreadCount(ctx)
	})
}
