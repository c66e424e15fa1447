package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/aminofabian/ichama-sub002/internal/auth"
	"github.com/aminofabian/ichama-sub002/internal/config"
	"github.com/aminofabian/ichama-sub002/internal/engine"
	"github.com/aminofabian/ichama-sub002/internal/events"
	"github.com/aminofabian/ichama-sub002/internal/metrics"
	"github.com/aminofabian/ichama-sub002/internal/middleware"
	"github.com/aminofabian/ichama-sub002/internal/scheduler"
	"github.com/aminofabian/ichama-sub002/internal/service"
	"github.com/aminofabian/ichama-sub002/internal/storage/sqlite"
	"github.com/aminofabian/ichama-sub002/pkg/api/apiconnect"
	"github.com/aminofabian/ichama-sub002/pkg/logging"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Database.Path)

	policy, err := cfg.EnginePolicy()
	if err != nil {
		return err
	}
	m := metrics.New(prometheus.DefaultRegisterer)
	dispatcher := events.NewDispatcher(events.LogPublisher{}, cfg.Events.Timeout, m.ObserveEvent)
	defer dispatcher.Wait()

	eng, err := engine.New(store, policy, engine.WithEvents(dispatcher), engine.WithMetrics(m))
	if err != nil {
		return err
	}
	slog.Info("Engine ready",
		"quorum", policy.Quorum.String(),
		"penalty_rate", policy.PenaltyRate.String(),
		"penalty_points", policy.PenaltyPoints,
	)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(m),
	)

	mux := http.NewServeMux()

	// Register Connect services
	mux.Handle(apiconnect.NewChamaServiceHandler(service.NewChamaService(eng), interceptors))
	mux.Handle(apiconnect.NewCycleServiceHandler(service.NewCycleService(eng), interceptors))
	mux.Handle(apiconnect.NewLoanServiceHandler(service.NewLoanService(eng), interceptors))
	mux.Handle(apiconnect.NewWalletServiceHandler(service.NewWalletService(eng), interceptors))

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if cfg.Scheduler.Enabled {
		jobs, err := scheduler.New(eng, cfg.Scheduler)
		if err != nil {
			return err
		}
		jobs.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			jobs.Stop(stopCtx)
		}()
	}

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(loggingMiddleware(corsMiddleware(cfg.Server.AllowedOrigin, mux)), &http2.Server{})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", server.Addr, "url", "http://localhost"+server.Addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
