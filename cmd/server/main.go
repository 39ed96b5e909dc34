package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/tripmate/internal/auth"
	"github.com/mmynk/tripmate/internal/config"
	"github.com/mmynk/tripmate/internal/metrics"
	"github.com/mmynk/tripmate/internal/middleware"
	"github.com/mmynk/tripmate/internal/rpc"
	"github.com/mmynk/tripmate/internal/service"
	"github.com/mmynk/tripmate/internal/storage/sqlstore"
	"github.com/mmynk/tripmate/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: ./config.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.Database.Driver)

	verifier, err := newVerifier(cfg.Auth)
	if err != nil {
		return err
	}

	rpcMetrics := metrics.NewRPC()
	authenticated := connect.WithInterceptors(
		rpcMetrics.Interceptor(),
		middleware.RequireLineUser(verifier, store),
		middleware.LoggingInterceptor(),
	)
	public := connect.WithInterceptors(
		rpcMetrics.Interceptor(),
		middleware.LoggingInterceptor(),
	)

	bills := service.NewBillService(store)
	trips := service.NewTripService(store)

	mux := http.NewServeMux()
	rpc.Mount(mux, bills.Routes(authenticated)...)
	rpc.Mount(mux, trips.AuthenticatedRoutes(authenticated)...)
	rpc.Mount(mux, trips.PublicRoutes(public)...)
	mux.Handle(service.ExportPattern, middleware.RequireLineUserHTTP(verifier, store, http.HandlerFunc(bills.ExportXLSX)))
	mux.Handle("GET /metrics", rpcMetrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	handler := middleware.Logging(middleware.CORS(mux))

	// h2c serves HTTP/2 without TLS, which Connect clients may use.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", server.Addr, "auth_mode", cfg.Auth.Mode)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newVerifier(cfg config.AuthConfig) (auth.TokenVerifier, error) {
	switch cfg.Mode {
	case config.AuthModeJWT:
		slog.Info("Verifying tokens locally", "mode", cfg.Mode)
		return auth.NewJWTVerifier(cfg.JWTSecret, 24*time.Hour), nil
	case config.AuthModeRemote:
		slog.Info("Verifying tokens remotely", "service_url", cfg.ServiceURL, "timeout", cfg.Timeout)
		return auth.NewRemoteVerifier(cfg.ServiceURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}
