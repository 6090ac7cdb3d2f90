package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/auth"
	apihttp "github.com/Flarenzy/vpc-cidr-allocator/internal/http"
	"github.com/Flarenzy/vpc-cidr-allocator/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newAuthenticator(ctx context.Context, cfg Config) (auth.Authenticator, error) {
	return auth.NewKeycloakAuthenticator(ctx, auth.Config{
		Enabled:  cfg.AuthEnabled,
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
	})
}

func Run(ctx context.Context, cfg Config) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
	}
	return Serve(ctx, cfg, listener)
}

// Serve runs the API on listener until ctx is cancelled. The ledger and the
// authenticator are set up before the first request is accepted.
func Serve(ctx context.Context, cfg Config, listener net.Listener) error {
	logger := slog.Default()

	backend, err := OpenLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	authenticator, err := newAuthenticator(ctx, cfg)
	if err != nil {
		return err
	}
	if authenticator != nil {
		logger.Info("auth enabled", "issuer", cfg.AuthIssuer, "audience", cfg.AuthAudience)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svc := NewService(cfg, backend.Ledger, logger, metrics.New(reg))

	api := apihttp.NewAPI(logger, backend.Health, svc, authenticator).
		WithOperatorRole(cfg.AuthOperatorRole).
		WithMetrics(metrics.Handler(reg))

	server := &http.Server{
		Handler:      api.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving", "addr", listener.Addr().String(), "ledger", cfg.LedgerBackend, "guarded", cfg.Guarded)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
