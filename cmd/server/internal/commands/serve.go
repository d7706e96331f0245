package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/wolfeidau/townhall/internal/telemetry"
	"github.com/wolfeidau/townhall/internal/web"
	"go.opentelemetry.io/otel"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"TOWNHALL_LISTEN"`
	Cert   string `help:"path to TLS cert file, plain HTTP when unset" default:"" env:"TOWNHALL_TLS_CERT"`
	Key    string `help:"path to TLS key file, plain HTTP when unset" default:"" env:"TOWNHALL_TLS_KEY"`

	// Cross origin configuration
	CORSOrigins    []string `help:"allowed CORS origins for /api/ requests" default:"https://localhost" env:"TOWNHALL_CORS_ORIGINS"`
	TrustedOrigins []string `help:"extra origins allowed to post the signup form" env:"TOWNHALL_TRUSTED_ORIGINS"`
	TrustProxy     bool     `help:"trust X-Forwarded-For and X-Real-IP for client addresses" default:"false" env:"TOWNHALL_TRUST_PROXY"`

	// Telemetry
	Tracing     bool    `help:"enable OTLP tracing and metrics" default:"false" env:"TOWNHALL_TRACING"`
	SampleRatio float64 `help:"fraction of root spans sampled when tracing" default:"1" env:"TOWNHALL_TRACE_SAMPLE_RATIO"`

	Backend BackendFlags `embed:""`
}

func (c *ServeCmd) Validate() error {
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("TLS certificate and key must be set together (--cert and --key)")
	}
	return nil
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if err := c.Validate(); err != nil {
		return err
	}

	if c.Tracing {
		log.Info().Float64("sample_ratio", c.SampleRatio).Msg("Tracing is enabled")
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: "townhall-server",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	metrics, err := telemetry.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	provisioner, closeStores, err := c.Backend.provisioner(ctx, metrics, otel.GetTracerProvider())
	if err != nil {
		return err
	}
	defer closeStores()

	handler, err := web.NewRouter(web.NewHandler(provisioner, provisioner.Policy()), web.RouterConfig{
		Logger:         log,
		CORSOrigins:    c.CORSOrigins,
		TrustedOrigins: c.TrustedOrigins,
		TrustProxy:     c.TrustProxy,
	})
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	if c.Cert != "" {
		if _, err := os.Stat(c.Cert); err != nil {
			return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
		}
		if _, err := os.Stat(c.Key); err != nil {
			return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
		}
	}

	srv := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		if c.Cert != "" {
			log.Info().Str("addr", c.Listen).Msg("Starting HTTPS server")
			errCh <- srv.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
