// Package app wires the storefront API server.
package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/unseelie-shop/internal/domain/checkout"
	"github.com/xenking/unseelie-shop/internal/handler"
	"github.com/xenking/unseelie-shop/internal/payment/stripe"
	"github.com/xenking/unseelie-shop/internal/storage/file"
	"github.com/xenking/unseelie-shop/pkg/health"
	"github.com/xenking/unseelie-shop/pkg/httpmiddleware"
)

const serviceName = "unseelie-shop"

// Server is the wired API server.
type Server struct {
	cfg     *Config
	lg      *zap.Logger
	health  *health.Health
	catalog *file.CatalogWatcher
	limiter *httpmiddleware.RateLimiter
	handler http.Handler
}

// NewServer builds every dependency of the API server without starting it.
func NewServer(lg *zap.Logger, tp trace.TracerProvider, mp metric.MeterProvider, cfg *Config) (*Server, error) {
	catalog, err := file.NewCatalogWatcher(cfg.CatalogPath, lg.Named("catalog"))
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}

	provider, err := stripe.NewClient(stripe.Config{
		SecretKey:      cfg.Stripe.SecretKey,
		BaseURL:        cfg.Stripe.BaseURL,
		Timeout:        cfg.Stripe.Timeout,
		TracerProvider: tp,
		MeterProvider:  mp,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create stripe client")
	}
	checkoutService, err := checkout.NewService(provider, mp.Meter(serviceName+"/checkout"))
	if err != nil {
		return nil, errors.Wrap(err, "create checkout service")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("catalog", time.Second, health.LoadedCheck("catalog", func() bool {
		return catalog.Catalog() != nil
	}))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(checkoutService, catalog).Register(mux)
	if cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	limiter := httpmiddleware.NewRateLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
		Skip: func(r *http.Request) bool {
			return !strings.HasPrefix(r.URL.Path, "/api/")
		},
	})

	return &Server{
		cfg:     cfg,
		lg:      lg,
		health:  healthSvc,
		catalog: catalog,
		limiter: limiter,
		handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowHeaders:     []string{"Content-Type", httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			limiter.Middleware(),
			httpmiddleware.Instrument(serviceName, tp, mp),
			httpmiddleware.LogRequests(),
		),
	}, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve listens on cfg.Addr until ctx is cancelled, then drains: readiness
// goes false, the server waits ReadinessDelay and shuts down.
func (s *Server) Serve(ctx context.Context) error {
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      s.cfg.Stripe.Timeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
	}

	s.health.Start(ctx, 10*time.Second)
	defer s.health.Stop()
	s.health.SetReady(true)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.catalog.Run(ctx)
	})
	g.Go(func() error {
		return s.limiter.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		s.health.SetReady(false)
		s.lg.Info("Readiness set to false, draining", zap.Duration("delay", s.cfg.Graceful.ReadinessDelay))
		time.Sleep(s.cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Graceful.ShutdownTimeout)
		defer cancel()

		s.lg.Info("Shutting down server", zap.Duration("timeout", s.cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		s.lg.Info("Server listening", zap.String("addr", s.cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// Run creates all dependencies, serves and handles graceful shutdown. It is
// the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("catalog", cfg.CatalogPath),
		zap.String("stripe", cfg.Stripe.BaseURL),
	)
	srv, err := NewServer(lg, m.TracerProvider(), m.MeterProvider(), cfg)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}
