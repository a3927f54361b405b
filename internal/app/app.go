// Package app wires the billing server together.
package app

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xenking/pos-billing/internal/domain/analytics"
	"github.com/xenking/pos-billing/internal/domain/order"
	"github.com/xenking/pos-billing/internal/domain/product"
	"github.com/xenking/pos-billing/internal/handler"
	"github.com/xenking/pos-billing/internal/storage/postgres"
	"github.com/xenking/pos-billing/pkg/health"
	"github.com/xenking/pos-billing/pkg/httpmiddleware"
)

const serviceName = "pos-billing"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	analyticsRepo := postgres.NewAnalyticsRepository(pool)

	if cfg.SeedCatalog {
		seeded, err := product.SeedIfEmpty(ctx, productRepo)
		if err != nil {
			return errors.Wrap(err, "seed catalog")
		}
		if seeded {
			lg.Info("Seeded empty catalog", zap.Int("products", len(product.SampleCatalog())))
		}
	}

	uploads := filepath.Join(cfg.StaticDir, handler.UploadsDir)
	if err := os.MkdirAll(uploads, 0o755); err != nil {
		return errors.Wrap(err, "create uploads dir")
	}

	healthSvc := health.New()
	healthSvc.Ready(health.Check{Name: "postgres", Timeout: 5 * time.Second, Func: health.Ping(pool)})
	healthSvc.Ready(health.Check{Name: "uploads", Func: health.Writable(uploads)})
	healthSvc.Live(health.Check{Name: "goroutines", Func: health.Goroutines(10000)})
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	orderService := order.NewService(productRepo, orderRepo,
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
	)
	analyticsService := analytics.NewService(analyticsRepo, productRepo)

	h := handler.New(handler.Config{
		StaticDir:     cfg.StaticDir,
		MaxUploadSize: cfg.MaxUploadSize,
	}, productRepo, orderRepo, orderService, analyticsService)

	router := mux.NewRouter()
	router.HandleFunc("/livez", healthSvc.LiveHandler).Methods(http.MethodGet)
	router.HandleFunc("/readyz", healthSvc.ReadyHandler).Methods(http.MethodGet)
	h.Register(router)
	router.Use(
		httpmiddleware.Route(httpmiddleware.Instrument(serviceName, m.TracerProvider(), m.MeterProvider())),
		httpmiddleware.Route(httpmiddleware.LogRequests()),
		httpmiddleware.Route(httpmiddleware.Throttle(ctx, httpmiddleware.ThrottleConfig{
			Limit:  cfg.WriteLimit.Max,
			Window: cfg.WriteLimit.Window,
		})),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:  cfg.CORS.Origins,
				AllowHeaders:  []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders: append([]string{httpmiddleware.RequestIDHeader}, httpmiddleware.ThrottleHeaders...),
				MaxAge:        86400,
			}),
		),
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
