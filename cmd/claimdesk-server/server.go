package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/claimdesk/claimdesk/internal/config"
	"github.com/claimdesk/claimdesk/internal/domain/billing"
	"github.com/claimdesk/claimdesk/internal/domain/catalog"
	"github.com/claimdesk/claimdesk/internal/domain/claim"
	"github.com/claimdesk/claimdesk/internal/domain/report"
	"github.com/claimdesk/claimdesk/internal/platform/db"
	"github.com/claimdesk/claimdesk/internal/platform/metrics"
	"github.com/claimdesk/claimdesk/internal/platform/middleware"
)

const version = "0.1.0"

func newLogger(dev bool) zerolog.Logger {
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// newEcho builds the server with the global middleware chain and the
// operational endpoints. Domain routes go on the returned /api/v1 group.
func newEcho(cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics, health db.HealthSource, gatherer prometheus.Gatherer) (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(m.Middleware())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	if health != nil {
		e.GET("/health/db", db.HealthHandler(health))
	}
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))

	api := e.Group("/api/v1")
	api.Use(middleware.BodyLimit(cfg.BodyLimit))
	api.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	return e, api
}

type services struct {
	claims  *claim.Service
	catalog *catalog.Service
	reports *report.Service
	billing *billing.Service
}

// wire builds the domain services. The report engine only gets its billing
// hook when automation is enabled.
func wire(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger, m *metrics.Metrics) (*services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	claimTx := db.NewClaimTx(pool)

	claimSvc := claim.NewService(claim.NewClaimRepoPG(pool), logger.With().Str("component", "claim").Logger())
	claimSvc.SetMetrics(m)

	catalogSvc := catalog.NewService(catalog.NewProviderRepoPG(pool), catalog.NewBarrierOptionRepoPG(pool))

	reportSvc := report.NewService(report.NewReportRepoPG(pool), claimSvc, catalogSvc, claimTx,
		logger.With().Str("component", "report").Logger())
	reportSvc.SetClock(time.Now, loc)
	reportSvc.SetMetrics(m)

	billingSvc := billing.NewService(billing.NewBillableItemRepoPG(pool), billing.NewInvoiceRepoPG(pool),
		claimSvc, reportSvc, claimTx, logger.With().Str("component", "billing").Logger())
	billingSvc.SetClock(time.Now, loc)
	billingSvc.SetMetrics(m)
	billingSvc.SetHours(billing.HoursByType{
		Initial:  decimal.NewFromFloat(cfg.BillingInitialHours),
		Progress: decimal.NewFromFloat(cfg.BillingProgressHours),
		Closure:  decimal.NewFromFloat(cfg.BillingClosureHours),
	})
	billingSvc.SetDefaultRate(decimal.NewFromFloat(cfg.BillingDefaultRate))

	if cfg.BillingAutomationEnabled {
		reportSvc.SetBillingHook(billingSvc)
	} else {
		logger.Warn().Msg("billing automation disabled; reports will not create billable items")
	}

	return &services{claims: claimSvc, catalog: catalogSvc, reports: reportSvc, billing: billingSvc}, nil
}

func (s *services) register(api *echo.Group) {
	claim.NewHandler(s.claims).RegisterRoutes(api)
	catalog.NewHandler(s.catalog).RegisterRoutes(api)
	report.NewHandler(s.reports).RegisterRoutes(api)
	billing.NewHandler(s.billing).RegisterRoutes(api)
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV") == "development")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svcs, err := wire(cfg, pool, logger, m)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire services")
	}

	e, api := newEcho(cfg, logger, m, db.NewPoolHealth(pool), reg)
	svcs.register(api)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("timezone", cfg.Timezone).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
