package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	accounthandler "bloodlink/internal/account/handler"
	accountservice "bloodlink/internal/account/service"
	accountstore "bloodlink/internal/account/store"
	adminhandler "bloodlink/internal/admin/handler"
	"bloodlink/internal/alert"
	appointmenthandler "bloodlink/internal/appointment/handler"
	appointmentservice "bloodlink/internal/appointment/service"
	appointmentstore "bloodlink/internal/appointment/store"
	campaignhandler "bloodlink/internal/campaign/handler"
	campaignservice "bloodlink/internal/campaign/service"
	campaignstore "bloodlink/internal/campaign/store"
	"bloodlink/internal/forecast"
	inventoryhandler "bloodlink/internal/inventory/handler"
	inventoryservice "bloodlink/internal/inventory/service"
	inventorystore "bloodlink/internal/inventory/store"
	notifhandler "bloodlink/internal/notification/handler"
	notifservice "bloodlink/internal/notification/service"
	notifstore "bloodlink/internal/notification/store"
	"bloodlink/internal/platform/config"
	"bloodlink/internal/platform/httpserver"
	"bloodlink/internal/platform/logger"
	"bloodlink/internal/platform/metrics"
	platformpg "bloodlink/internal/platform/postgres"
	"bloodlink/internal/platform/redis"
	requesthandler "bloodlink/internal/request/handler"
	requestservice "bloodlink/internal/request/service"
	requeststore "bloodlink/internal/request/store"
	httptransport "bloodlink/internal/transport/http"
	"bloodlink/pkg/clock"
)

// alertSweepInterval paces the background shortage and expiry sweeps.
const alertSweepInterval = time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()
	clk := clock.Real()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httptransport.HealthChecker{}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if err := platformpg.EnsureSchema(ctx, db); err != nil {
			return err
		}
		checks["postgres"] = pingChecker{db}
		log.Info("using postgres stores")
	} else {
		log.Info("DATABASE_URL not set, using in-memory stores")
	}

	cache, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var forecastCache forecast.Cache = forecast.NewMemoryCache()
	if cache != nil {
		defer cache.Close()
		checks["redis"] = cache
		forecastCache = forecast.NewRedisCache(cache)
		log.Info("redis cache enabled")
	}

	var (
		accountStore accountstore.Store
		inventorySt  inventorystore.Store
		notifSt      notifstore.Store
		requestSt    requeststore.Store
		campaignSt   campaignstore.Store
		apptSt       appointmentstore.Store
	)
	if db != nil {
		accountStore = accountstore.NewPostgres(db)
		inventorySt = inventorystore.NewPostgres(db)
		notifSt = notifstore.NewPostgres(db)
		requestSt = requeststore.NewPostgres(db)
		campaignSt = campaignstore.NewPostgres(db)
		apptSt = appointmentstore.NewPostgres(db)
	} else {
		accountStore = accountstore.NewInMemory()
		inventorySt = inventorystore.NewInMemory()
		notifSt = notifstore.NewInMemory()
		requestSt = requeststore.NewInMemory()
		campaignSt = campaignstore.NewInMemory()
		apptSt = appointmentstore.NewInMemory()
	}

	tokens, err := accountservice.NewTokenIssuer(cfg.JWTSigningKey, cfg.TokenTTL, clk)
	if err != nil {
		return err
	}
	accounts, err := accountservice.New(accountStore, tokens, clk,
		accountservice.WithLogger(log), accountservice.WithMetrics(m))
	if err != nil {
		return err
	}
	ledger, err := inventoryservice.New(inventorySt, clk,
		inventoryservice.WithLogger(log), inventoryservice.WithMetrics(m))
	if err != nil {
		return err
	}
	notifications, err := notifservice.New(notifSt, clk,
		notifservice.WithLogger(log), notifservice.WithMetrics(m))
	if err != nil {
		return err
	}
	campaigns, err := campaignservice.New(campaignSt, clk, campaignservice.WithLogger(log))
	if err != nil {
		return err
	}
	requests, err := requestservice.New(requestSt, accounts, ledger, notifications, campaigns, clk,
		requestservice.WithLogger(log), requestservice.WithMetrics(m))
	if err != nil {
		return err
	}
	appointments, err := appointmentservice.New(apptSt, accounts, campaignSt, clk,
		appointmentservice.WithLogger(log))
	if err != nil {
		return err
	}
	forecasts, err := forecast.NewService(
		forecast.New(forecast.WithLogger(log)),
		forecastCache, cfg.ForecastCacheTTL, clk,
		forecast.WithServiceLogger(log))
	if err != nil {
		return err
	}
	engine, err := alert.New(ledger, forecasts, accounts, notifications,
		alert.WithLogger(log), alert.WithMetrics(m))
	if err != nil {
		return err
	}

	if err := accounts.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	router := httptransport.New(httptransport.Config{
		Logger:  log,
		Metrics: m,
		Handlers: []httptransport.Registrar{
			accounthandler.New(accounts, tokens, log),
			adminhandler.New(accounts, ledger, forecasts, engine, tokens, log),
			inventoryhandler.New(ledger, tokens, log),
			requesthandler.New(requests, tokens, log),
			notifhandler.New(notifications, tokens, log),
			campaignhandler.New(campaigns, tokens, log),
			appointmenthandler.New(appointments, tokens, log),
		},
		Checks: checks,
	})

	go sweepLoop(ctx, engine, log)

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sweepLoop periodically projects shortages and flags expiring stock. Admin
// endpoints can trigger the same sweeps on demand.
func sweepLoop(ctx context.Context, engine *alert.Engine, log *slog.Logger) {
	ticker := time.NewTicker(alertSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if report, err := engine.Run(ctx); err != nil {
				log.WarnContext(ctx, "shortage sweep failed", "error", err)
			} else if report.Created > 0 {
				log.InfoContext(ctx, "shortage sweep", "alerts_created", report.Created)
			}
			if created, err := engine.ExpirySweep(ctx); err != nil {
				log.WarnContext(ctx, "expiry sweep failed", "error", err)
			} else if created > 0 {
				log.InfoContext(ctx, "expiry sweep", "warnings_created", created)
			}
		}
	}
}

// pingChecker adapts *sql.DB to the router's health probe.
type pingChecker struct {
	db *sql.DB
}

func (p pingChecker) Health(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
