package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/knittrack/internal/config"
	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/repository/mongodb"
	"github.com/mamadbah2/knittrack/internal/repository/sheets"
	"github.com/mamadbah2/knittrack/internal/scheduler"
	"github.com/mamadbah2/knittrack/internal/server/handlers"
	"github.com/mamadbah2/knittrack/internal/server/router"
	alertsvc "github.com/mamadbah2/knittrack/internal/service/alerts"
	editingsvc "github.com/mamadbah2/knittrack/internal/service/editing"
	exportsvc "github.com/mamadbah2/knittrack/internal/service/export"
	"github.com/mamadbah2/knittrack/internal/service/metrics"
	productionsvc "github.com/mamadbah2/knittrack/internal/service/production"
	productionclient "github.com/mamadbah2/knittrack/pkg/clients/production"
	whatsappclient "github.com/mamadbah2/knittrack/pkg/clients/whatsapp"
	"github.com/mamadbah2/knittrack/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	location := cfg.Backend.Location()
	models.BackendLocation = location

	backend := productionclient.NewClient(cfg.Backend)

	var audit mongodb.Repository = mongodb.NopRepository{}
	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		audit = mongoRepo
		baseLogger.Info("mongodb audit store enabled", zap.String("db", cfg.MongoDB.DBName))
	} else {
		baseLogger.Warn("MONGODB_URI missing, rate discrepancies and summary snapshots are not stored")
	}
	defer func() {
		if err := audit.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetsRepo = repo
	}

	var whatsClient whatsappclient.Client
	if cfg.WhatsApp.Enabled() {
		whatsClient = whatsappclient.NewClient(cfg.WhatsApp)
		baseLogger.Info("whatsapp alerts enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, alerts disabled")
	}
	alerts := alertsvc.NewService(whatsClient, cfg.Alerts.Recipient, cfg.Metrics.HighErrorThreshold, baseLogger.Named("svc.alerts"))

	denominator, err := metrics.ParseDenominatorSource(cfg.Metrics.DenominatorSource)
	if err != nil {
		baseLogger.Fatal("invalid rate denominator", zap.Error(err))
	}
	productionSvc := productionsvc.NewService(backend, audit, alerts, productionsvc.Options{
		Denominator: denominator,
		Concurrency: cfg.Backend.EditabilityConcurrency,
	}, baseLogger.Named("svc.production"))
	exportSvc := exportsvc.NewService(backend, sheetsRepo, baseLogger.Named("svc.export"))

	// The scheduler drives both the cron jobs and the per-second countdowns.
	jobs := scheduler.Jobs{Summary: productionSvc}
	if sheetsRepo != nil {
		jobs.Sheets = exportSvc
	}
	sched := scheduler.NewScheduler(cfg.Scheduler, jobs, location, baseLogger.Named("scheduler"))
	sessions := editingsvc.NewManager(backend, sched, editingsvc.Options{}, baseLogger.Named("svc.editing"))
	sched.SetSessionReaper(sessions)

	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}

	engine := router.New(router.Handlers{
		Production:   handlers.NewProductionHandler(productionSvc, baseLogger.Named("handlers.production")),
		Export:       handlers.NewExportHandler(exportSvc, baseLogger.Named("handlers.export")),
		EditSessions: handlers.NewEditSessionHandler(sessions, baseLogger.Named("handlers.editing")),
	}, baseLogger.Named("router"))

	// No write timeout: countdown streams stay open for up to the whole edit window.
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("backend", cfg.Backend.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Ending the sessions closes their update streams so countdown requests return.
	sessions.CloseAll()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
}
