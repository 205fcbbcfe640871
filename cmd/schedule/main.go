package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/app"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/config"
	servicemigrations "github.com/quantrinhansu123/trungtam8pluspro-sub001/migrations"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags|log.LUTC)

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	debugEnabled := strings.EqualFold(strings.TrimSpace(cfg.LogLevel), "debug")
	debugf := func(format string, args ...any) {
		if debugEnabled {
			logger.Printf("[DEBUG] "+format, args...)
		}
	}

	debugf("config loaded: http_addr=%s reconcile_cron=%q horizon_days=%d db_max_open=%d db_max_idle=%d db_conn_max_lifetime=%s",
		cfg.HTTPAddr,
		cfg.ReconcileCron,
		cfg.ReconcileHorizonDays,
		cfg.DBMaxOpenConns,
		cfg.DBMaxIdleConns,
		cfg.DBConnMaxLifetime,
	)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := db.Ping(); err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	debugf("database connection successful")

	if err := servicemigrations.Up(db); err != nil {
		logger.Fatalf("failed to run migrations: %v", err)
	}
	debugf("migrations completed successfully")

	application := app.New(db, logger)
	defer application.Close()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.ReconcileCron, func() {
		report, err := application.Reconcile(context.Background(), cfg.ReconcileHorizonDays)
		if err != nil {
			logger.Printf("reconcile error: %v", err)
			return
		}
		if report.Relocated > 0 || report.Retimed > 0 || report.Unmatched > 0 {
			logger.Printf("reconcile: relocated=%d retimed=%d unmatched=%d",
				report.Relocated, report.Retimed, report.Unmatched)
		}
	})
	if err != nil {
		logger.Fatalf("invalid reconcile cron %q: %v", cfg.ReconcileCron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           application.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Printf("http shutdown error: %v", err)
		}
	}()

	logger.Printf("schedule service listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("http server error: %v", err)
	}
}
