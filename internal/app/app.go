package app

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	transport "github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/http"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/http/handlers"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/repository"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/schedule"
	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/service"
)

type App struct {
	handler         http.Handler
	scheduleService *service.ScheduleService
}

func New(db *sql.DB, logger *log.Logger) *App {
	txManager := repository.NewPostgresTxManager(db)
	sessionRepo := repository.NewSessionPostgresRepository(db)
	synchronizer := service.NewSessionSynchronizer(sessionRepo)
	notifier := schedule.NewNotifier()
	scheduleService := service.NewScheduleService(txManager, synchronizer, notifier, logger)

	scheduleHandler := handlers.NewScheduleHandler(scheduleService)
	router := transport.NewRouter(scheduleHandler)

	return &App{handler: router.Handler(), scheduleService: scheduleService}
}

func (a *App) Handler() http.Handler {
	return a.handler
}

func (a *App) Reconcile(ctx context.Context, horizonDays int) (service.ReconcileReport, error) {
	return a.scheduleService.Reconcile(ctx, horizonDays)
}

func (a *App) Close() {
	a.scheduleService.Close()
}
