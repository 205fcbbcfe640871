package http

import (
	"net/http"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/http/handlers"
)

type Router struct {
	mux *http.ServeMux
}

func NewRouter(scheduleHandler *handlers.ScheduleHandler) *Router {
	mux := http.NewServeMux()
	scheduleHandler.Register(mux)

	return &Router{mux: mux}
}

func (r *Router) Handler() http.Handler {
	return r.mux
}
