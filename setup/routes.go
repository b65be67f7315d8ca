package setup

import (
	"net/http"
	"time"

	"helpdesk/config"
	handlers "helpdesk/internal/handler"
	"helpdesk/utils/middleware"

	"github.com/gorilla/mux"
)

const timeoutMessage = `{"error":"request timed out"}`

// NewRouter wires the ticket routes, health and metrics endpoints and the
// middleware chain shared by all of them.
func NewRouter(cfg *config.Config, ticketHandler *handlers.TicketHandler, metrics *middleware.Metrics) http.Handler {
	router := mux.NewRouter()
	router.Use(metrics.Middleware)

	ticketHandler.Register(router)
	router.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	var handler http.Handler = router
	handler = http.TimeoutHandler(handler, requestTimeout(cfg), timeoutMessage)
	handler = middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)(handler)
	handler = middleware.RecoveryMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)

	return handler
}

func requestTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.RequestTimeout > 0 {
		return cfg.Server.RequestTimeout
	}
	return 10 * time.Second
}
