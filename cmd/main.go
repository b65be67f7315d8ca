package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"helpdesk/config"
	handlers "helpdesk/internal/handler"
	"helpdesk/internal/repository"
	services "helpdesk/internal/service"
	"helpdesk/setup"
	"helpdesk/utils"
	"helpdesk/utils/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Error parsing configs: %v", err)
	}

	ctx, shutdownManager := utils.NewShutdownManager(context.Background(), cfg.Server.ShutdownTimeout)
	shutdownManager.StartListening()

	// Ticket events go to Redis only when it is configured
	var publisher services.EventPublisher = services.NopPublisher{}
	if cfg.Events.RedisURL != "" {
		rdb, err := utils.NewRedisClient(ctx, cfg.Events.RedisURL)
		if err != nil {
			log.Fatalf("Error connecting to Redis: %v", err)
		}
		shutdownManager.Register("Closing Redis connection", func(context.Context) error {
			return rdb.Close()
		})
		publisher = utils.NewRedisPublisher(rdb, cfg.Events.Channel)
		log.Printf("[EVENTS] Publishing ticket events to channel %q", cfg.Events.Channel)
	}

	// Initialize components
	ticketRepo := repository.NewTicketRepository(cfg.Storage.DataFile)
	ticketService := services.NewTicketService(ticketRepo, publisher)
	ticketHandler := handlers.NewTicketHandler(ticketService, cfg.Server.MaxBodyBytes)
	metrics := middleware.NewMetrics()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           setup.NewRouter(cfg, ticketHandler, metrics),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	shutdownManager.Register("Shutting down HTTP server", server.Shutdown)

	go func() {
		log.Printf("Helpdesk service running on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownManager.Done()
}
