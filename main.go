package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tasklane/tasklane-be/internal/api"
	"github.com/tasklane/tasklane-be/internal/auth"
	"github.com/tasklane/tasklane-be/internal/config"
	"github.com/tasklane/tasklane-be/internal/database"
	"github.com/tasklane/tasklane-be/internal/logger"
	"github.com/tasklane/tasklane-be/internal/monitoring"
	"github.com/tasklane/tasklane-be/internal/services"
	"github.com/tasklane/tasklane-be/internal/uploads"
	"github.com/tasklane/tasklane-be/internal/websocket"
)

func main() {
	// Load .env if present; real environments set variables directly
	godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.IsDevelopment())

	// Set up upload storage
	uploadStore, err := uploads.NewStore(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize upload storage")
	}

	// Set up database; serving without a store is pointless, so this is fatal
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	tokenService := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	userService := services.NewUserService(db)
	eventService := services.NewEventService(db, hub)
	taskService := services.NewTaskService(db, eventService)
	portfolioService := services.NewPortfolioService(db, uploadStore)

	// Set up and run the background scheduler
	scheduler := monitoring.NewScheduler(taskService, eventService, portfolioService, uploadStore)
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Set up router
	router := api.NewRouter(api.Deps{
		Config:       cfg,
		Tokens:       tokenService,
		UserSvc:      userService,
		TaskSvc:      taskService,
		PortfolioSvc: portfolioService,
		EventSvc:     eventService,
		Hub:          hub,
		Uploads:      uploadStore,
	})

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
