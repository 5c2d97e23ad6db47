package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"

	"inbox-pilot/internal/ai"
	"inbox-pilot/internal/config"
	"inbox-pilot/internal/gcal"
	"inbox-pilot/internal/gdrive"
	"inbox-pilot/internal/gmail"
	"inbox-pilot/internal/handler"
	"inbox-pilot/internal/logger"
	"inbox-pilot/internal/repository"
	"inbox-pilot/internal/repository/memory"
	"inbox-pilot/internal/repository/postgres"
	"inbox-pilot/internal/router"
	"inbox-pilot/internal/scheduler"
	"inbox-pilot/internal/service"
	"inbox-pilot/internal/sse"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Config validation failed:", err)
	}

	appLogger := logger.New(cfg.LogLevel, cfg.IsDevelopment())

	// Repositories: postgres when DATABASE_URL is set, in-memory otherwise
	var (
		userRepo     repository.UserRepository
		configRepo   repository.ConfigRepository
		queueRepo    repository.QueueRepository
		activityRepo repository.ActivityRepository
		contactRepo  repository.ContactRepository
		profileRepo  repository.ProfileRepository
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		defer db.Close()

		if err := postgres.InitializeDatabase(db); err != nil {
			log.Fatal("Failed to initialize database:", err)
		}

		userRepo = postgres.NewPostgresUserRepository(db)
		configRepo = postgres.NewPostgresConfigRepository(db)
		queueRepo = postgres.NewPostgresQueueRepository(db)
		activityRepo = postgres.NewPostgresActivityRepository(db)
		contactRepo = postgres.NewPostgresContactRepository(db)
		profileRepo = postgres.NewPostgresProfileRepository(db)

		appLogger.Info().Msg("using postgres repositories")
	} else {
		userRepo = memory.NewInMemoryUserRepository()
		configRepo = memory.NewInMemoryConfigRepository()
		queueRepo = memory.NewInMemoryQueueRepository()
		activityRepo = memory.NewInMemoryActivityRepository()
		contactRepo = memory.NewInMemoryContactRepository()
		profileRepo = memory.NewInMemoryProfileRepository()

		appLogger.Info().Msg("using in-memory repositories")
	}

	// Live activity stream: events append to storage and fan out to
	// connected clients.
	stream := sse.NewManager(appLogger)
	activityRepo = sse.NewBroadcastingActivityRepository(activityRepo, stream)

	// External clients
	aiClient := ai.NewClient(ai.ClientConfig{
		APIKey: cfg.OpenAIKey,
		Model:  cfg.OpenAIModel,
	}, appLogger)
	gmailClient := gmail.NewGmailClient(cfg.GoogleClientID, cfg.GoogleClientSecret, appLogger)
	calClient := gcal.NewCalendarClient(cfg.GoogleClientID, cfg.GoogleClientSecret, appLogger)
	driveClient := gdrive.NewDriveClient(cfg.GoogleClientID, cfg.GoogleClientSecret, appLogger)

	// Services
	authService := service.NewAuthService(userRepo, configRepo, appLogger)
	configService := service.NewConfigService(configRepo, appLogger)
	queueService := service.NewQueueService(userRepo, queueRepo, activityRepo, gmailClient, appLogger)
	activityService := service.NewActivityService(activityRepo)
	contactService := service.NewContactService(contactRepo)
	setupService := service.NewSetupService(userRepo, contactRepo, profileRepo, activityRepo, gmailClient, aiClient, appLogger)
	processor := service.NewProcessor(
		userRepo, configRepo, queueRepo, activityRepo, contactRepo, profileRepo,
		gmailClient, calClient, driveClient, aiClient,
		cfg.MaxFetchEmails, appLogger,
	)

	sched := scheduler.New(processor, configRepo, appLogger)

	// Resume polling for users who were active before the restart
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if activeUsers, err := userRepo.FindActive(startupCtx); err != nil {
		appLogger.Error().Err(err).Msg("failed to load active users")
	} else {
		for _, user := range activeUsers {
			if err := sched.AddUser(startupCtx, user.ID); err != nil {
				appLogger.Error().Err(err).Str("user_id", user.ID).Msg("failed to resume polling job")
			}
		}
		appLogger.Info().Int("count", len(activeUsers)).Msg("resumed polling jobs")
	}
	cancelStartup()

	// HTTP layer
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	authHandler := handler.NewAuthHandler(authService, setupService, sched, cfg, appLogger)
	queueHandler := handler.NewQueueHandler(queueService, authHandler, appLogger)
	configHandler := handler.NewConfigHandler(configService, sched, authHandler, appLogger)
	schedulerHandler := handler.NewSchedulerHandler(sched, authHandler, appLogger)
	activityHandler := handler.NewActivityHandler(activityService, stream, authHandler, appLogger)
	contactHandler := handler.NewContactHandler(contactService, authHandler, appLogger)

	router.SetupRoutes(e, authHandler, queueHandler, configHandler, schedulerHandler, activityHandler, contactHandler)

	go func() {
		appLogger.Info().Str("port", cfg.Port).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown: stop accepting requests, then let in-flight
	// polling runs finish before exiting.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stream.Close() // ends open event streams so Shutdown can drain
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("server shutdown failed")
	}
	sched.Shutdown()
}
