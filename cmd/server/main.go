package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/linguaprep/exam-service/internal/cache"
	"github.com/linguaprep/exam-service/internal/config"
	"github.com/linguaprep/exam-service/internal/events"
	"github.com/linguaprep/exam-service/internal/handlers"
	"github.com/linguaprep/exam-service/internal/repositories/postgres"
	"github.com/linguaprep/exam-service/internal/services"
	"github.com/linguaprep/exam-service/internal/session"
	"github.com/linguaprep/exam-service/internal/utils"
	"github.com/linguaprep/exam-service/internal/validator"
	"github.com/linguaprep/exam-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogLogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	repo := postgres.NewRepository(db)
	defer repo.Close()

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	sessionCache := cache.NewRedisSessionCache(redisClient, slogLogger)

	var publisher events.EventPublisher
	publisher, err = events.NewKafkaEventPublisher(events.PublisherConfig{
		KafkaBrokers: cfg.KafkaBrokers,
		TopicName:    cfg.KafkaTopic,
		Logger:       slogLogger,
	})
	if err != nil {
		// Attempts stay functional without the broker; events are dropped
		// into the mock until Kafka comes back and the service restarts.
		logger.Warn("Kafka unavailable, using mock event publisher", "error", err)
		publisher = events.NewMockEventPublisher(slogLogger)
	}
	defer publisher.Close()

	v := validator.New()
	authoringService := services.NewAuthoringService(repo, slogLogger, v)
	taskService := services.NewTaskService(repo, slogLogger, v)
	exportService := services.NewExportService(repo, slogLogger)
	attemptService := services.NewAttemptService(repo, sessionCache, publisher, slogLogger, session.NewRealClock())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(
		authoringService,
		taskService,
		exportService,
		attemptService,
		repo,
		logger,
	)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting exam service", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down exam service")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}
