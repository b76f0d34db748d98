package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/codearena/arena-go-api/internal/config"
	"github.com/codearena/arena-go-api/internal/database"
	"github.com/codearena/arena-go-api/internal/handler"
	"github.com/codearena/arena-go-api/internal/middleware"
	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/repository"
	"github.com/codearena/arena-go-api/internal/router"
	"github.com/codearena/arena-go-api/internal/service"
	"github.com/codearena/arena-go-api/pkg/ai"
	"github.com/codearena/arena-go-api/pkg/runner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{}, &models.Course{}, &models.Activity{},
		&models.Question{}, &models.Response{}, &models.ResponseItem{},
		&models.Battle{}, &models.BattleInvitation{}, &models.BattleResponse{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	codeRunner, err := runner.NewDockerRunner(runner.Config{
		Host:          cfg.DockerHost,
		Timeout:       cfg.ExecutionTimeout,
		MemoryLimitMB: int64(cfg.CodeRunMemoryMB),
		CPUShares:     int64(cfg.CodeRunCPUShares),
		WorkspaceRoot: cfg.RunnerWorkspace,
		Logger:        logger,
	})
	if err != nil {
		log.Fatalf("failed to create code runner: %v", err)
	}
	defer codeRunner.Close()

	reviewer := buildReviewer(cfg, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	questionRepo := repository.NewQuestionRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	battleRepo := repository.NewBattleRepository(db)

	questionService := service.NewQuestionService(questionRepo, responseRepo, courseRepo, validate, logger)
	responseService := service.NewResponseService(responseRepo, questionRepo, activityRepo, reviewer, validate, logger)
	battleService := service.NewBattleService(battleRepo, responseRepo, questionRepo, codeRunner, redisClient, natsConn, validate, logger, service.BattleConfig{
		StandingsTTL: cfg.StandingsTTL,
		NATSSubject:  cfg.NATSSubject,
	})

	questionHandler := handler.NewQuestionHandler(questionService, validate, logger)
	responseHandler := handler.NewResponseHandler(responseService, questionService, validate, logger)
	battleHandler := handler.NewBattleHandler(battleService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		QuestionHandler: questionHandler,
		ResponseHandler: responseHandler,
		BattleHandler:   battleHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildReviewer(cfg config.Config, logger zerolog.Logger) ai.Reviewer {
	switch cfg.AIProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn().Msg("openai api key missing, ai review disabled")
			return nil
		}
		reviewer, err := ai.NewOpenAIReviewer(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create openai reviewer, ai review disabled")
			return nil
		}
		return reviewer
	case "anthropic":
		reviewer, err := ai.NewAnthropicReviewer(ai.AnthropicConfig{APIKey: cfg.AnthropicAPIKey})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create anthropic reviewer, ai review disabled")
			return nil
		}
		return reviewer
	default:
		return nil
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
