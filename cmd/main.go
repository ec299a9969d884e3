package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"linecs/internal/config"
	"linecs/internal/infrastructure"
	"linecs/internal/interfaces/http"
	"linecs/internal/repository"
	"linecs/internal/usecases"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx := context.Background()

	// Connect to PostgreSQL (runs migrations)
	pgClient, err := infrastructure.NewPostgresClient(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer pgClient.Close()

	// Repositories
	userRepo := repository.NewUserRepository(pgClient.Pool)
	configRepo := repository.NewConfigRepository(pgClient.Pool)
	conversationRepo := repository.NewConversationRepository(pgClient.Pool)
	faqRepo := repository.NewFAQRepository(pgClient.Pool)
	ticketRepo := repository.NewTicketRepository(pgClient.Pool)
	digestRepo := repository.NewDigestRepository(pgClient.Pool)

	// External clients
	lineClient, err := infrastructure.NewLineClient(cfg.LineChannelSecret, cfg.LineChannelToken, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to init LINE client")
	}
	geminiClient, err := infrastructure.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GenerateModel, cfg.EmbeddingModel, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to init Gemini client")
	}
	telegramNotifier := infrastructure.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramOpsChat, logger)
	if !telegramNotifier.Enabled() {
		logger.Info("telegram ops channel disabled")
	}

	metrics := infrastructure.NewMetrics()
	limiter := infrastructure.NewMessageRateLimiter(1, 5) // 1 msg/s, burst 5 per user
	dispatcher := infrastructure.NewDispatcher(32, 10*time.Minute)
	defer dispatcher.Stop()

	// Usecases
	authUsecase := usecases.NewAuthUsecase(userRepo, cfg.JWTSecret)
	if err := authUsecase.EnsureAdmin(ctx, getEnv("ADMIN_USERNAME", "root"), getEnv("ADMIN_PASSWORD", "root")); err != nil {
		logger.WithError(err).Warn("failed to ensure admin user")
	}

	retriever := usecases.NewRetriever(geminiClient, faqRepo, cfg.RetrievalTopK, cfg.SimilarityMetric, cfg.SimilarityMinScore, logger)
	answerService := usecases.NewAnswerService(geminiClient, logger)
	escalation := usecases.NewEscalationRouter(ticketRepo, conversationRepo, cfg.MaxFailedAnswers, logger)
	faqService := usecases.NewFAQService(faqRepo, geminiClient, logger)
	messageService := usecases.NewMessageService(
		retriever, answerService, escalation,
		conversationRepo, configRepo,
		lineClient, limiter, dispatcher, metrics, logger,
	)

	location, err := time.LoadLocation(cfg.DigestTimezone)
	if err != nil {
		logger.WithError(err).WithField("timezone", cfg.DigestTimezone).Warn("invalid digest timezone, using UTC")
		location = time.UTC
	}
	digestService := usecases.NewDigestService(
		digestRepo, ticketRepo, conversationRepo,
		lineClient, telegramNotifier, cfg.DigestRecipients,
		location, cfg.DigestHour, cfg.DigestMinute,
		metrics, logger,
	)
	digestService.Start(ctx)

	dashboardUsecase := usecases.NewDashboardUsecase(conversationRepo, ticketRepo, faqRepo, digestRepo, limiter, dispatcher)

	// HTTP server
	authMiddleware := http.NewMiddleware(cfg.JWTSecret)
	adminHandler := http.NewAdminHandler(
		faqService, escalation, digestService, dashboardUsecase,
		ticketRepo, conversationRepo, digestRepo, configRepo, lineClient,
	)

	r := gin.New()
	r.Use(gin.Recovery())
	http.SetupRoutes(r, messageService, authUsecase, adminHandler, lineClient, pgClient, metrics, authMiddleware, logger)

	logger.WithField("port", cfg.Port).Info("starting server")
	if err := r.Run("0.0.0.0:" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("server exited")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
