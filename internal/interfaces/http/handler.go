package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"linecs/internal/infrastructure"
	"linecs/internal/usecases"
)

type Handler struct {
	messageService *usecases.MessageService
	line           *infrastructure.LineClient
	db             *infrastructure.PostgresClient
	metrics        *infrastructure.Metrics
	logger         *logrus.Logger
}

func NewHandler(service *usecases.MessageService, line *infrastructure.LineClient, db *infrastructure.PostgresClient, metrics *infrastructure.Metrics, logger *logrus.Logger) *Handler {
	return &Handler{
		messageService: service,
		line:           line,
		db:             db,
		metrics:        metrics,
		logger:         logger,
	}
}

func SetupRoutes(
	r *gin.Engine,
	service *usecases.MessageService,
	auth *usecases.AuthUsecase,
	admin *AdminHandler,
	line *infrastructure.LineClient,
	db *infrastructure.PostgresClient,
	metrics *infrastructure.Metrics,
	middleware *Middleware,
	logger *logrus.Logger,
) {
	h := NewHandler(service, line, db, metrics, logger)

	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20)) // 1MB max request size
	r.Use(middleware.CORSMiddleware())

	// Public routes
	r.POST("/webhook/line", h.HandleLineWebhook)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", func(c *gin.Context) {
			var loginReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&loginReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			token, err := auth.Login(c.Request.Context(), loginReq.Username, loginReq.Password)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})

		authGroup.POST("/register", func(c *gin.Context) {
			var regReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&regReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			if !ValidID(regReq.Username) || len(regReq.Password) < 6 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password (min 6 chars)"})
				return
			}
			if err := auth.Register(c.Request.Context(), regReq.Username, regReq.Password); err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"status": "registered"})
		})
	}

	// Protected agent console routes
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(5, 10))
	{
		api.GET("/dashboard/stats", admin.GetDashboardStats)

		api.GET("/faqs", admin.ListFAQs)
		api.POST("/faqs", admin.CreateFAQ)
		api.PUT("/faqs/:id", admin.UpdateFAQ)
		api.DELETE("/faqs/:id", admin.DeleteFAQ)
		api.POST("/faqs/:id/reembed", admin.ReembedFAQ)

		api.GET("/tickets", admin.ListTickets)
		api.GET("/tickets/:id", admin.GetTicket)
		api.PUT("/tickets/:id/assign", admin.AssignTicket)
		api.PUT("/tickets/:id/close", admin.CloseTicket)

		api.GET("/digests", admin.ListDigests)
		api.POST("/digests/run", admin.RunDigest)

		api.GET("/config", admin.GetAllConfigs)
		api.POST("/config", middleware.AdminRequired(), admin.SetConfig)

		api.POST("/test/push", admin.TestPush)
	}
}

// HandleLineWebhook verifies the platform signature and fans events out to
// the per-conversation queues. It always answers fast; the real work runs
// after the response.
func (h *Handler) HandleLineWebhook(c *gin.Context) {
	events, err := h.line.ParseWebhook(c.Request)
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			h.metrics.WebhookRejected.Inc()
			h.logger.Warn("webhook rejected: invalid signature")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed webhook payload"})
		return
	}

	for _, event := range events {
		h.metrics.WebhookEventsReceived.WithLabelValues(string(event.Type)).Inc()

		userID := ""
		if event.Source != nil {
			userID = event.Source.UserID
		}
		if userID == "" {
			continue
		}

		switch event.Type {
		case linebot.EventTypeMessage:
			msg, ok := event.Message.(*linebot.TextMessage)
			if !ok {
				// Stickers, images etc. are acknowledged but not processed.
				continue
			}
			h.messageService.EnqueueText(userID, event.ReplyToken, msg.Text)
		case linebot.EventTypeFollow:
			h.messageService.HandleFollow(c.Request.Context(), userID, event.ReplyToken)
		case linebot.EventTypeUnfollow:
			h.messageService.HandleUnfollow(c.Request.Context(), userID)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
