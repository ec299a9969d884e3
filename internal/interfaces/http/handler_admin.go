package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linecs/internal/interfaces"
	"linecs/internal/repository"
	"linecs/internal/usecases"
)

// AdminHandler serves the agent console: knowledge base management, ticket
// workflow, digest history and bot configuration.
type AdminHandler struct {
	faqs       *usecases.FAQService
	escalation *usecases.EscalationRouter
	digests    *usecases.DigestService
	dashboard  *usecases.DashboardUsecase
	ticketRepo *repository.TicketRepository
	convRepo   *repository.ConversationRepository
	digestRepo *repository.DigestRepository
	configRepo *repository.ConfigRepository
	messenger  interfaces.Messenger
}

func NewAdminHandler(
	faqs *usecases.FAQService,
	escalation *usecases.EscalationRouter,
	digests *usecases.DigestService,
	dashboard *usecases.DashboardUsecase,
	ticketRepo *repository.TicketRepository,
	convRepo *repository.ConversationRepository,
	digestRepo *repository.DigestRepository,
	configRepo *repository.ConfigRepository,
	messenger interfaces.Messenger,
) *AdminHandler {
	return &AdminHandler{
		faqs:       faqs,
		escalation: escalation,
		digests:    digests,
		dashboard:  dashboard,
		ticketRepo: ticketRepo,
		convRepo:   convRepo,
		digestRepo: digestRepo,
		configRepo: configRepo,
		messenger:  messenger,
	}
}

// GetDashboardStats returns the console overview numbers
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ========================================
// Knowledge base
// ========================================

type faqRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

func (r *faqRequest) sanitize() bool {
	r.Question = SanitizeString(r.Question)
	r.Answer = SanitizeString(r.Answer)
	r.Category = SanitizeString(r.Category)
	return ValidateLength(r.Question, 1, MaxQuestionLength) &&
		ValidateLength(r.Answer, 1, MaxAnswerLength) &&
		ValidateLength(r.Category, 0, MaxCategoryLength)
}

func (h *AdminHandler) ListFAQs(c *gin.Context) {
	docs, err := h.faqs.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch documents"})
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *AdminHandler) CreateFAQ(c *gin.Context) {
	var req faqRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.sanitize() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	doc, err := h.faqs.Create(c.Request.Context(), req.Question, req.Answer, req.Category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create document"})
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *AdminHandler) UpdateFAQ(c *gin.Context) {
	id := c.Param("id")
	if !ValidID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return
	}
	var req faqRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.sanitize() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	doc, err := h.faqs.Update(c.Request.Context(), id, req.Question, req.Answer, req.Category)
	if err != nil {
		if errors.Is(err, usecases.ErrFAQNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update document"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *AdminHandler) DeleteFAQ(c *gin.Context) {
	id := c.Param("id")
	if !ValidID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return
	}
	if err := h.faqs.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete document"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ReembedFAQ regenerates a document's vector (e.g. after an embedding model change)
func (h *AdminHandler) ReembedFAQ(c *gin.Context) {
	id := c.Param("id")
	if !ValidID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return
	}
	if err := h.faqs.Reembed(c.Request.Context(), id); err != nil {
		if errors.Is(err, usecases.ErrFAQNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to re-embed document"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reembedded"})
}

// ========================================
// Tickets
// ========================================

func (h *AdminHandler) ListTickets(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", "open", "assigned", "closed":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}
	tickets, err := h.ticketRepo.List(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tickets"})
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// GetTicket returns a ticket with the recent conversation transcript, so
// the agent sees what the bot failed on.
func (h *AdminHandler) GetTicket(c *gin.Context) {
	id := c.Param("id")
	if !ValidID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket ID"})
		return
	}
	ticket, err := h.ticketRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ticket"})
		return
	}
	if ticket == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		return
	}
	transcript, err := h.convRepo.RecentMessages(c.Request.Context(), ticket.ConversationID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transcript"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket, "transcript": transcript})
}

func (h *AdminHandler) AssignTicket(c *gin.Context) {
	id := c.Param("id")
	if !ValidID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket ID"})
		return
	}
	var req struct {
		Agent string `json:"agent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.Agent = SanitizeString(req.Agent)
	if !ValidateLength(req.Agent, 1, MaxAgentNameLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid agent name"})
		return
	}
	if err := h.ticketRepo.Assign(c.Request.Context(), id, req.Agent); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign ticket"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "assigned", "agent": req.Agent})
}

// CloseTicket resolves a ticket and hands the conversation back to the bot
func (h *AdminHandler) CloseTicket(c *gin.Context) {
	id := c.Param("id")
	if !ValidID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket ID"})
		return
	}
	if err := h.escalation.Resolve(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to close ticket"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// ========================================
// Digests
// ========================================

func (h *AdminHandler) ListDigests(c *gin.Context) {
	reports, err := h.digestRepo.List(c.Request.Context(), 30)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch digests"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// RunDigest triggers the daily digest manually. Windows already reported
// are not pushed again.
func (h *AdminHandler) RunDigest(c *gin.Context) {
	report, pushed, err := h.digests.Run(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Digest run failed"})
		return
	}
	if report == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Digest run already in progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report, "pushed": pushed})
}

// ========================================
// Bot configuration
// ========================================

func (h *AdminHandler) GetAllConfigs(c *gin.Context) {
	configs, err := h.configRepo.GetAllConfigs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch configs"})
		return
	}
	c.JSON(http.StatusOK, configs)
}

func (h *AdminHandler) SetConfig(c *gin.Context) {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidConfigKey(req.Key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid config key"})
		return
	}
	req.Value = SanitizeString(req.Value)
	if !ValidateLength(req.Value, 0, MaxConfigValLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Config value too long"})
		return
	}
	if err := h.configRepo.SetConfig(c.Request.Context(), req.Key, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save config"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// ========================================
// Diagnostics
// ========================================

// TestPush sends a text to a LINE user, for verifying channel credentials
func (h *AdminHandler) TestPush(c *gin.Context) {
	var req struct {
		To   string `json:"to"`
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.Text = SanitizeString(req.Text)
	if req.To == "" || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Recipient and text required"})
		return
	}
	if err := h.messenger.Push(c.Request.Context(), req.To, req.Text); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Push failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
