package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"linecs/internal/entities"
	"linecs/internal/infrastructure"
	"linecs/internal/interfaces"
	"linecs/internal/repository"
)

// Default bot texts, overridable per key through the admin config API.
const (
	defaultWelcomeMessage  = "您好！我是智能客服助理 🤖 請直接輸入您的問題，我會盡力為您解答。"
	defaultFallbackMessage = "很抱歉，這個問題我目前無法回答 🙇 您可以換個方式詢問，或輸入「轉人工」由專人為您服務。"
	defaultHandoffMessage  = "已為您轉接人工客服，專人將盡快回覆您，請稍候 🙏"
)

// handleTimeout bounds the whole pipeline for one inbound message
// (retrieval + generation + reply).
const handleTimeout = 30 * time.Second

// ConfigStore is the slice of the config repository the service needs.
type ConfigStore interface {
	GetConfig(ctx context.Context, key string) (string, error)
}

// MessageService orchestrates an inbound LINE message through retrieval,
// answer generation and escalation. Messages of one conversation are
// processed in receipt order via the dispatcher; different conversations
// run concurrently.
type MessageService struct {
	retriever     *Retriever
	answers       *AnswerService
	escalation    *EscalationRouter
	conversations ConversationStore
	configs       ConfigStore
	messenger     interfaces.Messenger
	limiter       *infrastructure.MessageRateLimiter
	dispatcher    *infrastructure.Dispatcher
	metrics       *infrastructure.Metrics
	logger        *logrus.Logger
}

func NewMessageService(
	retriever *Retriever,
	answers *AnswerService,
	escalation *EscalationRouter,
	conversations ConversationStore,
	configs ConfigStore,
	messenger interfaces.Messenger,
	limiter *infrastructure.MessageRateLimiter,
	dispatcher *infrastructure.Dispatcher,
	metrics *infrastructure.Metrics,
	logger *logrus.Logger,
) *MessageService {
	return &MessageService{
		retriever:     retriever,
		answers:       answers,
		escalation:    escalation,
		conversations: conversations,
		configs:       configs,
		messenger:     messenger,
		limiter:       limiter,
		dispatcher:    dispatcher,
		metrics:       metrics,
		logger:        logger,
	}
}

// EnqueueText schedules processing of a text message on the conversation's
// queue. The webhook handler returns immediately; LINE reply tokens stay
// valid long enough for the queued work.
func (s *MessageService) EnqueueText(lineUserID, replyToken, text string) {
	ok := s.dispatcher.Enqueue(lineUserID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()
		s.HandleText(ctx, lineUserID, replyToken, text)
	})
	if !ok {
		s.logger.WithField("line_user_id", lineUserID).Warn("conversation queue full, message dropped")
	}
}

// HandleText runs the full pipeline for one text message.
func (s *MessageService) HandleText(ctx context.Context, lineUserID, replyToken, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	log := s.logger.WithField("line_user_id", lineUserID)

	if s.limiter != nil && !s.limiter.Allow(lineUserID) {
		log.Warn("rate limited, message ignored")
		return
	}

	conv, err := s.conversations.GetOrCreate(ctx, lineUserID)
	if err != nil {
		log.WithError(err).Error("load conversation")
		return
	}
	if err := s.conversations.AddMessage(ctx, conv.ID, entities.MessageRoleUser, text); err != nil {
		log.WithError(err).Error("record inbound message")
	}

	// Escalated conversations belong to a human: record the message but
	// send no automatic reply until the ticket closes.
	if conv.State == entities.ConversationStateEscalated {
		log.WithField("conversation_id", conv.ID).Debug("escalated, auto reply suppressed")
		return
	}

	if isHumanRequest(text) {
		s.escalateAndNotify(ctx, conv, replyToken, entities.EscalationReasonUserRequest)
		return
	}

	if isGreeting(text) {
		s.reply(ctx, conv, replyToken, s.configText(ctx, repository.ConfigWelcomeMessage, defaultWelcomeMessage))
		return
	}

	s.answer(ctx, conv, replyToken, text)
}

func (s *MessageService) answer(ctx context.Context, conv *entities.Conversation, replyToken, text string) {
	log := s.logger.WithField("conversation_id", conv.ID)

	retrievalStart := time.Now()
	passages, err := s.retriever.Retrieve(ctx, text)
	s.metrics.RetrievalDuration.Observe(time.Since(retrievalStart).Seconds())
	if err != nil && !errors.Is(err, ErrNoRelevantContext) {
		// The retry budget is spent inside the clients; an error here is a
		// hard upstream failure, so hand the conversation to a human.
		log.WithError(err).Error("retrieval failed, handing off")
		s.metrics.AnswersGenerated.WithLabelValues("declined").Inc()
		s.escalateAndNotify(ctx, conv, replyToken, entities.EscalationReasonError)
		return
	}

	generationStart := time.Now()
	result, err := s.answers.Answer(ctx, text, passages)
	s.metrics.GenerationDuration.Observe(time.Since(generationStart).Seconds())
	if err != nil {
		log.WithError(err).Error("generation failed, handing off")
		s.metrics.AnswersGenerated.WithLabelValues("declined").Inc()
		s.escalateAndNotify(ctx, conv, replyToken, entities.EscalationReasonError)
		return
	}

	if !result.Declined {
		s.metrics.AnswersGenerated.WithLabelValues("answered").Inc()
		if err := s.conversations.ResetFailedAnswers(ctx, conv.ID); err != nil {
			log.WithError(err).Error("reset failed answers")
		}
		s.reply(ctx, conv, replyToken, result.Text)
		return
	}

	s.metrics.AnswersGenerated.WithLabelValues("declined").Inc()

	escalate, err := s.escalation.RouteDecline(ctx, conv)
	if err != nil {
		log.WithError(err).Error("route decline")
	}
	if escalate {
		s.escalateAndNotify(ctx, conv, replyToken, entities.EscalationReasonDecline)
		return
	}

	// Declines below the escalation threshold still answer the user.
	s.reply(ctx, conv, replyToken, s.configText(ctx, repository.ConfigFallbackMessage, defaultFallbackMessage))
}

func (s *MessageService) escalateAndNotify(ctx context.Context, conv *entities.Conversation, replyToken, reason string) {
	_, created, err := s.escalation.Escalate(ctx, conv, reason)
	if err != nil {
		s.logger.WithError(err).WithField("conversation_id", conv.ID).Error("escalate")
		// Still tell the user something went to a human queue.
	} else if created {
		s.metrics.TicketsOpened.WithLabelValues(reason).Inc()
	}
	s.reply(ctx, conv, replyToken, s.configText(ctx, repository.ConfigHandoffMessage, defaultHandoffMessage))
}

// HandleFollow welcomes a new follower and opens their conversation record.
func (s *MessageService) HandleFollow(ctx context.Context, lineUserID, replyToken string) {
	conv, err := s.conversations.GetOrCreate(ctx, lineUserID)
	if err != nil {
		s.logger.WithError(err).WithField("line_user_id", lineUserID).Error("create conversation on follow")
		return
	}
	s.reply(ctx, conv, replyToken, s.configText(ctx, repository.ConfigWelcomeMessage, defaultWelcomeMessage))
}

// HandleUnfollow closes the conversation; nothing is sent (the user is gone).
func (s *MessageService) HandleUnfollow(ctx context.Context, lineUserID string) {
	conv, err := s.conversations.GetOrCreate(ctx, lineUserID)
	if err != nil {
		s.logger.WithError(err).WithField("line_user_id", lineUserID).Error("load conversation on unfollow")
		return
	}
	if err := s.conversations.SetState(ctx, conv.ID, entities.ConversationStateClosed); err != nil {
		s.logger.WithError(err).Error("close conversation")
	}
}

func (s *MessageService) reply(ctx context.Context, conv *entities.Conversation, replyToken, text string) {
	if err := s.messenger.Reply(ctx, replyToken, text); err != nil {
		s.logger.WithError(err).WithField("conversation_id", conv.ID).Error("send reply")
		return
	}
	if err := s.conversations.AddMessage(ctx, conv.ID, entities.MessageRoleBot, text); err != nil {
		s.logger.WithError(err).Error("record outbound message")
	}
}

func (s *MessageService) configText(ctx context.Context, key, fallback string) string {
	if s.configs == nil {
		return fallback
	}
	value, err := s.configs.GetConfig(ctx, key)
	if err != nil || value == "" {
		return fallback
	}
	return value
}

// isHumanRequest checks for an explicit request to talk to a person.
func isHumanRequest(text string) bool {
	lower := strings.ToLower(text)
	keywords := []string{"轉人工", "真人客服", "人工客服", "找客服", "客服人員", "human agent", "talk to human"}
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// isGreeting checks if the message is only a greeting.
func isGreeting(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	greetings := []string{"你好", "您好", "哈囉", "嗨", "hi", "hello", "hey"}
	for _, g := range greetings {
		if lower == g {
			return true
		}
	}
	return false
}
