package usecases

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"linecs/internal/entities"
)

// TicketStore is the slice of the ticket repository the router needs.
type TicketStore interface {
	Open(ctx context.Context, t *entities.Ticket) (bool, error)
	GetOpenByConversation(ctx context.Context, conversationID int64) (*entities.Ticket, error)
	Close(ctx context.Context, id string) (conversationID int64, err error)
}

// ConversationStore is the slice of the conversation repository shared by
// the router and the message service.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, lineUserID string) (*entities.Conversation, error)
	SetState(ctx context.Context, id int64, state string) error
	IncrementFailedAnswers(ctx context.Context, id int64) (int, error)
	ResetFailedAnswers(ctx context.Context, id int64) error
	AddMessage(ctx context.Context, conversationID int64, role, content string) error
}

// EscalationRouter decides when a conversation leaves automatic handling
// and owns the ticket lifecycle around that decision.
type EscalationRouter struct {
	tickets       TicketStore
	conversations ConversationStore
	maxFailed     int // consecutive declines before escalating
	logger        *logrus.Logger
}

func NewEscalationRouter(tickets TicketStore, conversations ConversationStore, maxFailed int, logger *logrus.Logger) *EscalationRouter {
	if maxFailed <= 0 {
		maxFailed = 2
	}
	return &EscalationRouter{
		tickets:       tickets,
		conversations: conversations,
		maxFailed:     maxFailed,
		logger:        logger,
	}
}

// RouteDecline records one failed auto-answer and reports whether the
// conversation should now be handed to a human.
func (e *EscalationRouter) RouteDecline(ctx context.Context, conv *entities.Conversation) (escalate bool, err error) {
	failed, err := e.conversations.IncrementFailedAnswers(ctx, conv.ID)
	if err != nil {
		return false, fmt.Errorf("increment failed answers: %w", err)
	}
	conv.FailedAnswers = failed
	return failed >= e.maxFailed, nil
}

// Escalate opens a ticket for the conversation and suppresses automatic
// replies. Safe to call when a ticket is already open: the existing ticket
// is kept and returned (at most one open ticket per conversation).
func (e *EscalationRouter) Escalate(ctx context.Context, conv *entities.Conversation, reason string) (*entities.Ticket, bool, error) {
	ticket := &entities.Ticket{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Reason:         reason,
	}
	created, err := e.tickets.Open(ctx, ticket)
	if err != nil {
		return nil, false, fmt.Errorf("open ticket: %w", err)
	}
	if !created {
		existing, err := e.tickets.GetOpenByConversation(ctx, conv.ID)
		if err != nil {
			return nil, false, fmt.Errorf("load open ticket: %w", err)
		}
		ticket = existing
	}

	if err := e.conversations.SetState(ctx, conv.ID, entities.ConversationStateEscalated); err != nil {
		return nil, false, fmt.Errorf("mark conversation escalated: %w", err)
	}
	conv.State = entities.ConversationStateEscalated

	e.logger.WithFields(logrus.Fields{
		"conversation_id": conv.ID,
		"ticket_id":       ticket.ID,
		"reason":          reason,
		"created":         created,
	}).Info("conversation escalated")
	return ticket, created, nil
}

// Resolve closes a ticket and returns the conversation to automatic
// handling with a clean failure counter.
func (e *EscalationRouter) Resolve(ctx context.Context, ticketID string) error {
	conversationID, err := e.tickets.Close(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("close ticket: %w", err)
	}
	if conversationID == 0 {
		return nil // already closed
	}
	if err := e.conversations.SetState(ctx, conversationID, entities.ConversationStateBot); err != nil {
		return fmt.Errorf("resume conversation: %w", err)
	}
	if err := e.conversations.ResetFailedAnswers(ctx, conversationID); err != nil {
		return fmt.Errorf("reset failed answers: %w", err)
	}
	e.logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"ticket_id":       ticketID,
	}).Info("ticket closed, conversation back to bot")
	return nil
}
