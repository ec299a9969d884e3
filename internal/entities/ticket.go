package entities

import "time"

// Ticket states.
const (
	TicketStatusOpen     = "open"
	TicketStatusAssigned = "assigned"
	TicketStatusClosed   = "closed"
)

// Escalation reasons recorded on the ticket.
const (
	EscalationReasonDecline     = "decline"      // repeated failed auto-answers
	EscalationReasonUserRequest = "user_request" // user asked for a human
	EscalationReasonError       = "error"        // upstream failure
)

type Ticket struct {
	ID             string     `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	Status         string     `json:"status"`
	AssignedAgent  string     `json:"assigned_agent,omitempty"`
	Reason         string     `json:"reason"`
	OpenedAt       time.Time  `json:"opened_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}
