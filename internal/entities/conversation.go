package entities

import "time"

// Conversation states.
const (
	ConversationStateBot       = "bot"       // handled automatically
	ConversationStateEscalated = "escalated" // open ticket, auto replies suppressed
	ConversationStateClosed    = "closed"    // user unfollowed
)

type Conversation struct {
	ID            int64     `json:"id"`
	LineUserID    string    `json:"line_user_id"`
	State         string    `json:"state"`
	FailedAnswers int       `json:"failed_answers"` // consecutive declined auto-answers
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Message roles.
const (
	MessageRoleUser = "user"
	MessageRoleBot  = "bot"
)

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
