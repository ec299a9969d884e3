package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"linecs/internal/entities"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetOrCreate returns the conversation for a LINE user, creating it on
// first contact. A closed conversation (user unfollowed earlier) is
// reopened in bot state.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, lineUserID string) (*entities.Conversation, error) {
	var c entities.Conversation
	err := r.db.QueryRow(ctx, `
		INSERT INTO conversations (line_user_id)
		VALUES ($1)
		ON CONFLICT (line_user_id) DO UPDATE
		SET updated_at = NOW(),
		    state = CASE WHEN conversations.state = 'closed' THEN 'bot' ELSE conversations.state END
		RETURNING id, line_user_id, state, failed_answers, created_at, updated_at
	`, lineUserID).Scan(&c.ID, &c.LineUserID, &c.State, &c.FailedAnswers, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepository) SetState(ctx context.Context, id int64, state string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE conversations SET state = $1, updated_at = NOW() WHERE id = $2",
		state, id)
	return err
}

// IncrementFailedAnswers bumps the consecutive-decline counter and returns
// the new value.
func (r *ConversationRepository) IncrementFailedAnswers(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		UPDATE conversations
		SET failed_answers = failed_answers + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING failed_answers
	`, id).Scan(&count)
	return count, err
}

func (r *ConversationRepository) ResetFailedAnswers(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		"UPDATE conversations SET failed_answers = 0, updated_at = NOW() WHERE id = $1", id)
	return err
}

func (r *ConversationRepository) AddMessage(ctx context.Context, conversationID int64, role, content string) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO messages (conversation_id, role, content) VALUES ($1, $2, $3)",
		conversationID, role, content)
	return err
}

func (r *ConversationRepository) RecentMessages(ctx context.Context, conversationID int64, limit int) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []entities.Message{}
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	// reverse to chronological order
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, rows.Err()
}

// CountInWindow returns conversations touched and messages exchanged inside
// [start, end), used by the digest job.
func (r *ConversationRepository) CountInWindow(ctx context.Context, start, end time.Time) (conversations, messages int, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT conversation_id), COUNT(*)
		FROM messages
		WHERE created_at >= $1 AND created_at < $2
	`, start, end).Scan(&conversations, &messages)
	return conversations, messages, err
}

func (r *ConversationRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM conversations").Scan(&count)
	return count, err
}
