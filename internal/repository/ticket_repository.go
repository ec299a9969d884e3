package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linecs/internal/entities"
)

type TicketRepository struct {
	db *pgxpool.Pool
}

func NewTicketRepository(db *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{db: db}
}

// Open creates a ticket for the conversation. The partial unique index on
// (conversation_id) WHERE status <> 'closed' makes this a no-op when an
// open ticket already exists; created reports which case happened.
func (r *TicketRepository) Open(ctx context.Context, t *entities.Ticket) (created bool, err error) {
	err = r.db.QueryRow(ctx, `
		INSERT INTO tickets (id, conversation_id, status, reason)
		VALUES ($1, $2, 'open', $3)
		ON CONFLICT (conversation_id) WHERE status <> 'closed' DO NOTHING
		RETURNING opened_at
	`, t.ID, t.ConversationID, t.Reason).Scan(&t.OpenedAt)
	if err == pgx.ErrNoRows {
		return false, nil // open ticket already exists
	}
	if err != nil {
		return false, err
	}
	t.Status = entities.TicketStatusOpen
	return true, nil
}

func (r *TicketRepository) GetOpenByConversation(ctx context.Context, conversationID int64) (*entities.Ticket, error) {
	var t entities.Ticket
	err := r.db.QueryRow(ctx, `
		SELECT id, conversation_id, status, assigned_agent, reason, opened_at, closed_at
		FROM tickets
		WHERE conversation_id = $1 AND status <> 'closed'
	`, conversationID).Scan(&t.ID, &t.ConversationID, &t.Status, &t.AssignedAgent, &t.Reason, &t.OpenedAt, &t.ClosedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*entities.Ticket, error) {
	var t entities.Ticket
	err := r.db.QueryRow(ctx, `
		SELECT id, conversation_id, status, assigned_agent, reason, opened_at, closed_at
		FROM tickets WHERE id = $1
	`, id).Scan(&t.ID, &t.ConversationID, &t.Status, &t.AssignedAgent, &t.Reason, &t.OpenedAt, &t.ClosedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns tickets, newest first, optionally filtered by status.
func (r *TicketRepository) List(ctx context.Context, status string) ([]entities.Ticket, error) {
	query := `
		SELECT id, conversation_id, status, assigned_agent, reason, opened_at, closed_at
		FROM tickets`
	args := []any{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY opened_at DESC LIMIT 200"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []entities.Ticket{}
	for rows.Next() {
		var t entities.Ticket
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Status, &t.AssignedAgent, &t.Reason, &t.OpenedAt, &t.ClosedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (r *TicketRepository) Assign(ctx context.Context, id, agent string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE tickets SET status = 'assigned', assigned_agent = $1
		WHERE id = $2 AND status <> 'closed'
	`, agent, id)
	return err
}

// Close marks the ticket closed and returns the owning conversation id so
// the caller can resume automatic handling.
func (r *TicketRepository) Close(ctx context.Context, id string) (conversationID int64, err error) {
	err = r.db.QueryRow(ctx, `
		UPDATE tickets SET status = 'closed', closed_at = NOW()
		WHERE id = $1 AND status <> 'closed'
		RETURNING conversation_id
	`, id).Scan(&conversationID)
	if err == pgx.ErrNoRows {
		return 0, nil // already closed or unknown
	}
	return conversationID, err
}

func (r *TicketRepository) CountOpen(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM tickets WHERE status <> 'closed'").Scan(&count)
	return count, err
}

// WindowStats aggregates ticket activity inside [start, end) for the digest:
// escalated = tickets opened in the window, pending = still not closed at
// the window end.
func (r *TicketRepository) WindowStats(ctx context.Context, start, end time.Time) (escalated, pending int, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE opened_at >= $1 AND opened_at < $2),
			COUNT(*) FILTER (WHERE opened_at < $2 AND (closed_at IS NULL OR closed_at >= $2))
		FROM tickets
	`, start, end).Scan(&escalated, &pending)
	return escalated, pending, err
}
