package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EmbeddingDim is the dimensionality of stored FAQ embeddings. Gemini
// embedding models are asked for exactly this many dimensions, so the
// column type and the embedder must agree.
const EmbeddingDim = 768

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	// Auto-migrate schema
	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	// pgvector extension must exist before faq_documents
	if _, err := p.Pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector;`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	// Admin console users
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) DEFAULT 'agent',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	// Conversations (one per LINE user)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id BIGSERIAL PRIMARY KEY,
			line_user_id VARCHAR(64) UNIQUE NOT NULL,
			state VARCHAR(20) NOT NULL DEFAULT 'bot',
			failed_answers INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create conversations table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			conversation_id BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			role VARCHAR(10) NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages (conversation_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}

	// FAQ knowledge base with embedding column
	_, err = p.Pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS faq_documents (
			id UUID PRIMARY KEY,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			category VARCHAR(64) DEFAULT '',
			embedding vector(%d) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`, EmbeddingDim))
	if err != nil {
		return fmt.Errorf("create faq_documents table: %w", err)
	}

	// Tickets; the partial unique index enforces at most one non-closed
	// ticket per conversation.
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tickets (
			id UUID PRIMARY KEY,
			conversation_id BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			assigned_agent VARCHAR(64) DEFAULT '',
			reason VARCHAR(32) NOT NULL,
			opened_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			closed_at TIMESTAMPTZ
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_one_open
			ON tickets (conversation_id) WHERE status <> 'closed';
	`)
	if err != nil {
		return fmt.Errorf("create tickets table: %w", err)
	}

	// Digest reports, idempotent by window_key
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS digest_reports (
			id BIGSERIAL PRIMARY KEY,
			window_key VARCHAR(10) UNIQUE NOT NULL,
			window_start TIMESTAMPTZ NOT NULL,
			window_end TIMESTAMPTZ NOT NULL,
			auto_resolved INT NOT NULL DEFAULT 0,
			escalated INT NOT NULL DEFAULT 0,
			pending INT NOT NULL DEFAULT 0,
			conversations INT NOT NULL DEFAULT 0,
			messages INT NOT NULL DEFAULT 0,
			body TEXT NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create digest_reports table: %w", err)
	}

	// Editable bot texts (welcome, fallback, handoff notice)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bot_config (
			key VARCHAR(50) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create bot_config table: %w", err)
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
