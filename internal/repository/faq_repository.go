package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"linecs/internal/entities"
)

// Similarity metrics supported by Search.
const (
	MetricCosine = "cosine"
	MetricL2     = "l2"
)

type FAQRepository struct {
	db *pgxpool.Pool
}

func NewFAQRepository(db *pgxpool.Pool) *FAQRepository {
	return &FAQRepository{db: db}
}

// Upsert writes a document together with its embedding. Callers must embed
// the current question/answer text before calling, so a stale vector can
// never be persisted alongside changed text.
func (r *FAQRepository) Upsert(ctx context.Context, doc *entities.FAQDocument, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	_, err := r.db.Exec(ctx, `
		INSERT INTO faq_documents (id, question, answer, category, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE
		SET question = EXCLUDED.question,
		    answer = EXCLUDED.answer,
		    category = EXCLUDED.category,
		    embedding = EXCLUDED.embedding,
		    updated_at = NOW()
	`, doc.ID, doc.Question, doc.Answer, doc.Category, vec)
	if err != nil {
		return fmt.Errorf("upsert faq document %s: %w", doc.ID, err)
	}
	return nil
}

func (r *FAQRepository) GetByID(ctx context.Context, id string) (*entities.FAQDocument, error) {
	var doc entities.FAQDocument
	err := r.db.QueryRow(ctx, `
		SELECT id, question, answer, category, updated_at
		FROM faq_documents WHERE id = $1
	`, id).Scan(&doc.ID, &doc.Question, &doc.Answer, &doc.Category, &doc.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *FAQRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM faq_documents WHERE id = $1", id)
	return err
}

func (r *FAQRepository) List(ctx context.Context) ([]entities.FAQDocument, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, question, answer, category, updated_at
		FROM faq_documents ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []entities.FAQDocument{}
	for rows.Next() {
		var doc entities.FAQDocument
		if err := rows.Scan(&doc.ID, &doc.Question, &doc.Answer, &doc.Category, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *FAQRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM faq_documents").Scan(&count)
	return count, err
}

// Search returns the topK nearest documents to the query vector with their
// similarity scores, best first. Similarity is normalized to [0,1] for both
// metrics so the caller can apply one threshold.
func (r *FAQRepository) Search(ctx context.Context, queryVec []float32, topK int, metric string) ([]entities.RetrievedPassage, error) {
	var simExpr, orderExpr string
	switch metric {
	case MetricL2:
		simExpr = "1 / (1 + (embedding <-> $1))"
		orderExpr = "embedding <-> $1"
	case MetricCosine, "":
		simExpr = "1 - (embedding <=> $1)"
		orderExpr = "embedding <=> $1"
	default:
		return nil, fmt.Errorf("unsupported similarity metric %q", metric)
	}

	vec := pgvector.NewVector(queryVec)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT id, question, answer, category, updated_at, %s AS similarity
		FROM faq_documents
		ORDER BY %s
		LIMIT $2
	`, simExpr, orderExpr), vec, topK)
	if err != nil {
		return nil, fmt.Errorf("faq vector search: %w", err)
	}
	defer rows.Close()

	passages := []entities.RetrievedPassage{}
	for rows.Next() {
		var p entities.RetrievedPassage
		var updatedAt time.Time
		if err := rows.Scan(&p.ID, &p.Question, &p.Answer, &p.Category, &updatedAt, &p.Similarity); err != nil {
			return nil, err
		}
		p.UpdatedAt = updatedAt
		passages = append(passages, p)
	}
	return passages, rows.Err()
}
