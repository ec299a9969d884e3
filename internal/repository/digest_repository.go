package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linecs/internal/entities"
)

type DigestRepository struct {
	db *pgxpool.Pool
}

func NewDigestRepository(db *pgxpool.Pool) *DigestRepository {
	return &DigestRepository{db: db}
}

// Insert stores a report for its window. The UNIQUE constraint on
// window_key makes the digest job idempotent: if the window was already
// reported, nothing is written and created is false.
func (r *DigestRepository) Insert(ctx context.Context, report *entities.DigestReport) (created bool, err error) {
	err = r.db.QueryRow(ctx, `
		INSERT INTO digest_reports
			(window_key, window_start, window_end, auto_resolved, escalated, pending, conversations, messages, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (window_key) DO NOTHING
		RETURNING id, generated_at
	`, report.WindowKey, report.WindowStart, report.WindowEnd,
		report.AutoResolved, report.Escalated, report.Pending,
		report.Conversations, report.Messages, report.Body,
	).Scan(&report.ID, &report.GeneratedAt)
	if err == pgx.ErrNoRows {
		return false, nil // window already reported
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *DigestRepository) GetByKey(ctx context.Context, windowKey string) (*entities.DigestReport, error) {
	var d entities.DigestReport
	err := r.db.QueryRow(ctx, `
		SELECT id, window_key, window_start, window_end, auto_resolved, escalated,
		       pending, conversations, messages, body, generated_at
		FROM digest_reports WHERE window_key = $1
	`, windowKey).Scan(&d.ID, &d.WindowKey, &d.WindowStart, &d.WindowEnd,
		&d.AutoResolved, &d.Escalated, &d.Pending, &d.Conversations, &d.Messages,
		&d.Body, &d.GeneratedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DigestRepository) List(ctx context.Context, limit int) ([]entities.DigestReport, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, window_key, window_start, window_end, auto_resolved, escalated,
		       pending, conversations, messages, body, generated_at
		FROM digest_reports ORDER BY window_start DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []entities.DigestReport{}
	for rows.Next() {
		var d entities.DigestReport
		if err := rows.Scan(&d.ID, &d.WindowKey, &d.WindowStart, &d.WindowEnd,
			&d.AutoResolved, &d.Escalated, &d.Pending, &d.Conversations, &d.Messages,
			&d.Body, &d.GeneratedAt); err != nil {
			return nil, err
		}
		reports = append(reports, d)
	}
	return reports, rows.Err()
}
