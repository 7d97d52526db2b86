package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/satpay/walletd/internal/domain"
)

// EnqueueSettlement queues a settlement event for the account's configured
// webhook endpoint. Accounts without one get nothing queued.
func (s *Store) EnqueueSettlement(ctx context.Context, accountID uuid.UUID, payload []byte) error {
	var url *string
	err := s.Db.QueryRow(ctx,
		`SELECT webhook_url FROM accounts WHERE id = $1`, accountID).Scan(&url)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return err
	}
	if url == nil || *url == "" {
		return nil
	}
	return s.EnqueueWebhook(ctx, *url, payload)
}

// SetWebhookURL stores the merchant's settlement notification endpoint.
func (s *Store) SetWebhookURL(ctx context.Context, accountID uuid.UUID, url string) error {
	tag, err := s.Db.Exec(ctx,
		`UPDATE accounts SET webhook_url = NULLIF($2, '') WHERE id = $1`, accountID, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// EnqueueWebhook queues a merchant notification for the notify worker.
func (s *Store) EnqueueWebhook(ctx context.Context, url string, payload []byte) error {
	_, err := s.Db.Exec(ctx, `
		INSERT INTO webhook_jobs (url, payload, status, attempts, next_run_at)
		VALUES ($1, $2, 'pending', 0, now())`,
		url, payload)
	return err
}

// NextWebhookJob claims one due job. SKIP LOCKED keeps replicas from
// fighting over the same row.
func (s *Store) NextWebhookJob(ctx context.Context, tx pgx.Tx) (*domain.WebhookJob, error) {
	var j domain.WebhookJob
	err := tx.QueryRow(ctx, `
		SELECT id, url, payload, attempts, status, next_run_at, created_at
		FROM webhook_jobs
		WHERE status = 'pending' AND next_run_at <= now()
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`,
	).Scan(&j.ID, &j.URL, &j.Payload, &j.Attempts, &j.Status, &j.NextRunAt, &j.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CompleteWebhookJob marks a delivered job done.
func (s *Store) CompleteWebhookJob(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE webhook_jobs SET status = 'completed' WHERE id = $1`, id)
	return err
}

// RetryWebhookJob schedules another attempt, or fails the job once the
// attempt cap is reached.
func (s *Store) RetryWebhookJob(ctx context.Context, tx pgx.Tx, id uuid.UUID, attempts, maxAttempts int, nextRun time.Time) error {
	if attempts >= maxAttempts {
		_, err := tx.Exec(ctx,
			`UPDATE webhook_jobs SET status = 'failed' WHERE id = $1`, id)
		return err
	}
	_, err := tx.Exec(ctx, `
		UPDATE webhook_jobs SET attempts = attempts + 1, next_run_at = $2 WHERE id = $1`,
		id, nextRun)
	return err
}
