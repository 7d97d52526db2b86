package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/satpay/walletd/internal/domain"
)

const receivableColumns = `id, public_id, kind, account_id, amount, description,
	status, payment_id, expires_at, paid_at, created_at`

func scanReceivable(row pgx.Row) (*domain.Receivable, error) {
	var r domain.Receivable
	err := row.Scan(&r.ID, &r.PublicID, &r.Kind, &r.AccountID, &r.Amount, &r.Description,
		&r.Status, &r.PaymentID, &r.ExpiresAt, &r.PaidAt, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReceivableNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReceivable persists a payment link or QR code in the active state.
func (s *Store) CreateReceivable(ctx context.Context, r *domain.Receivable) (*domain.Receivable, error) {
	return scanReceivable(s.Db.QueryRow(ctx, `
		INSERT INTO receivables (public_id, kind, account_id, amount, description, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, 'active', $6)
		RETURNING `+receivableColumns,
		r.PublicID, r.Kind, r.AccountID, r.Amount, r.Description, r.ExpiresAt))
}

// GetReceivable fetches by public id, applying lazy expiry: an active row
// past its due date is flipped to expired before being returned. There is no
// background sweep.
func (s *Store) GetReceivable(ctx context.Context, publicID string) (*domain.Receivable, error) {
	r, err := scanReceivable(s.Db.QueryRow(ctx,
		`SELECT `+receivableColumns+` FROM receivables WHERE public_id = $1`, publicID))
	if err != nil {
		return nil, err
	}

	if r.Status == domain.ReceivableActive && r.ExpiresAt != nil && r.ExpiresAt.Before(time.Now()) {
		if _, err := s.Db.Exec(ctx, `
			UPDATE receivables SET status = 'expired'
			WHERE public_id = $1 AND status = 'active'`, publicID); err != nil {
			return nil, err
		}
		r.Status = domain.ReceivableExpired
	}
	return r, nil
}

// ListReceivables returns a merchant's links or QR codes of one kind.
func (s *Store) ListReceivables(ctx context.Context, accountID uuid.UUID, kind domain.ReceivableKind, limit int) ([]domain.Receivable, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	rows, err := s.Db.Query(ctx, `
		SELECT `+receivableColumns+` FROM receivables
		WHERE account_id = $1 AND kind = $2
		ORDER BY created_at DESC LIMIT $3`,
		accountID, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Receivable
	for rows.Next() {
		r, err := scanReceivable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// MarkReceivablePaid settles a receivable. Only active rows move.
func (s *Store) MarkReceivablePaid(ctx context.Context, publicID, paymentID string) error {
	tag, err := s.Db.Exec(ctx, `
		UPDATE receivables SET status = 'paid', payment_id = $2, paid_at = now()
		WHERE public_id = $1 AND status = 'active'`,
		publicID, paymentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotPending
	}
	return nil
}

// CancelReceivable cancels an active receivable, scoped to its owner.
func (s *Store) CancelReceivable(ctx context.Context, accountID uuid.UUID, publicID string) error {
	tag, err := s.Db.Exec(ctx, `
		UPDATE receivables SET status = 'cancelled'
		WHERE account_id = $1 AND public_id = $2 AND status = 'active'`,
		accountID, publicID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotPending
	}
	return nil
}
