package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/satpay/walletd/internal/domain"
)

const payoutColumns = `id, account_id, amount, fee, mode, purpose, beneficiary_name,
	account_number, ifsc, status, remark, created_at, decided_at`

func scanPayout(row pgx.Row) (*domain.Payout, error) {
	var p domain.Payout
	err := row.Scan(&p.ID, &p.AccountID, &p.Amount, &p.Fee, &p.Mode, &p.Purpose,
		&p.Beneficiary, &p.AccountNumber, &p.IFSC, &p.Status, &p.Remark,
		&p.CreatedAt, &p.DecidedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePayout records a debit intent. Balance sufficiency here is a soft
// check only; funds are not reserved, and several pending requests may
// together exceed the balance. The authoritative check happens at approval.
func (s *Store) CreatePayout(ctx context.Context, p *domain.Payout) (*domain.Payout, error) {
	var balance int64
	err := s.Db.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE id = $1`, p.AccountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	if balance < p.TotalDebit() {
		return nil, domain.ErrInsufficientFunds
	}

	return scanPayout(s.Db.QueryRow(ctx, `
		INSERT INTO payouts (account_id, amount, fee, mode, purpose, beneficiary_name,
			account_number, ifsc, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
		RETURNING `+payoutColumns,
		p.AccountID, p.Amount, p.Fee, p.Mode, p.Purpose, p.Beneficiary,
		p.AccountNumber, p.IFSC))
}

// GetPayout fetches a payout scoped to its owner.
func (s *Store) GetPayout(ctx context.Context, accountID, payoutID uuid.UUID) (*domain.Payout, error) {
	return scanPayout(s.Db.QueryRow(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE id = $1 AND account_id = $2`,
		payoutID, accountID))
}

// ListPayouts returns an account's recent payout requests.
func (s *Store) ListPayouts(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Payout, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	rows, err := s.Db.Query(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListPendingPayouts feeds the admin approval queue.
func (s *Store) ListPendingPayouts(ctx context.Context, limit int) ([]domain.Payout, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.Db.Query(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE status = 'pending' ORDER BY created_at ASC LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// CancelPayout lets the owner withdraw a pending request.
func (s *Store) CancelPayout(ctx context.Context, accountID, payoutID uuid.UUID) error {
	tag, err := s.Db.Exec(ctx, `
		UPDATE payouts SET status = 'cancelled', decided_at = now()
		WHERE id = $1 AND account_id = $2 AND status = 'pending'`,
		payoutID, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotPending
	}
	return nil
}

// ApprovePayout debits amount+fee and completes the payout in one
// transaction. The payout row is locked first so two admins cannot approve
// the same request; the balance re-check under FOR UPDATE decides which of
// several over-committing requests go through.
func (s *Store) ApprovePayout(ctx context.Context, payoutID uuid.UUID, remark string) (*domain.Payout, error) {
	tx, err := s.Db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanPayout(tx.QueryRow(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE id = $1 FOR UPDATE`, payoutID))
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PayoutPending {
		return nil, domain.ErrNotPending
	}

	if _, err := debitInTx(ctx, tx, CreditParams{
		AccountID:   p.AccountID,
		ReferenceID: "payout_" + p.ID.String(),
		Amount:      p.TotalDebit(),
		Category:    domain.CategoryPayout,
		Notes:       remark,
	}); err != nil {
		return nil, err
	}

	p, err = scanPayout(tx.QueryRow(ctx, `
		UPDATE payouts SET status = 'approved', remark = $2, decided_at = now()
		WHERE id = $1
		RETURNING `+payoutColumns,
		payoutID, remark))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return p, nil
}

// RejectPayout declines a pending request without touching the balance.
func (s *Store) RejectPayout(ctx context.Context, payoutID uuid.UUID, remark string) (*domain.Payout, error) {
	p, err := scanPayout(s.Db.QueryRow(ctx, `
		UPDATE payouts SET status = 'rejected', remark = $2, decided_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+payoutColumns,
		payoutID, remark))
	if errors.Is(err, domain.ErrPayoutNotFound) {
		return nil, domain.ErrNotPending
	}
	return p, err
}
