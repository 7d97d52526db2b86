package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/satpay/walletd/internal/domain"
)

// CreditParams describes a verified inbound payment to apply to the ledger.
type CreditParams struct {
	AccountID   uuid.UUID
	ReferenceID string
	Amount      int64
	Category    domain.TxnCategory
	Gateway     string
	Notes       string
}

// Credit applies a verified payment exactly once. The transaction row is
// inserted first; the UNIQUE (account_id, reference_id) constraint turns a
// duplicate verification into ErrAlreadyProcessed before any balance change.
// Two concurrent duplicates race on the constraint, not on a read.
func (s *Store) Credit(ctx context.Context, p CreditParams) (*domain.Transaction, error) {
	tx, err := s.Db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var t domain.Transaction
	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (account_id, reference_id, type, amount, status, category, gateway, notes)
		VALUES ($1, $2, 'credit', $3, 'completed', $4, $5, $6)
		RETURNING id, account_id, reference_id, type, amount, status, category, gateway, notes, created_at`,
		p.AccountID, p.ReferenceID, p.Amount, p.Category, p.Gateway, p.Notes,
	).Scan(&t.ID, &t.AccountID, &t.ReferenceID, &t.Type, &t.Amount, &t.Status, &t.Category, &t.Gateway, &t.Notes, &t.CreatedAt)
	if isUniqueViolation(err) {
		return nil, domain.ErrAlreadyProcessed
	}
	if err != nil {
		return nil, fmt.Errorf("credit insert failed: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE id = $2`,
		p.Amount, p.AccountID)
	if err != nil {
		return nil, fmt.Errorf("balance increment failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrAccountNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return &t, nil
}

// Debit removes funds after locking the balance row. Callers get
// ErrInsufficientFunds with no mutation when the balance cannot cover it.
func (s *Store) Debit(ctx context.Context, p CreditParams) (*domain.Transaction, error) {
	tx, err := s.Db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := debitInTx(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return t, nil
}

func debitInTx(ctx context.Context, tx pgx.Tx, p CreditParams) (*domain.Transaction, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, p.AccountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock acquisition failed: %w", err)
	}

	if balance < p.Amount {
		return nil, domain.ErrInsufficientFunds
	}

	var t domain.Transaction
	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (account_id, reference_id, type, amount, status, category, gateway, notes)
		VALUES ($1, $2, 'debit', $3, 'completed', $4, $5, $6)
		RETURNING id, account_id, reference_id, type, amount, status, category, gateway, notes, created_at`,
		p.AccountID, p.ReferenceID, p.Amount, p.Category, p.Gateway, p.Notes,
	).Scan(&t.ID, &t.AccountID, &t.ReferenceID, &t.Type, &t.Amount, &t.Status, &t.Category, &t.Gateway, &t.Notes, &t.CreatedAt)
	if isUniqueViolation(err) {
		return nil, domain.ErrAlreadyProcessed
	}
	if err != nil {
		return nil, fmt.Errorf("debit insert failed: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $1 WHERE id = $2`,
		p.Amount, p.AccountID); err != nil {
		return nil, fmt.Errorf("balance decrement failed: %w", err)
	}
	return &t, nil
}

// ListTransactions returns the most recent ledger entries for an account.
func (s *Store) ListTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	rows, err := s.Db.Query(ctx, `
		SELECT id, account_id, reference_id, type, amount, status, category, gateway, notes, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.ReferenceID, &t.Type, &t.Amount, &t.Status, &t.Category, &t.Gateway, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
