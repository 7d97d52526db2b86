package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/satpay/walletd/internal/domain"
)

const orderColumns = `id, order_id, account_id, amount, amount_paid, currency, receipt,
	status, flow, gateway, gateway_order_id, payment_id, verified, mode, notes, created_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var notes []byte
	err := row.Scan(&o.ID, &o.OrderID, &o.AccountID, &o.Amount, &o.AmountPaid, &o.Currency,
		&o.Receipt, &o.Status, &o.Flow, &o.Gateway, &o.GatewayOrderID, &o.PaymentID,
		&o.Verified, &o.Mode, &notes, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &o.Notes); err != nil {
			return nil, fmt.Errorf("corrupt order notes: %w", err)
		}
	}
	return &o, nil
}

// CreateOrder persists a payment intent in the created state.
func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	notes, err := json.Marshal(o.Notes)
	if err != nil {
		return nil, err
	}
	return scanOrder(s.Db.QueryRow(ctx, `
		INSERT INTO orders (order_id, account_id, amount, currency, receipt, status, flow,
			gateway, gateway_order_id, mode, notes)
		VALUES ($1, $2, $3, $4, $5, 'created', $6, $7, $8, $9, $10)
		RETURNING `+orderColumns,
		o.OrderID, o.AccountID, o.Amount, o.Currency, o.Receipt, o.Flow,
		o.Gateway, o.GatewayOrderID, o.Mode, notes))
}

// GetOrder fetches an order scoped to its owning merchant.
func (s *Store) GetOrder(ctx context.Context, accountID uuid.UUID, orderID string) (*domain.Order, error) {
	return scanOrder(s.Db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE account_id = $1 AND order_id = $2`,
		accountID, orderID))
}

// GetOrderByGatewayID resolves an order from a provider correlation id, used
// by callback and webhook handlers that have no session.
func (s *Store) GetOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	return scanOrder(s.Db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE gateway_order_id = $1`, gatewayOrderID))
}

// GetOrderByOrderID resolves an order without merchant scoping. PayU echoes
// our order id as txnid, so the callback path enters here.
func (s *Store) GetOrderByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	return scanOrder(s.Db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID))
}

// ListOrders returns a merchant's recent orders.
func (s *Store) ListOrders(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	rows, err := s.Db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// MarkOrderAttempted records that a checkout was opened. Only created orders
// move; later states are left alone.
func (s *Store) MarkOrderAttempted(ctx context.Context, orderID string) error {
	_, err := s.Db.Exec(ctx,
		`UPDATE orders SET status = 'attempted' WHERE order_id = $1 AND status = 'created'`,
		orderID)
	return err
}

// MarkOrderPaid finalizes a verified order. The guard on status keeps a
// replayed verification from rewriting payment_id on an already-paid order.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID, paymentID string) error {
	tag, err := s.Db.Exec(ctx, `
		UPDATE orders
		SET status = 'paid', amount_paid = amount, payment_id = $2, verified = TRUE
		WHERE order_id = $1 AND status IN ('created', 'attempted')`,
		orderID, paymentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotPending
	}
	return nil
}

// MarkOrderFailed records a failed payment attempt.
func (s *Store) MarkOrderFailed(ctx context.Context, orderID string) error {
	_, err := s.Db.Exec(ctx, `
		UPDATE orders SET status = 'failed'
		WHERE order_id = $1 AND status IN ('created', 'attempted')`,
		orderID)
	return err
}

// MarkOrderRefunded soft-marks a paid order refunded.
func (s *Store) MarkOrderRefunded(ctx context.Context, accountID uuid.UUID, orderID string) error {
	tag, err := s.Db.Exec(ctx, `
		UPDATE orders SET status = 'refunded'
		WHERE account_id = $1 AND order_id = $2 AND status = 'paid'`,
		accountID, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotPending
	}
	return nil
}
