// Package service orchestrates checkout creation, payment verification and
// payout approval on top of the store and gateway layers.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satpay/walletd/internal/domain"
	"github.com/satpay/walletd/internal/gateway"
	"github.com/satpay/walletd/internal/store"
)

// OrderStore is the order slice of the store used by checkout/verification.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, accountID uuid.UUID, orderID string) (*domain.Order, error)
	GetOrderByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)
	MarkOrderAttempted(ctx context.Context, orderID string) error
	MarkOrderPaid(ctx context.Context, orderID, paymentID string) error
	MarkOrderFailed(ctx context.Context, orderID string) error
}

// ReceivableStore is the receivable slice used when a checkout settles a
// payment link or QR code.
type ReceivableStore interface {
	GetReceivable(ctx context.Context, publicID string) (*domain.Receivable, error)
	MarkReceivablePaid(ctx context.Context, publicID, paymentID string) error
}

// Ledger applies verified money movements.
type Ledger interface {
	Credit(ctx context.Context, p store.CreditParams) (*domain.Transaction, error)
}

// GatewayResolver picks processors at request time, never from a cache.
type GatewayResolver interface {
	Active(ctx context.Context) (gateway.Processor, *domain.GatewaySettings, error)
	ForGateway(ctx context.Context, name string) (gateway.Processor, *domain.GatewaySettings, error)
	RazorpayEnvFallback() (gateway.Processor, *domain.GatewaySettings, bool)
}

// Checkout creates orders against the active gateway.
type Checkout struct {
	orders      OrderStore
	receivables ReceivableStore
	resolver    GatewayResolver
	mode        domain.KeyMode
	log         *zap.Logger
}

func NewCheckout(orders OrderStore, receivables ReceivableStore, resolver GatewayResolver, mode domain.KeyMode, log *zap.Logger) *Checkout {
	return &Checkout{orders: orders, receivables: receivables, resolver: resolver, mode: mode, log: log}
}

// CheckoutResult pairs the persisted order with what the client needs to
// open the provider checkout. Intent.Gateway is the discriminator the
// frontend branches on.
type CheckoutResult struct {
	Order  *domain.Order           `json:"order"`
	Intent *gateway.CheckoutIntent `json:"checkout"`
}

// CreateParams is the normalized create-order input across all flows.
type CreateParams struct {
	AccountID uuid.UUID
	Amount    int64 // paise
	Currency  string
	Receipt   string
	Flow      domain.FlowType
	Customer  gateway.Customer
	Notes     map[string]string
}

// Create registers an order with the active gateway and persists the intent.
// If the active gateway is Razorpay and the configured credentials fail, one
// retry runs against the legacy environment credentials. A failing PayU or
// Cashfree never falls back to another provider: that would silently change
// the checkout the customer sees.
func (c *Checkout) Create(ctx context.Context, p CreateParams) (*CheckoutResult, error) {
	proc, settings, err := c.resolver.Active(ctx)
	if err != nil {
		return nil, err
	}

	if p.Currency == "" {
		p.Currency = "INR"
	}

	req := gateway.OrderRequest{
		OrderID:  domain.NewPublicID("ord"),
		Amount:   p.Amount,
		Currency: p.Currency,
		Receipt:  p.Receipt,
		Flow:     p.Flow,
		Customer: p.Customer,
		Notes:    p.Notes,
	}

	intent, err := proc.CreateOrder(ctx, req)
	if err != nil && settings.Gateway == gateway.Razorpay {
		if fbProc, fbSettings, ok := c.resolver.RazorpayEnvFallback(); ok {
			c.log.Warn("razorpay order create failed, retrying with environment credentials",
				zap.Error(err))
			intent, err = fbProc.CreateOrder(ctx, req)
			if err == nil {
				settings = fbSettings
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("gateway %s could not create the order, check its credentials in admin settings: %w",
			settings.Gateway, err)
	}

	mode := c.mode
	if settings.TestMode {
		mode = domain.ModeTest
	}

	order, err := c.orders.CreateOrder(ctx, &domain.Order{
		OrderID:        req.OrderID,
		AccountID:      p.AccountID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Receipt:        p.Receipt,
		Flow:           p.Flow,
		Gateway:        settings.Gateway,
		GatewayOrderID: intent.GatewayOrderID,
		Mode:           mode,
		Notes:          p.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("order persist failed: %w", err)
	}

	return &CheckoutResult{Order: order, Intent: intent}, nil
}

// CreateForReceivable opens a checkout that settles a payment link or QR
// code. Expiry is checked lazily here, on the read.
func (c *Checkout) CreateForReceivable(ctx context.Context, publicID string, customer gateway.Customer) (*CheckoutResult, error) {
	r, err := c.receivables.GetReceivable(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if r.Status != domain.ReceivableActive {
		return nil, fmt.Errorf("receivable %s is %s: %w", publicID, r.Status, domain.ErrNotPending)
	}

	flow := domain.FlowCheckout
	if r.Kind == domain.KindQRCode {
		flow = domain.FlowQR
	}

	return c.Create(ctx, CreateParams{
		AccountID: r.AccountID,
		Amount:    r.Amount,
		Currency:  "INR",
		Receipt:   r.PublicID,
		Flow:      flow,
		Customer:  customer,
		Notes:     map[string]string{"receivable_id": r.PublicID},
	})
}
