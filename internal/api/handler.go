// Package api is the HTTP surface: session routes (JWT), the merchant API
// (HTTP Basic), inbound provider callbacks/webhooks and admin settings.
package api

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satpay/walletd/internal/domain"
	"github.com/satpay/walletd/internal/service"
)

// Store is the slice of the persistence layer the handlers reach directly.
// *store.Store satisfies it; tests plug in fakes.
type Store interface {
	CreateAccount(ctx context.Context, name, email, passwordHash string) (*domain.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	SaveCredential(ctx context.Context, accountID uuid.UUID, keyID, secretHash string, mode domain.KeyMode) (*domain.APICredential, error)
	LookupCredential(ctx context.Context, keyID string) (*domain.APICredential, error)
	SetWebhookURL(ctx context.Context, accountID uuid.UUID, url string) error

	GetOrder(ctx context.Context, accountID uuid.UUID, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Order, error)
	MarkOrderRefunded(ctx context.Context, accountID uuid.UUID, orderID string) error

	ListTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error)

	CreateReceivable(ctx context.Context, r *domain.Receivable) (*domain.Receivable, error)
	GetReceivable(ctx context.Context, publicID string) (*domain.Receivable, error)
	ListReceivables(ctx context.Context, accountID uuid.UUID, kind domain.ReceivableKind, limit int) ([]domain.Receivable, error)
	CancelReceivable(ctx context.Context, accountID uuid.UUID, publicID string) error

	CreatePayout(ctx context.Context, p *domain.Payout) (*domain.Payout, error)
	GetPayout(ctx context.Context, accountID, payoutID uuid.UUID) (*domain.Payout, error)
	ListPayouts(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Payout, error)
	ListPendingPayouts(ctx context.Context, limit int) ([]domain.Payout, error)
	CancelPayout(ctx context.Context, accountID, payoutID uuid.UUID) error
	ApprovePayout(ctx context.Context, payoutID uuid.UUID, remark string) (*domain.Payout, error)
	RejectPayout(ctx context.Context, payoutID uuid.UUID, remark string) (*domain.Payout, error)

	ListGatewaySettings(ctx context.Context) ([]domain.GatewaySettings, error)
	UpsertGatewaySettings(ctx context.Context, g *domain.GatewaySettings) (*domain.GatewaySettings, error)
	SetActiveGateway(ctx context.Context, name string) error
}

type Handler struct {
	store     Store
	checkout  *service.Checkout
	verifier  *service.Verifier
	jwtSecret string
	log       *zap.Logger
}

func NewHandler(store Store, checkout *service.Checkout, verifier *service.Verifier, jwtSecret string, log *zap.Logger) *Handler {
	return &Handler{
		store:     store,
		checkout:  checkout,
		verifier:  verifier,
		jwtSecret: jwtSecret,
		log:       log,
	}
}
