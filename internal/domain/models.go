package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role of an account holder.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// AccountStatus gates login and merchant API access.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
)

// Account represents a wallet holder. Balance is kept in paise and is the
// single source of truth for spendable funds.
type Account struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Role         Role          `json:"role"`
	Status       AccountStatus `json:"status"`
	Balance      int64         `json:"balance"`
	CreatedAt    time.Time     `json:"created_at"`
}

// KeyMode distinguishes test and live merchant credentials.
type KeyMode string

const (
	ModeTest KeyMode = "test"
	ModeLive KeyMode = "live"
)

// CredentialStatus allows keys to be rotated without deletion.
type CredentialStatus string

const (
	CredentialActive  CredentialStatus = "active"
	CredentialRevoked CredentialStatus = "revoked"
)

// APICredential is a merchant key pair. Only the SHA-256 hash of the secret
// is stored; the plaintext is shown once at generation time.
type APICredential struct {
	ID         uuid.UUID        `json:"id"`
	AccountID  uuid.UUID        `json:"account_id"`
	KeyID      string           `json:"key_id"`
	SecretHash string           `json:"-"`
	Mode       KeyMode          `json:"mode"`
	Status     CredentialStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
}

// OrderStatus is the order state machine. Terminal transitions are
// paid -> refunded and any -> expired.
type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"
	OrderAttempted OrderStatus = "attempted"
	OrderPaid      OrderStatus = "paid"
	OrderFailed    OrderStatus = "failed"
	OrderRefunded  OrderStatus = "refunded"
	OrderExpired   OrderStatus = "expired"
)

// FlowType tells verification which entity a payment settles. For PayU it
// travels in udf1 through the provider round-trip.
type FlowType string

const (
	FlowDeposit  FlowType = "deposit"
	FlowCheckout FlowType = "checkout"
	FlowQR       FlowType = "qr"
)

// Order is a payment intent. Amounts are in paise.
type Order struct {
	ID             uuid.UUID         `json:"-"`
	OrderID        string            `json:"id"`
	AccountID      uuid.UUID         `json:"-"`
	Amount         int64             `json:"amount"`
	AmountPaid     int64             `json:"amount_paid"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt,omitempty"`
	Status         OrderStatus       `json:"status"`
	Flow           FlowType          `json:"-"`
	Gateway        string            `json:"gateway"`
	GatewayOrderID string            `json:"gateway_order_id,omitempty"`
	PaymentID      string            `json:"payment_id,omitempty"`
	Verified       bool              `json:"verified"`
	Mode           KeyMode           `json:"mode"`
	Notes          map[string]string `json:"notes,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// AmountDue is always derived, never stored.
func (o *Order) AmountDue() int64 { return o.Amount - o.AmountPaid }

// ReceivableKind distinguishes payment links from QR codes. Both share the
// same lifecycle and settlement path.
type ReceivableKind string

const (
	KindPaymentLink ReceivableKind = "payment_link"
	KindQRCode      ReceivableKind = "qr_code"
)

// ReceivableStatus lifecycle. Expiry is applied lazily on read.
type ReceivableStatus string

const (
	ReceivableActive    ReceivableStatus = "active"
	ReceivablePaid      ReceivableStatus = "paid"
	ReceivableExpired   ReceivableStatus = "expired"
	ReceivableCancelled ReceivableStatus = "cancelled"
)

// Receivable is a customer-facing collectable (payment link or QR code).
type Receivable struct {
	ID          uuid.UUID        `json:"-"`
	PublicID    string           `json:"id"`
	Kind        ReceivableKind   `json:"kind"`
	AccountID   uuid.UUID        `json:"-"`
	Amount      int64            `json:"amount"`
	Description string           `json:"description,omitempty"`
	Status      ReceivableStatus `json:"status"`
	PaymentID   string           `json:"payment_id,omitempty"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	PaidAt      *time.Time       `json:"paid_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TxnType is the ledger entry direction.
type TxnType string

const (
	TxnCredit TxnType = "credit"
	TxnDebit  TxnType = "debit"
)

// TxnStatus of a ledger entry.
type TxnStatus string

const (
	TxnPending   TxnStatus = "pending"
	TxnCompleted TxnStatus = "completed"
	TxnFailed    TxnStatus = "failed"
)

// TxnCategory classifies ledger entries for statements.
type TxnCategory string

const (
	CategoryDeposit    TxnCategory = "deposit"
	CategoryCheckout   TxnCategory = "checkout"
	CategoryQR         TxnCategory = "qr"
	CategoryPayout     TxnCategory = "payout"
	CategoryWithdrawal TxnCategory = "withdrawal"
	CategoryRefund     TxnCategory = "refund"
)

// Transaction is an append-only ledger entry. ReferenceID carries the
// external payment or payout identifier; (account_id, reference_id) is
// unique at the store level and is what makes crediting idempotent.
type Transaction struct {
	ID          uuid.UUID   `json:"id"`
	AccountID   uuid.UUID   `json:"account_id"`
	ReferenceID string      `json:"reference_id"`
	Type        TxnType     `json:"type"`
	Amount      int64       `json:"amount"`
	Status      TxnStatus   `json:"status"`
	Category    TxnCategory `json:"category"`
	Gateway     string      `json:"gateway,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// PayoutStatus state machine. The balance is debited at approval time only.
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutApproved  PayoutStatus = "approved"
	PayoutRejected  PayoutStatus = "rejected"
	PayoutCancelled PayoutStatus = "cancelled"
)

// Payout is a debit intent requiring admin approval.
type Payout struct {
	ID            uuid.UUID    `json:"id"`
	AccountID     uuid.UUID    `json:"account_id"`
	Amount        int64        `json:"amount"`
	Fee           int64        `json:"fee"`
	Mode          KeyMode      `json:"mode"`
	Purpose       string       `json:"purpose,omitempty"`
	Beneficiary   string       `json:"beneficiary_name"`
	AccountNumber string       `json:"account_number"`
	IFSC          string       `json:"ifsc"`
	Status        PayoutStatus `json:"status"`
	Remark        string       `json:"remark,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	DecidedAt     *time.Time   `json:"decided_at,omitempty"`
}

// TotalDebit is what approval removes from the balance.
func (p *Payout) TotalDebit() int64 { return p.Amount + p.Fee }

// GatewaySettings is one row per supported processor. At most one row may be
// active; the store enforces this inside the activation transaction.
type GatewaySettings struct {
	ID            uuid.UUID `json:"id"`
	Gateway       string    `json:"gateway"`
	KeyID         string    `json:"key_id"`
	KeySecret     string    `json:"-"`
	WebhookSecret string    `json:"-"`
	TestMode      bool      `json:"test_mode"`
	Enabled       bool      `json:"enabled"`
	Active        bool      `json:"active"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Configured reports whether the row has usable credentials.
func (g *GatewaySettings) Configured() bool {
	return g.KeyID != "" && g.KeySecret != ""
}

// WebhookJob is a queued merchant notification, delivered by the notify
// worker with capped retries.
type WebhookJob struct {
	ID        uuid.UUID
	URL       string
	Payload   []byte
	Attempts  int
	Status    string
	NextRunAt time.Time
	CreatedAt time.Time
}

const (
	WebhookPending   = "pending"
	WebhookCompleted = "completed"
	WebhookFailed    = "failed"
)
