// Package gateway defines the processor-neutral payment interface. Each
// provider (Razorpay, PayU, Cashfree) implements Processor in its own
// subpackage; the HTTP and service layers depend only on this package.
package gateway

import (
	"context"

	"github.com/satpay/walletd/internal/domain"
)

// Supported processor names. These are the discriminator values stored in
// gateway_settings.gateway and echoed in every CheckoutIntent.
const (
	Razorpay = "razorpay"
	PayU     = "payu"
	Cashfree = "cashfree"
)

// Customer fields forwarded to the processor. PayU requires firstname and
// email because both participate in its request hash.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// OrderRequest is the normalized create-order input. Amount is in paise.
type OrderRequest struct {
	OrderID  string // our order id, used for provider correlation
	Amount   int64
	Currency string
	Receipt  string
	Flow     domain.FlowType
	Customer Customer
	Notes    map[string]string
}

// CheckoutIntent is what the frontend needs to open a checkout. Gateway is
// always set; exactly one of the provider-specific sections is populated.
type CheckoutIntent struct {
	Gateway        string            `json:"gateway"`
	GatewayOrderID string            `json:"gateway_order_id"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`

	// Razorpay: publishable key for the JS SDK.
	KeyID string `json:"key_id,omitempty"`

	// PayU: form fields to POST and the URL to post them to.
	FormFields map[string]string `json:"form_fields,omitempty"`
	ActionURL  string            `json:"action_url,omitempty"`

	// Cashfree: session id for the drop-in SDK.
	PaymentSessionID string `json:"payment_session_id,omitempty"`
}

// VerifyRequest carries a client-submitted payment claim
// (Razorpay-style order/payment/signature triple).
type VerifyRequest struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// PaymentStatus is the result of polling the provider for an order.
type PaymentStatus struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Status           string
	Paid             bool
}

// Processor is the per-provider strategy. Implementations must not mutate
// any persistent state; verification outcomes are acted on by the caller.
type Processor interface {
	// Name returns the gateway discriminator (e.g. "razorpay").
	Name() string

	// CreateOrder registers a payment intent with the provider and returns
	// what the client needs to complete checkout.
	CreateOrder(ctx context.Context, req OrderRequest) (*CheckoutIntent, error)

	// VerifyPayment checks a client-submitted signature claim. Processors
	// without a signature flow return false.
	VerifyPayment(req VerifyRequest) bool

	// VerifyCallback checks a server-to-server callback's hash fields.
	// Processors without a callback flow return false.
	VerifyCallback(fields map[string]string) bool

	// PollStatus fetches the authoritative order status from the provider.
	PollStatus(ctx context.Context, gatewayOrderID string) (*PaymentStatus, error)

	// VerifyWebhookSignature authenticates an inbound webhook body.
	VerifyWebhookSignature(payload []byte, signature string) bool
}
