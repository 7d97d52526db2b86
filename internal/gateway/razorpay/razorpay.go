// Package razorpay implements gateway.Processor on top of the official
// Razorpay Go SDK. Signature checks are plain HMAC-SHA256 over
// "order_id|payment_id" with the key secret.
package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	rzp "github.com/razorpay/razorpay-go"

	"github.com/satpay/walletd/internal/gateway"
)

type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

type Adapter struct {
	cfg    Config
	client *rzp.Client
}

func New(cfg Config) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: rzp.NewClient(cfg.KeyID, cfg.KeySecret),
	}
}

func (a *Adapter) Name() string { return gateway.Razorpay }

// CreateOrder creates a Razorpay order. Amounts are already in paise, which
// is the unit Razorpay expects.
func (a *Adapter) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.CheckoutIntent, error) {
	notes := make(map[string]interface{}, len(req.Notes)+1)
	for k, v := range req.Notes {
		notes[k] = v
	}
	notes["flow"] = string(req.Flow)

	body := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}

	result, err := a.client.Order.Create(body, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: create order failed: %w", err)
	}

	id, _ := result["id"].(string)
	return &gateway.CheckoutIntent{
		Gateway:        gateway.Razorpay,
		GatewayOrderID: id,
		Amount:         req.Amount,
		Currency:       req.Currency,
		KeyID:          a.cfg.KeyID,
	}, nil
}

// VerifyPayment recomputes HMAC-SHA256(order_id|payment_id, keySecret) and
// compares it to the client-submitted signature in constant time.
func (a *Adapter) VerifyPayment(req gateway.VerifyRequest) bool {
	if req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(a.cfg.KeySecret))
	mac.Write([]byte(req.GatewayOrderID + "|" + req.GatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(req.Signature), []byte(expected))
}

// VerifyCallback is unused: Razorpay settles via client signature or webhook.
func (a *Adapter) VerifyCallback(map[string]string) bool { return false }

// PollStatus fetches the order from Razorpay and reports whether it is paid.
func (a *Adapter) PollStatus(_ context.Context, gatewayOrderID string) (*gateway.PaymentStatus, error) {
	result, err := a.client.Order.Fetch(gatewayOrderID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: fetch order failed: %w", err)
	}
	status, _ := result["status"].(string)
	return &gateway.PaymentStatus{
		GatewayOrderID: gatewayOrderID,
		Status:         status,
		Paid:           status == "paid",
	}, nil
}

// VerifyWebhookSignature authenticates the x-razorpay-signature header:
// HMAC-SHA256 over the raw JSON body with the shared webhook secret.
func (a *Adapter) VerifyWebhookSignature(payload []byte, signature string) bool {
	if signature == "" || a.cfg.WebhookSecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(a.cfg.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
