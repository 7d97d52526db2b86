// Package cashfree implements gateway.Processor against the Cashfree PG
// REST API. There is no trusted client signature: verification is an
// authenticated status poll, and only a remote "PAID" credits the wallet.
package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/satpay/walletd/internal/gateway"
	"github.com/satpay/walletd/internal/money"
)

const (
	productionBase = "https://api.cashfree.com/pg"
	sandboxBase    = "https://sandbox.cashfree.com/pg"
	apiVersion     = "2022-09-01"
)

type Config struct {
	ClientID     string
	ClientSecret string
	TestMode     bool
	ReturnURL    string

	// BaseURL overrides the API host, used by tests.
	BaseURL string
}

type Adapter struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		if cfg.TestMode {
			cfg.BaseURL = sandboxBase
		} else {
			cfg.BaseURL = productionBase
		}
	}
	return &Adapter{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *Adapter) Name() string { return gateway.Cashfree }

type createOrderBody struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     json.Number     `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
	OrderMeta       orderMeta       `json:"order_meta"`
	OrderNote       string          `json:"order_note,omitempty"`
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
}

type orderResponse struct {
	OrderID          string `json:"order_id"`
	OrderStatus      string `json:"order_status"`
	PaymentSessionID string `json:"payment_session_id"`
	Message          string `json:"message"`
}

// CreateOrder POSTs /orders with an idempotent x-request-id so a retried
// create cannot register two provider orders for the same intent.
func (a *Adapter) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.CheckoutIntent, error) {
	body := createOrderBody{
		OrderID:       req.OrderID,
		OrderAmount:   json.Number(money.ToRupees(req.Amount)),
		OrderCurrency: req.Currency,
		CustomerDetails: customerDetails{
			CustomerID:    "cust_" + req.OrderID,
			CustomerEmail: req.Customer.Email,
			CustomerPhone: req.Customer.Phone,
		},
		OrderMeta: orderMeta{ReturnURL: a.cfg.ReturnURL},
		OrderNote: string(req.Flow),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	a.setHeaders(httpReq)
	httpReq.Header.Set("x-request-id", uuid.NewString())

	var resp orderResponse
	if err := a.do(httpReq, &resp); err != nil {
		return nil, fmt.Errorf("cashfree: create order failed: %w", err)
	}
	if resp.PaymentSessionID == "" {
		return nil, fmt.Errorf("cashfree: create order returned no payment session: %s", resp.Message)
	}

	return &gateway.CheckoutIntent{
		Gateway:          gateway.Cashfree,
		GatewayOrderID:   resp.OrderID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		PaymentSessionID: resp.PaymentSessionID,
	}, nil
}

// VerifyPayment is unused: Cashfree is verified by polling, never by a
// client-submitted signature.
func (a *Adapter) VerifyPayment(gateway.VerifyRequest) bool { return false }

// VerifyCallback is unused for the same reason.
func (a *Adapter) VerifyCallback(map[string]string) bool { return false }

// PollStatus GETs /orders/{id} and reports Paid only for remote "PAID".
func (a *Adapter) PollStatus(ctx context.Context, gatewayOrderID string) (*gateway.PaymentStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/orders/"+gatewayOrderID, nil)
	if err != nil {
		return nil, err
	}
	a.setHeaders(httpReq)

	var resp orderResponse
	if err := a.do(httpReq, &resp); err != nil {
		return nil, fmt.Errorf("cashfree: fetch order failed: %w", err)
	}

	return &gateway.PaymentStatus{
		GatewayOrderID: resp.OrderID,
		Status:         resp.OrderStatus,
		Paid:           resp.OrderStatus == "PAID",
	}, nil
}

// VerifyWebhookSignature is unused in the poll-on-return integration.
func (a *Adapter) VerifyWebhookSignature([]byte, string) bool { return false }

func (a *Adapter) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("x-client-id", a.cfg.ClientID)
	req.Header.Set("x-client-secret", a.cfg.ClientSecret)
}

func (a *Adapter) do(req *http.Request, out interface{}) error {
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}
