// Package payu implements gateway.Processor for PayU's form-post checkout.
// PayU has no order-registration API: "creating" an order means computing
// the SHA-512 request hash and handing the client a form to POST. Settlement
// arrives as a server-to-server callback carrying a reverse-order hash.
package payu

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/satpay/walletd/internal/gateway"
	"github.com/satpay/walletd/internal/money"
)

const (
	productionURL = "https://secure.payu.in/_payment"
	sandboxURL    = "https://test.payu.in/_payment"
)

type Config struct {
	Key        string
	Salt       string
	TestMode   bool
	SuccessURL string
	FailureURL string
}

type Adapter struct {
	cfg Config
}

func New(cfg Config) *Adapter { return &Adapter{cfg: cfg} }

func (a *Adapter) Name() string { return gateway.PayU }

// CreateOrder builds the signed form-post payload. The flow type rides in
// udf1 so the callback handler can route the credit without a lookup table.
func (a *Adapter) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.CheckoutIntent, error) {
	if a.cfg.Key == "" || a.cfg.Salt == "" {
		return nil, fmt.Errorf("payu: key/salt not configured")
	}

	txnid := req.OrderID
	amount := money.ToRupees(req.Amount)
	productinfo := req.Receipt
	if productinfo == "" {
		productinfo = "wallet-" + string(req.Flow)
	}

	fields := map[string]string{
		"key":         a.cfg.Key,
		"txnid":       txnid,
		"amount":      amount,
		"productinfo": productinfo,
		"firstname":   req.Customer.Name,
		"email":       req.Customer.Email,
		"phone":       req.Customer.Phone,
		"udf1":        string(req.Flow),
		"surl":        a.cfg.SuccessURL,
		"furl":        a.cfg.FailureURL,
	}
	fields["hash"] = a.requestHash(fields)

	action := productionURL
	if a.cfg.TestMode {
		action = sandboxURL
	}

	return &gateway.CheckoutIntent{
		Gateway:        gateway.PayU,
		GatewayOrderID: txnid,
		Amount:         req.Amount,
		Currency:       req.Currency,
		FormFields:     fields,
		ActionURL:      action,
	}, nil
}

// requestHash computes
// sha512(key|txnid|amount|productinfo|firstname|email|udf1|udf2|udf3|udf4|udf5||||||salt).
func (a *Adapter) requestHash(f map[string]string) string {
	parts := []string{
		a.cfg.Key,
		f["txnid"],
		f["amount"],
		f["productinfo"],
		f["firstname"],
		f["email"],
		f["udf1"], f["udf2"], f["udf3"], f["udf4"], f["udf5"],
		"", "", "", "", "",
		a.cfg.Salt,
	}
	sum := sha512.Sum512([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// VerifyPayment is unused: PayU settles via the callback hash.
func (a *Adapter) VerifyPayment(gateway.VerifyRequest) bool { return false }

// VerifyCallback recomputes the reverse-order response hash
// sha512(salt|status||||||udf5|udf4|udf3|udf2|udf1|email|firstname|productinfo|amount|txnid|key)
// and compares it to the posted hash field in constant time.
func (a *Adapter) VerifyCallback(f map[string]string) bool {
	provided := strings.ToLower(f["hash"])
	if provided == "" {
		return false
	}
	parts := []string{
		a.cfg.Salt,
		f["status"],
		"", "", "", "", "",
		f["udf5"], f["udf4"], f["udf3"], f["udf2"], f["udf1"],
		f["email"],
		f["firstname"],
		f["productinfo"],
		f["amount"],
		f["txnid"],
		a.cfg.Key,
	}
	sum := sha512.Sum512([]byte(strings.Join(parts, "|")))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

// PollStatus is unsupported; PayU's verify API is not part of this
// integration and the callback is authoritative.
func (a *Adapter) PollStatus(context.Context, string) (*gateway.PaymentStatus, error) {
	return nil, fmt.Errorf("payu: status polling not supported")
}

// VerifyWebhookSignature is unused; the callback hash covers webhooks too.
func (a *Adapter) VerifyWebhookSignature([]byte, string) bool { return false }
