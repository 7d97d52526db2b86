// Package providers wires the concrete gateway adapters into a
// gateway.Factory. Kept out of package gateway to avoid an import cycle.
package providers

import (
	"fmt"

	"github.com/satpay/walletd/internal/domain"
	"github.com/satpay/walletd/internal/gateway"
	"github.com/satpay/walletd/internal/gateway/cashfree"
	"github.com/satpay/walletd/internal/gateway/payu"
	"github.com/satpay/walletd/internal/gateway/razorpay"
)

// Factory builds the real adapter for a settings row. Unknown gateway names
// are a configuration error, never a silent fallback to another provider.
func Factory() gateway.Factory {
	return func(cfg *domain.GatewaySettings, urls gateway.URLs) (gateway.Processor, error) {
		if !cfg.Configured() {
			return nil, fmt.Errorf("gateway %s: credentials are blank, fix them in admin settings: %w",
				cfg.Gateway, domain.ErrGatewayNotConfigured)
		}
		switch cfg.Gateway {
		case gateway.Razorpay:
			return razorpay.New(razorpay.Config{
				KeyID:         cfg.KeyID,
				KeySecret:     cfg.KeySecret,
				WebhookSecret: cfg.WebhookSecret,
			}), nil
		case gateway.PayU:
			return payu.New(payu.Config{
				Key:        cfg.KeyID,
				Salt:       cfg.KeySecret,
				TestMode:   cfg.TestMode,
				SuccessURL: urls.SuccessURL,
				FailureURL: urls.FailureURL,
			}), nil
		case gateway.Cashfree:
			return cashfree.New(cashfree.Config{
				ClientID:     cfg.KeyID,
				ClientSecret: cfg.KeySecret,
				TestMode:     cfg.TestMode,
				ReturnURL:    urls.ReturnURL,
			}), nil
		default:
			return nil, fmt.Errorf("unsupported gateway %q", cfg.Gateway)
		}
	}
}
