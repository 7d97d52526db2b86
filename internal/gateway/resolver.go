package gateway

import (
	"context"
	"errors"

	"github.com/satpay/walletd/internal/config"
	"github.com/satpay/walletd/internal/domain"
)

// SettingsSource is the slice of the store the resolver needs. Settings are
// loaded on every resolution so an admin switch takes effect immediately and
// no replica can hold a stale active pointer.
type SettingsSource interface {
	ActiveGatewaySettings(ctx context.Context) (*domain.GatewaySettings, error)
	GatewaySettings(ctx context.Context, name string) (*domain.GatewaySettings, error)
}

// Factory builds a Processor from a settings row. Wired in cmd/api; tests
// substitute fakes.
type Factory func(cfg *domain.GatewaySettings, urls URLs) (Processor, error)

// URLs are the redirect endpoints handed to form-post and drop-in flows.
type URLs struct {
	SuccessURL string
	FailureURL string
	ReturnURL  string
}

// Resolver picks the active processor at request time.
type Resolver struct {
	settings SettingsSource
	factory  Factory
	urls     URLs
	fallback config.RazorpayFallback
}

func NewResolver(settings SettingsSource, factory Factory, urls URLs, fallback config.RazorpayFallback) *Resolver {
	return &Resolver{settings: settings, factory: factory, urls: urls, fallback: fallback}
}

// Active resolves the currently active gateway. When no row is configured
// the legacy Razorpay environment credentials are used, preserving checkouts
// on installs that predate the admin settings screen.
func (r *Resolver) Active(ctx context.Context) (Processor, *domain.GatewaySettings, error) {
	settings, err := r.settings.ActiveGatewaySettings(ctx)
	if err != nil {
		// Only "nothing configured" falls through to the legacy credentials.
		// A transient settings-read failure must not hand the customer a
		// different provider's checkout than the one the admin activated.
		if errors.Is(err, domain.ErrGatewayNotConfigured) {
			if fb, ok := r.razorpayFallback(); ok {
				return fb.proc, fb.settings, nil
			}
		}
		return nil, nil, err
	}
	proc, err := r.factory(settings, r.urls)
	if err != nil {
		return nil, nil, err
	}
	return proc, settings, nil
}

// ForGateway resolves a named gateway regardless of the active flag. Used by
// verification, which must check against the gateway that created the order
// even if the admin has since switched the active processor.
func (r *Resolver) ForGateway(ctx context.Context, name string) (Processor, *domain.GatewaySettings, error) {
	settings, err := r.settings.GatewaySettings(ctx, name)
	if err != nil {
		if name == Razorpay && errors.Is(err, domain.ErrGatewayNotConfigured) {
			if fb, ok := r.razorpayFallback(); ok {
				return fb.proc, fb.settings, nil
			}
		}
		return nil, nil, err
	}
	proc, err := r.factory(settings, r.urls)
	if err != nil {
		return nil, nil, err
	}
	return proc, settings, nil
}

// RazorpayEnvFallback exposes the legacy-credential retry used when a
// configured Razorpay row fails at order-creation time.
func (r *Resolver) RazorpayEnvFallback() (Processor, *domain.GatewaySettings, bool) {
	fb, ok := r.razorpayFallback()
	if !ok {
		return nil, nil, false
	}
	return fb.proc, fb.settings, true
}

type resolved struct {
	proc     Processor
	settings *domain.GatewaySettings
}

func (r *Resolver) razorpayFallback() (resolved, bool) {
	if !r.fallback.Configured() {
		return resolved{}, false
	}
	settings := &domain.GatewaySettings{
		Gateway:       Razorpay,
		KeyID:         r.fallback.KeyID,
		KeySecret:     r.fallback.KeySecret,
		WebhookSecret: r.fallback.WebhookSecret,
		Enabled:       true,
		Active:        true,
	}
	proc, err := r.factory(settings, r.urls)
	if err != nil {
		return resolved{}, false
	}
	return resolved{proc: proc, settings: settings}, true
}
