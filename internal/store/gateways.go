package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/satpay/walletd/internal/domain"
)

const gatewayColumns = `id, gateway, key_id, key_secret, webhook_secret, test_mode, enabled, active, updated_at`

func scanGateway(row pgx.Row) (*domain.GatewaySettings, error) {
	var g domain.GatewaySettings
	err := row.Scan(&g.ID, &g.Gateway, &g.KeyID, &g.KeySecret, &g.WebhookSecret,
		&g.TestMode, &g.Enabled, &g.Active, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ActiveGatewaySettings returns the single active, enabled, configured
// gateway. A row flagged active but unusable is deactivated here rather than
// returned, so a stale active pointer can never break checkout.
func (s *Store) ActiveGatewaySettings(ctx context.Context) (*domain.GatewaySettings, error) {
	g, err := scanGateway(s.Db.QueryRow(ctx,
		`SELECT `+gatewayColumns+` FROM gateway_settings WHERE active = TRUE`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGatewayNotConfigured
	}
	if err != nil {
		return nil, err
	}

	if !g.Enabled || !g.Configured() {
		if _, derr := s.Db.Exec(ctx,
			`UPDATE gateway_settings SET active = FALSE WHERE id = $1`, g.ID); derr != nil {
			return nil, fmt.Errorf("deactivating unusable gateway %s: %w", g.Gateway, derr)
		}
		return nil, domain.ErrGatewayNotConfigured
	}
	return g, nil
}

// GatewaySettings fetches a provider's row regardless of the active flag.
func (s *Store) GatewaySettings(ctx context.Context, name string) (*domain.GatewaySettings, error) {
	g, err := scanGateway(s.Db.QueryRow(ctx,
		`SELECT `+gatewayColumns+` FROM gateway_settings WHERE gateway = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGatewayNotConfigured
	}
	return g, err
}

// ListGatewaySettings returns all provider rows for the admin screen.
func (s *Store) ListGatewaySettings(ctx context.Context) ([]domain.GatewaySettings, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT `+gatewayColumns+` FROM gateway_settings ORDER BY gateway`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GatewaySettings
	for rows.Next() {
		g, err := scanGateway(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// UpsertGatewaySettings creates or updates a provider's credentials. Saving
// blank credentials over an active row also clears the active flag.
func (s *Store) UpsertGatewaySettings(ctx context.Context, g *domain.GatewaySettings) (*domain.GatewaySettings, error) {
	return scanGateway(s.Db.QueryRow(ctx, `
		INSERT INTO gateway_settings (gateway, key_id, key_secret, webhook_secret, test_mode, enabled, active)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		ON CONFLICT (gateway) DO UPDATE SET
			key_id = EXCLUDED.key_id,
			key_secret = EXCLUDED.key_secret,
			webhook_secret = EXCLUDED.webhook_secret,
			test_mode = EXCLUDED.test_mode,
			enabled = EXCLUDED.enabled,
			active = gateway_settings.active
				AND EXCLUDED.enabled
				AND EXCLUDED.key_id <> '' AND EXCLUDED.key_secret <> '',
			updated_at = now()
		RETURNING `+gatewayColumns,
		g.Gateway, g.KeyID, g.KeySecret, g.WebhookSecret, g.TestMode, g.Enabled))
}

// SetActiveGateway activates one provider and deactivates the rest in a
// single transaction. The target must be enabled and fully configured.
func (s *Store) SetActiveGateway(ctx context.Context, name string) error {
	tx, err := s.Db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	g, err := scanGateway(tx.QueryRow(ctx,
		`SELECT `+gatewayColumns+` FROM gateway_settings WHERE gateway = $1 FOR UPDATE`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrGatewayNotConfigured
	}
	if err != nil {
		return err
	}
	if !g.Enabled || !g.Configured() {
		return fmt.Errorf("gateway %s is not enabled or not configured: %w",
			name, domain.ErrGatewayNotConfigured)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE gateway_settings SET active = FALSE WHERE gateway <> $1`, name); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE gateway_settings SET active = TRUE, updated_at = now() WHERE gateway = $1`, name); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
