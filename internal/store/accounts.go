package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/satpay/walletd/internal/domain"
)

const accountColumns = `id, name, email, password_hash, role, status, balance, created_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.Status, &a.Balance, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAccount registers a wallet holder with a zero balance.
func (s *Store) CreateAccount(ctx context.Context, name, email, passwordHash string) (*domain.Account, error) {
	row := s.Db.QueryRow(ctx, `
		INSERT INTO accounts (name, email, password_hash, role, status, balance)
		VALUES ($1, $2, $3, 'user', 'active', 0)
		RETURNING `+accountColumns,
		name, email, passwordHash)

	acc, err := scanAccount(row)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrInvalidCredentials)
	}
	return acc, err
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return scanAccount(s.Db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return scanAccount(s.Db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
}

// SaveCredential stores a merchant key pair. Only the secret's SHA-256 hash
// is persisted.
func (s *Store) SaveCredential(ctx context.Context, accountID uuid.UUID, keyID, secretHash string, mode domain.KeyMode) (*domain.APICredential, error) {
	var c domain.APICredential
	err := s.Db.QueryRow(ctx, `
		INSERT INTO api_credentials (account_id, key_id, secret_hash, mode, status)
		VALUES ($1, $2, $3, $4, 'active')
		RETURNING id, account_id, key_id, secret_hash, mode, status, created_at`,
		accountID, keyID, secretHash, mode,
	).Scan(&c.ID, &c.AccountID, &c.KeyID, &c.SecretHash, &c.Mode, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save credential: %w", err)
	}
	return &c, nil
}

// LookupCredential fetches an active credential by key id. Revoked keys are
// invisible to auth.
func (s *Store) LookupCredential(ctx context.Context, keyID string) (*domain.APICredential, error) {
	var c domain.APICredential
	err := s.Db.QueryRow(ctx, `
		SELECT id, account_id, key_id, secret_hash, mode, status, created_at
		FROM api_credentials
		WHERE key_id = $1 AND status = 'active'`,
		keyID,
	).Scan(&c.ID, &c.AccountID, &c.KeyID, &c.SecretHash, &c.Mode, &c.Status, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RevokeCredential flips a key to revoked without deleting it.
func (s *Store) RevokeCredential(ctx context.Context, accountID uuid.UUID, keyID string) error {
	tag, err := s.Db.Exec(ctx, `
		UPDATE api_credentials SET status = 'revoked'
		WHERE account_id = $1 AND key_id = $2`,
		accountID, keyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidCredentials
	}
	return nil
}
