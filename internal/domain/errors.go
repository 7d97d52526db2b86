package domain

import "errors"

// Sentinel errors shared across store, service and API layers. Handlers
// switch on these to pick HTTP status and error code.
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrReceivableNotFound   = errors.New("receivable not found")
	ErrPayoutNotFound       = errors.New("payout not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrAlreadyProcessed     = errors.New("payment already processed")
	ErrVerificationFailed   = errors.New("signature verification failed")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrNotPending           = errors.New("not in a pending state")
	ErrGatewayNotConfigured = errors.New("no payment gateway is configured and active")
)

// API error codes exposed on the merchant-facing surface.
const (
	CodeBadRequest          = "BAD_REQUEST_ERROR"
	CodeServerError         = "SERVER_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotFound            = "NOT_FOUND_ERROR"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
)
