package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/satpay/walletd/internal/domain"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wallet_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "endpoint"})

	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_payment_verifications_total",
		Help: "Payment verification outcomes by gateway",
	}, []string{"gateway", "outcome"})
)

// apiError is the merchant-facing error envelope.
type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondWithError emits the coded envelope used on the merchant API.
func respondWithError(w http.ResponseWriter, status int, code, description string) {
	var e apiError
	e.Error.Code = code
	e.Error.Description = description
	respondWithJSON(w, status, e)
}

// respondWithMessage emits the ad hoc {message} body used on session routes.
func respondWithMessage(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"message": message})
}

// respondDomainError maps sentinel errors onto status + code. Unexpected
// errors become a generic 500; details stay in the server log only.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrReceivableNotFound),
		errors.Is(err, domain.ErrPayoutNotFound):
		respondWithError(w, http.StatusNotFound, domain.CodeNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		respondWithError(w, http.StatusBadRequest, domain.CodeInsufficientBalance, err.Error())
	case errors.Is(err, domain.ErrVerificationFailed):
		respondWithError(w, http.StatusBadRequest, domain.CodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, domain.CodeUnauthorized, err.Error())
	case errors.Is(err, domain.ErrAlreadyProcessed),
		errors.Is(err, domain.ErrNotPending),
		errors.Is(err, domain.ErrGatewayNotConfigured):
		respondWithError(w, http.StatusBadRequest, domain.CodeBadRequest, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, domain.CodeServerError, "internal server error")
	}
}
