package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/satpay/walletd/internal/domain"
	"github.com/satpay/walletd/internal/gateway"
)

// Admin routes: gateway settings management and the payout approval queue.

func (h *Handler) ListGateways(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListGatewaySettings(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	// Secrets never leave the server; the view carries presence flags only.
	views := make([]map[string]interface{}, 0, len(items))
	for _, g := range items {
		views = append(views, map[string]interface{}{
			"gateway":            g.Gateway,
			"key_id":             g.KeyID,
			"has_secret":         g.KeySecret != "",
			"has_webhook_secret": g.WebhookSecret != "",
			"test_mode":          g.TestMode,
			"enabled":            g.Enabled,
			"active":             g.Active,
			"updated_at":         g.UpdatedAt,
		})
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"items": views})
}

type upsertGatewayRequest struct {
	KeyID         string `json:"key_id"`
	KeySecret     string `json:"key_secret"`
	WebhookSecret string `json:"webhook_secret"`
	TestMode      bool   `json:"test_mode"`
	Enabled       bool   `json:"enabled"`
}

func (h *Handler) UpsertGateway(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["gateway"]
	switch name {
	case gateway.Razorpay, gateway.PayU, gateway.Cashfree:
	default:
		respondWithMessage(w, http.StatusBadRequest, "unsupported gateway "+name)
		return
	}

	var req upsertGatewayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	g, err := h.store.UpsertGatewaySettings(r.Context(), &domain.GatewaySettings{
		Gateway:       name,
		KeyID:         req.KeyID,
		KeySecret:     req.KeySecret,
		WebhookSecret: req.WebhookSecret,
		TestMode:      req.TestMode,
		Enabled:       req.Enabled,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, g)
}

// ActivateGateway makes one provider the active checkout gateway. The store
// deactivates every other row in the same transaction.
func (h *Handler) ActivateGateway(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["gateway"]
	if err := h.store.SetActiveGateway(r.Context(), name); err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"active": name})
}

func (h *Handler) ListPendingPayouts(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListPendingPayouts(r.Context(), 50)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(items),
		"items": items,
	})
}

type decideRequest struct {
	Remark string `json:"remark"`
}

// ApprovePayout debits the requester and completes the payout. Fails with
// INSUFFICIENT_BALANCE and no mutation when the balance no longer covers
// amount plus fee.
func (h *Handler) ApprovePayout(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithMessage(w, http.StatusBadRequest, "invalid payout id")
		return
	}
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	payout, err := h.store.ApprovePayout(r.Context(), id, req.Remark)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, payout)
}

func (h *Handler) RejectPayout(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithMessage(w, http.StatusBadRequest, "invalid payout id")
		return
	}
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	payout, err := h.store.RejectPayout(r.Context(), id, req.Remark)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, payout)
}
