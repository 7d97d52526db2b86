package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/satpay/walletd/internal/domain"
	"github.com/satpay/walletd/internal/gateway"
)

type createReceivableRequest struct {
	Amount      string     `json:"amount"` // major units
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

func (h *Handler) createReceivable(w http.ResponseWriter, r *http.Request, kind domain.ReceivableKind, prefix string) {
	var req createReceivableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	paise, err := parseAmount(req.Amount)
	if err != nil {
		respondWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		respondWithMessage(w, http.StatusBadRequest, "expires_at is in the past")
		return
	}

	rec, err := h.store.CreateReceivable(r.Context(), &domain.Receivable{
		PublicID:    domain.NewPublicID(prefix),
		Kind:        kind,
		AccountID:   accountID(r),
		Amount:      paise,
		Description: req.Description,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, rec)
}

// CreatePaymentLink mints a shareable checkout link.
func (h *Handler) CreatePaymentLink(w http.ResponseWriter, r *http.Request) {
	h.createReceivable(w, r, domain.KindPaymentLink, "plink")
}

// CreateQRCode mints a QR-code receivable.
func (h *Handler) CreateQRCode(w http.ResponseWriter, r *http.Request) {
	h.createReceivable(w, r, domain.KindQRCode, "qr")
}

func (h *Handler) ListPaymentLinks(w http.ResponseWriter, r *http.Request) {
	h.listReceivables(w, r, domain.KindPaymentLink)
}

func (h *Handler) ListQRCodes(w http.ResponseWriter, r *http.Request) {
	h.listReceivables(w, r, domain.KindQRCode)
}

func (h *Handler) listReceivables(w http.ResponseWriter, r *http.Request, kind domain.ReceivableKind) {
	items, err := h.store.ListReceivables(r.Context(), accountID(r), kind, 25)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(items),
		"items": items,
	})
}

// GetReceivable is the public checkout-page read. Expiry applies lazily on
// this read; there is no background sweep.
func (h *Handler) GetReceivable(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetReceivable(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}

func (h *Handler) CancelReceivable(w http.ResponseWriter, r *http.Request) {
	if err := h.store.CancelReceivable(r.Context(), accountID(r), mux.Vars(r)["id"]); err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type receivableCheckoutRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ReceivableCheckout opens a gateway checkout for a payment link or QR code.
// This is the public, customer-facing entry point.
func (h *Handler) ReceivableCheckout(w http.ResponseWriter, r *http.Request) {
	var req receivableCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	result, err := h.checkout.CreateForReceivable(r.Context(), mux.Vars(r)["id"],
		gateway.Customer{Name: req.Name, Email: req.Email, Phone: req.Phone})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, result)
}
