package api

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/satpay/walletd/internal/gateway"
)

// RazorpayWebhook consumes provider webhooks. The signature is HMAC-SHA256
// over the raw body, so the body must be read before any parsing.
func (h *Handler) RazorpayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondWithMessage(w, http.StatusBadRequest, "unreadable body")
		return
	}

	settlement, err := h.verifier.RazorpayWebhook(r.Context(), body, r.Header.Get("X-Razorpay-Signature"))
	if err != nil {
		verificationsTotal.WithLabelValues(gateway.Razorpay, "webhook_rejected").Inc()
		h.log.Warn("razorpay webhook rejected", zap.Error(err))
		respondDomainError(w, err)
		return
	}

	if settlement != nil {
		verificationsTotal.WithLabelValues(gateway.Razorpay, "webhook_settled").Inc()
	}
	// Always 200 on authenticated events so the provider stops retrying.
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PayUCallback consumes the server-to-server form POST after a PayU payment.
func (h *Handler) PayUCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "malformed form body")
		return
	}
	fields := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		fields[k] = r.PostForm.Get(k)
	}

	settlement, err := h.verifier.PayUCallback(r.Context(), fields)
	if err != nil {
		verificationsTotal.WithLabelValues(gateway.PayU, "rejected").Inc()
		h.log.Warn("payu callback rejected",
			zap.String("txnid", fields["txnid"]), zap.Error(err))
		respondDomainError(w, err)
		return
	}

	verificationsTotal.WithLabelValues(gateway.PayU, "verified").Inc()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"settlement": settlement,
	})
}

// CashfreeReturn verifies a Cashfree checkout by polling the provider for
// the authoritative order status.
func (h *Handler) CashfreeReturn(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		respondWithMessage(w, http.StatusBadRequest, "order_id query parameter is required")
		return
	}

	settlement, err := h.verifier.PollAndSettle(r.Context(), orderID)
	if err != nil {
		verificationsTotal.WithLabelValues(gateway.Cashfree, "rejected").Inc()
		respondDomainError(w, err)
		return
	}

	verificationsTotal.WithLabelValues(gateway.Cashfree, "verified").Inc()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"settlement": settlement,
	})
}
