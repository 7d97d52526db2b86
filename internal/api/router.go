package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires every surface: public checkout reads, session routes, the
// merchant v1 API, provider callbacks and admin settings.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.RequestLogger)

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// Public: auth and customer-facing checkout.
	r.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/checkout/{id}", h.GetReceivable).Methods(http.MethodGet)
	r.HandleFunc("/checkout/{id}/pay", h.ReceivableCheckout).Methods(http.MethodPost)

	// Provider callbacks. Unauthenticated by design; each handler verifies
	// its own signature or polls the provider.
	r.HandleFunc("/webhooks/razorpay", h.RazorpayWebhook).Methods(http.MethodPost)
	r.HandleFunc("/webhooks/payu", h.PayUCallback).Methods(http.MethodPost)
	r.HandleFunc("/webhooks/cashfree/return", h.CashfreeReturn).Methods(http.MethodGet)

	// Session routes (bearer JWT).
	session := r.PathPrefix("/me").Subrouter()
	session.Use(h.SessionAuth)
	session.HandleFunc("", h.Me).Methods(http.MethodGet)
	session.HandleFunc("/keys", h.GenerateAPIKey).Methods(http.MethodPost)
	session.HandleFunc("/webhook", h.SetWebhookURL).Methods(http.MethodPut)
	session.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	session.HandleFunc("/deposits", h.CreateDeposit).Methods(http.MethodPost)
	session.HandleFunc("/deposits/verify", h.VerifyDeposit).Methods(http.MethodPost)
	session.HandleFunc("/payment-links", h.CreatePaymentLink).Methods(http.MethodPost)
	session.HandleFunc("/payment-links", h.ListPaymentLinks).Methods(http.MethodGet)
	session.HandleFunc("/qr-codes", h.CreateQRCode).Methods(http.MethodPost)
	session.HandleFunc("/qr-codes", h.ListQRCodes).Methods(http.MethodGet)
	session.HandleFunc("/receivables/{id}/cancel", h.CancelReceivable).Methods(http.MethodPost)

	// Merchant API (HTTP Basic with key id / secret key).
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(h.MerchantAuth)
	v1.HandleFunc("/orders", h.CreateMerchantOrder).Methods(http.MethodPost)
	v1.HandleFunc("/orders", h.ListMerchantOrders).Methods(http.MethodGet)
	v1.HandleFunc("/orders/{id}", h.GetMerchantOrder).Methods(http.MethodGet)
	v1.HandleFunc("/orders/{id}/refund", h.RefundMerchantOrder).Methods(http.MethodPost)
	v1.HandleFunc("/payments/verify", h.VerifyMerchantPayment).Methods(http.MethodPost)
	v1.HandleFunc("/payouts", h.CreateMerchantPayout).Methods(http.MethodPost)
	v1.HandleFunc("/payouts", h.ListMerchantPayouts).Methods(http.MethodGet)
	v1.HandleFunc("/payouts/{id}", h.GetMerchantPayout).Methods(http.MethodGet)
	v1.HandleFunc("/payouts/{id}/cancel", h.CancelMerchantPayout).Methods(http.MethodPost)

	// Admin (JWT + admin role).
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(h.SessionAuth, h.AdminOnly)
	admin.HandleFunc("/gateways", h.ListGateways).Methods(http.MethodGet)
	admin.HandleFunc("/gateways/{gateway}", h.UpsertGateway).Methods(http.MethodPut)
	admin.HandleFunc("/gateways/{gateway}/activate", h.ActivateGateway).Methods(http.MethodPost)
	admin.HandleFunc("/payouts", h.ListPendingPayouts).Methods(http.MethodGet)
	admin.HandleFunc("/payouts/{id}/approve", h.ApprovePayout).Methods(http.MethodPost)
	admin.HandleFunc("/payouts/{id}/reject", h.RejectPayout).Methods(http.MethodPost)

	return r
}
