package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/satpay/walletd/internal/domain"
	"github.com/satpay/walletd/internal/gateway"
	"github.com/satpay/walletd/internal/service"
)

// Merchant API (v1). All routes here sit behind MerchantAuth and speak the
// coded error envelope.

type createOrderRequest struct {
	Amount   int64             `json:"amount"` // paise
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
	Customer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer"`
}

func (h *Handler) CreateMerchantOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, domain.CodeBadRequest, "malformed JSON body")
		return
	}
	if req.Amount <= 0 {
		respondWithError(w, http.StatusBadRequest, domain.CodeBadRequest, "amount must be a positive integer in paise")
		return
	}

	result, err := h.checkout.Create(r.Context(), service.CreateParams{
		AccountID: accountID(r),
		Amount:    req.Amount,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Flow:      domain.FlowCheckout,
		Customer: gateway.Customer{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Notes: req.Notes,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

func (h *Handler) GetMerchantOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.store.GetOrder(r.Context(), accountID(r), mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, orderView(order))
}

func (h *Handler) ListMerchantOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListOrders(r.Context(), accountID(r), 25)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	views := make([]map[string]interface{}, 0, len(orders))
	for i := range orders {
		views = append(views, orderView(&orders[i]))
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(views),
		"items": views,
	})
}

// orderView adds the derived amount_due field the API exposes.
func orderView(o *domain.Order) map[string]interface{} {
	return map[string]interface{}{
		"id":          o.OrderID,
		"amount":      o.Amount,
		"amount_paid": o.AmountPaid,
		"amount_due":  o.AmountDue(),
		"currency":    o.Currency,
		"receipt":     o.Receipt,
		"status":      o.Status,
		"gateway":     o.Gateway,
		"payment_id":  o.PaymentID,
		"mode":        o.Mode,
		"notes":       o.Notes,
		"created_at":  o.CreatedAt,
	}
}

type merchantVerifyRequest struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
}

// VerifyMerchantPayment checks a payment signature on behalf of a merchant
// backend. The secret comes from the gateway that created the order, the
// same trust model as the interactive flow.
func (h *Handler) VerifyMerchantPayment(w http.ResponseWriter, r *http.Request) {
	var req merchantVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, domain.CodeBadRequest, "malformed JSON body")
		return
	}
	if req.GatewayOrderID == "" || req.PaymentID == "" || req.Signature == "" {
		respondWithError(w, http.StatusBadRequest, domain.CodeBadRequest,
			"gateway_order_id, payment_id and signature are required")
		return
	}

	settlement, err := h.verifier.VerifySignature(r.Context(), req.GatewayOrderID, req.PaymentID, req.Signature)
	if err != nil {
		verificationsTotal.WithLabelValues(gateway.Razorpay, "rejected").Inc()
		respondDomainError(w, err)
		return
	}

	verificationsTotal.WithLabelValues(settlement.Order.Gateway, "verified").Inc()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"settlement": settlement,
	})
}

// RefundMerchantOrder soft-marks a paid order refunded. No provider refund
// call is made; reconciliation happens in the provider dashboard.
func (h *Handler) RefundMerchantOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]
	if err := h.store.MarkOrderRefunded(r.Context(), accountID(r), orderID); err != nil {
		respondDomainError(w, err)
		return
	}
	order, err := h.store.GetOrder(r.Context(), accountID(r), orderID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, orderView(order))
}

type createPayoutRequest struct {
	Amount        int64  `json:"amount"` // paise
	Fee           int64  `json:"fee"`
	Purpose       string `json:"purpose"`
	Beneficiary   string `json:"beneficiary_name"`
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc"`
}

// CreateMerchantPayout records a payout request. The balance check here is
// advisory; the debit happens at admin approval.
func (h *Handler) CreateMerchantPayout(w http.ResponseWriter, r *http.Request) {
	var req createPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, domain.CodeBadRequest, "malformed JSON body")
		return
	}
	if req.Amount <= 0 {
		respondWithError(w, http.StatusBadRequest, domain.CodeBadRequest, "amount must be a positive integer in paise")
		return
	}
	if req.Fee < 0 {
		respondWithError(w, http.StatusBadRequest, domain.CodeBadRequest, "fee must not be negative")
		return
	}
	if req.AccountNumber == "" || req.IFSC == "" || req.Beneficiary == "" {
		respondWithError(w, http.StatusBadRequest, domain.CodeBadRequest,
			"beneficiary_name, account_number and ifsc are required")
		return
	}

	payout, err := h.store.CreatePayout(r.Context(), &domain.Payout{
		AccountID:     accountID(r),
		Amount:        req.Amount,
		Fee:           req.Fee,
		Mode:          keyMode(r),
		Purpose:       req.Purpose,
		Beneficiary:   req.Beneficiary,
		AccountNumber: req.AccountNumber,
		IFSC:          req.IFSC,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, payout)
}

func (h *Handler) GetMerchantPayout(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, domain.CodeBadRequest, "invalid payout id")
		return
	}
	payout, err := h.store.GetPayout(r.Context(), accountID(r), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, payout)
}

func (h *Handler) ListMerchantPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.store.ListPayouts(r.Context(), accountID(r), 25)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(payouts),
		"items": payouts,
	})
}

func (h *Handler) CancelMerchantPayout(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, domain.CodeBadRequest, "invalid payout id")
		return
	}
	if err := h.store.CancelPayout(r.Context(), accountID(r), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
