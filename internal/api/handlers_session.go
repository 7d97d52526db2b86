package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/satpay/walletd/internal/domain"
	"github.com/satpay/walletd/internal/gateway"
	"github.com/satpay/walletd/internal/service"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		respondWithMessage(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondWithMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	acc, err := h.store.CreateAccount(r.Context(), req.Name, req.Email, string(hash))
	if err != nil {
		respondWithMessage(w, http.StatusBadRequest, "email already registered")
		return
	}

	respondWithJSON(w, http.StatusCreated, acc)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	acc, err := h.store.GetAccountByEmail(r.Context(), req.Email)
	if err != nil {
		respondWithMessage(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if acc.Status != domain.AccountActive {
		respondWithMessage(w, http.StatusUnauthorized, "account is suspended")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)) != nil {
		respondWithMessage(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  acc.ID.String(),
		"role": string(acc.Role),
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		respondWithMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"token":   signed,
		"account": acc,
	})
}

// Me returns the caller's account, including the live balance.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	acc, err := h.store.GetAccount(r.Context(), accountID(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, acc)
}

// GenerateAPIKey mints a merchant key pair. The plaintext secret appears in
// this response only; the store keeps its SHA-256 hash.
func (h *Handler) GenerateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode domain.KeyMode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Mode != domain.ModeTest && req.Mode != domain.ModeLive) {
		respondWithMessage(w, http.StatusBadRequest, "mode must be test or live")
		return
	}

	keyID := domain.NewPublicID("sat_" + string(req.Mode))
	secret := domain.NewPublicID("sec")
	sum := sha256.Sum256([]byte(secret))

	cred, err := h.store.SaveCredential(r.Context(), accountID(r), keyID, hex.EncodeToString(sum[:]), req.Mode)
	if err != nil {
		respondWithMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"key_id":     cred.KeyID,
		"secret_key": secret,
		"mode":       cred.Mode,
	})
}

// SetWebhookURL registers the endpoint that receives settlement events,
// signed with X-Wallet-Signature. An empty URL clears it.
func (h *Handler) SetWebhookURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := h.store.SetWebhookURL(r.Context(), accountID(r), req.URL); err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithMessage(w, http.StatusOK, "webhook url updated")
}

// ListTransactions returns the caller's recent ledger entries.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.store.ListTransactions(r.Context(), accountID(r), 50)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"items": txns})
}

type depositRequest struct {
	Amount string `json:"amount"` // major units, e.g. "500.00"
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

// CreateDeposit opens a checkout that credits the caller's own wallet.
func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	paise, err := parseAmount(req.Amount)
	if err != nil {
		respondWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.checkout.Create(r.Context(), service.CreateParams{
		AccountID: accountID(r),
		Amount:    paise,
		Flow:      domain.FlowDeposit,
		Customer:  gateway.Customer{Name: req.Name, Email: req.Email, Phone: req.Phone},
	})
	if err != nil {
		h.log.Error("deposit checkout failed", zap.Error(err))
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

type verifyDepositRequest struct {
	GatewayOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
}

// VerifyDeposit settles a Razorpay-style client-returned signature claim.
func (h *Handler) VerifyDeposit(w http.ResponseWriter, r *http.Request) {
	var req verifyDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.GatewayOrderID == "" || req.PaymentID == "" || req.Signature == "" {
		respondWithMessage(w, http.StatusBadRequest, "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
		return
	}

	settlement, err := h.verifier.VerifySignature(r.Context(), req.GatewayOrderID, req.PaymentID, req.Signature)
	if err != nil {
		verificationsTotal.WithLabelValues(gateway.Razorpay, "rejected").Inc()
		respondDomainError(w, err)
		return
	}

	verificationsTotal.WithLabelValues(gateway.Razorpay, "verified").Inc()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"settlement": settlement,
	})
}
