package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/satpay/walletd/internal/domain"
)

type ctxKey int

const (
	ctxAccountID ctxKey = iota
	ctxRole
	ctxKeyMode
)

// accountID pulls the authenticated account out of the request context.
func accountID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(ctxAccountID).(uuid.UUID)
	return id
}

func keyMode(r *http.Request) domain.KeyMode {
	m, _ := r.Context().Value(ctxKeyMode).(domain.KeyMode)
	return m
}

// RequestLogger logs one line per request with zap and records the request
// counter and latency histogram. The metric endpoint label is the route
// template, so /v1/orders/{id} stays one series per route, not per order.
func (h *Handler) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		elapsed := time.Since(start)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}
		httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(sw.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, endpoint).Observe(elapsed.Seconds())

		h.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", elapsed))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// SessionAuth validates the bearer JWT issued at login and stores the
// account id and role on the context.
func (h *Handler) SessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			respondWithError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "missing bearer token")
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			return []byte(h.jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			respondWithError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "invalid token claims")
			return
		}
		sub, _ := claims["sub"].(string)
		id, err := uuid.Parse(sub)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "invalid token subject")
			return
		}
		role, _ := claims["role"].(string)

		ctx := context.WithValue(r.Context(), ctxAccountID, id)
		ctx = context.WithValue(ctx, ctxRole, domain.Role(role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly gates admin routes; it must run inside SessionAuth.
func (h *Handler) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if role, _ := r.Context().Value(ctxRole).(domain.Role); role != domain.RoleAdmin {
			respondWithError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MerchantAuth implements HTTP Basic with key id and secret key. Key ids are
// prefixed sat_test_/sat_live_; the stored secret is a SHA-256 hash and the
// comparison is constant-time.
func (h *Handler) MerchantAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keyID, secret, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="walletd"`)
			respondWithError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "missing API credentials")
			return
		}

		mode := domain.ModeLive
		switch {
		case strings.HasPrefix(keyID, "sat_test_"):
			mode = domain.ModeTest
		case strings.HasPrefix(keyID, "sat_live_"):
		default:
			respondWithError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unrecognized key id format")
			return
		}

		cred, err := h.store.LookupCredential(r.Context(), keyID)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "invalid API credentials")
			return
		}

		sum := sha256.Sum256([]byte(secret))
		provided := hex.EncodeToString(sum[:])
		if subtle.ConstantTimeCompare([]byte(provided), []byte(cred.SecretHash)) != 1 {
			respondWithError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "invalid API credentials")
			return
		}

		ctx := context.WithValue(r.Context(), ctxAccountID, cred.AccountID)
		ctx = context.WithValue(ctx, ctxKeyMode, mode)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
