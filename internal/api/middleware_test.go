package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/satpay/walletd/internal/domain"
)

func issueToken(t *testing.T, secret string, accountID uuid.UUID, role domain.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  accountID.String(),
		"role": string(role),
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

// seedMerchant registers an account with an active test-mode key and returns
// the account and the plaintext secret.
func seedMerchant(t *testing.T, fs *fakeStore) (*domain.Account, string, string) {
	t.Helper()
	acc, err := fs.CreateAccount(context.Background(), "Merchant", "m@example.com", "x")
	if err != nil {
		t.Fatal(err)
	}
	acc.Balance = 100000

	keyID := "sat_test_abc123"
	secret := "sec_plain_secret"
	sum := sha256.Sum256([]byte(secret))
	if _, err := fs.SaveCredential(context.Background(), acc.ID, keyID, hex.EncodeToString(sum[:]), domain.ModeTest); err != nil {
		t.Fatal(err)
	}
	return acc, keyID, secret
}

func TestMerchantAuth(t *testing.T) {
	fs := newFakeStore()
	acc, keyID, secret := seedMerchant(t, fs)
	h := newTestHandler(fs, &fakeProcessor{name: "razorpay"})

	var gotID uuid.UUID
	var gotMode domain.KeyMode
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = accountID(r)
		gotMode = keyMode(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	req.SetBasicAuth(keyID, secret)
	rr := httptest.NewRecorder()
	h.MerchantAuth(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if gotID != acc.ID {
		t.Errorf("context account = %s, want %s", gotID, acc.ID)
	}
	if gotMode != domain.ModeTest {
		t.Errorf("context mode = %q, want test", gotMode)
	}
}

func TestMerchantAuthRejections(t *testing.T) {
	fs := newFakeStore()
	_, keyID, secret := seedMerchant(t, fs)
	h := newTestHandler(fs, &fakeProcessor{name: "razorpay"})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached past failed auth")
	})

	cases := []struct {
		name     string
		keyID    string
		secret   string
		withAuth bool
	}{
		{"missing credentials", "", "", false},
		{"wrong secret", keyID, "not-the-secret", true},
		{"unknown key", "sat_test_nope", secret, true},
		{"bad prefix", "pk_test_stripe", secret, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
			if c.withAuth {
				req.SetBasicAuth(c.keyID, c.secret)
			}
			rr := httptest.NewRecorder()
			h.MerchantAuth(next).ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rr.Code)
			}
		})
	}
}

func TestSessionAuth(t *testing.T) {
	fs := newFakeStore()
	h := newTestHandler(fs, &fakeProcessor{name: "razorpay"})
	id := uuid.New()

	var gotID uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = accountID(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, testJWTSecret, id, domain.RoleUser))
	rr := httptest.NewRecorder()
	h.SessionAuth(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if gotID != id {
		t.Errorf("context account = %s, want %s", gotID, id)
	}
}

func TestSessionAuthRejections(t *testing.T) {
	fs := newFakeStore()
	h := newTestHandler(fs, &fakeProcessor{name: "razorpay"})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached past failed auth")
	})

	cases := []struct {
		name  string
		token string
	}{
		{"no header", ""},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong secret", "Bearer " + issueToken(t, "other-secret", uuid.New(), domain.RoleUser)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if c.token != "" {
				req.Header.Set("Authorization", c.token)
			}
			rr := httptest.NewRecorder()
			h.SessionAuth(next).ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rr.Code)
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	fs := newFakeStore()
	h := newTestHandler(fs, &fakeProcessor{name: "razorpay"})

	reached := false
	chain := h.SessionAuth(h.AdminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})))

	req := httptest.NewRequest(http.MethodGet, "/admin/gateways", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, testJWTSecret, uuid.New(), domain.RoleUser))
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized || reached {
		t.Errorf("user role passed the admin gate: status %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/gateways", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, testJWTSecret, uuid.New(), domain.RoleAdmin))
	rr = httptest.NewRecorder()
	chain.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !reached {
		t.Errorf("admin role blocked: status %d", rr.Code)
	}
}

func TestRequestMetricsCoverEveryRoute(t *testing.T) {
	fs := newFakeStore()
	h := newTestHandler(fs, &fakeProcessor{name: "razorpay"})
	router := h.Router()

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/health", "200"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/health", "200")); got != before+1 {
		t.Errorf("/health counter = %v, want %v", got, before+1)
	}

	// Parameterized paths are labeled by route template, one series per
	// route rather than one per id.
	before = testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/checkout/{id}", "404"))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/checkout/plink_missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/checkout/{id}", "404")); got != before+1 {
		t.Errorf("/checkout/{id} counter = %v, want %v", got, before+1)
	}
}
