package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satpay/walletd/internal/domain"
	"github.com/satpay/walletd/internal/gateway"
	"github.com/satpay/walletd/internal/service"
	"github.com/satpay/walletd/internal/store"
)

// fakeStore is an in-memory stand-in for *store.Store. It satisfies both the
// handler Store interface and the service-layer store interfaces so one fake
// backs the whole stack under test.
type fakeStore struct {
	mu          sync.Mutex
	accounts    map[uuid.UUID]*domain.Account
	creds       map[string]*domain.APICredential
	orders      map[string]*domain.Order
	receivables map[string]*domain.Receivable
	payouts     map[uuid.UUID]*domain.Payout
	txns        []domain.Transaction
	gateways    map[string]*domain.GatewaySettings
	webhookURLs map[uuid.UUID]string
	creditRefs  map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:    map[uuid.UUID]*domain.Account{},
		creds:       map[string]*domain.APICredential{},
		orders:      map[string]*domain.Order{},
		receivables: map[string]*domain.Receivable{},
		payouts:     map[uuid.UUID]*domain.Payout{},
		gateways:    map[string]*domain.GatewaySettings{},
		webhookURLs: map[uuid.UUID]string{},
		creditRefs:  map[string]bool{},
	}
}

func (f *fakeStore) CreateAccount(_ context.Context, name, email, passwordHash string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			return nil, domain.ErrInvalidCredentials
		}
	}
	a := &domain.Account{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleUser,
		Status:       domain.AccountActive,
		CreatedAt:    time.Now(),
	}
	f.accounts[a.ID] = a
	return a, nil
}

func (f *fakeStore) GetAccount(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

func (f *fakeStore) GetAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (f *fakeStore) SaveCredential(_ context.Context, accountID uuid.UUID, keyID, secretHash string, mode domain.KeyMode) (*domain.APICredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &domain.APICredential{
		ID:         uuid.New(),
		AccountID:  accountID,
		KeyID:      keyID,
		SecretHash: secretHash,
		Mode:       mode,
		Status:     domain.CredentialActive,
		CreatedAt:  time.Now(),
	}
	f.creds[keyID] = c
	return c, nil
}

func (f *fakeStore) LookupCredential(_ context.Context, keyID string) (*domain.APICredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[keyID]
	if !ok || c.Status != domain.CredentialActive {
		return nil, domain.ErrInvalidCredentials
	}
	return c, nil
}

func (f *fakeStore) SetWebhookURL(_ context.Context, accountID uuid.UUID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[accountID]; !ok {
		return domain.ErrAccountNotFound
	}
	f.webhookURLs[accountID] = url
	return nil
}

func (f *fakeStore) CreateOrder(_ context.Context, o *domain.Order) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.Status == "" {
		o.Status = domain.OrderCreated
	}
	o.CreatedAt = time.Now()
	f.orders[o.OrderID] = o
	return o, nil
}

func (f *fakeStore) GetOrder(_ context.Context, accountID uuid.UUID, orderID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.AccountID != accountID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeStore) GetOrderByOrderID(_ context.Context, orderID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeStore) GetOrderByGatewayID(_ context.Context, gatewayOrderID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.GatewayOrderID == gatewayOrderID {
			return o, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (f *fakeStore) ListOrders(_ context.Context, accountID uuid.UUID, limit int) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if o.AccountID == accountID && len(out) < limit {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkOrderAttempted(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = domain.OrderAttempted
	return nil
}

func (f *fakeStore) MarkOrderPaid(_ context.Context, orderID, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != domain.OrderCreated && o.Status != domain.OrderAttempted {
		return domain.ErrNotPending
	}
	o.Status = domain.OrderPaid
	o.PaymentID = paymentID
	o.AmountPaid = o.Amount
	o.Verified = true
	return nil
}

func (f *fakeStore) MarkOrderFailed(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = domain.OrderFailed
	return nil
}

func (f *fakeStore) MarkOrderRefunded(_ context.Context, accountID uuid.UUID, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.AccountID != accountID {
		return domain.ErrOrderNotFound
	}
	if o.Status != domain.OrderPaid {
		return domain.ErrNotPending
	}
	o.Status = domain.OrderRefunded
	return nil
}

func (f *fakeStore) Credit(_ context.Context, p store.CreditParams) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := p.AccountID.String() + "/" + p.ReferenceID
	if f.creditRefs[key] {
		return nil, domain.ErrAlreadyProcessed
	}
	f.creditRefs[key] = true
	if a, ok := f.accounts[p.AccountID]; ok {
		a.Balance += p.Amount
	}
	txn := domain.Transaction{
		ID:          uuid.New(),
		AccountID:   p.AccountID,
		ReferenceID: p.ReferenceID,
		Type:        domain.TxnCredit,
		Amount:      p.Amount,
		Status:      domain.TxnCompleted,
		Category:    p.Category,
		Gateway:     p.Gateway,
		CreatedAt:   time.Now(),
	}
	f.txns = append(f.txns, txn)
	return &txn, nil
}

func (f *fakeStore) ListTransactions(_ context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Transaction
	for _, t := range f.txns {
		if t.AccountID == accountID && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateReceivable(_ context.Context, r *domain.Receivable) (*domain.Receivable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.Status = domain.ReceivableActive
	r.CreatedAt = time.Now()
	f.receivables[r.PublicID] = r
	return r, nil
}

func (f *fakeStore) GetReceivable(_ context.Context, publicID string) (*domain.Receivable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receivables[publicID]
	if !ok {
		return nil, domain.ErrReceivableNotFound
	}
	if r.Status == domain.ReceivableActive && r.ExpiresAt != nil && r.ExpiresAt.Before(time.Now()) {
		r.Status = domain.ReceivableExpired
	}
	return r, nil
}

func (f *fakeStore) ListReceivables(_ context.Context, accountID uuid.UUID, kind domain.ReceivableKind, limit int) ([]domain.Receivable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Receivable
	for _, r := range f.receivables {
		if r.AccountID == accountID && r.Kind == kind && len(out) < limit {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkReceivablePaid(_ context.Context, publicID, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receivables[publicID]
	if !ok {
		return domain.ErrReceivableNotFound
	}
	if r.Status != domain.ReceivableActive {
		return domain.ErrNotPending
	}
	r.Status = domain.ReceivablePaid
	r.PaymentID = paymentID
	return nil
}

func (f *fakeStore) CancelReceivable(_ context.Context, accountID uuid.UUID, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receivables[publicID]
	if !ok || r.AccountID != accountID || r.Status != domain.ReceivableActive {
		return domain.ErrNotPending
	}
	r.Status = domain.ReceivableCancelled
	return nil
}

func (f *fakeStore) CreatePayout(_ context.Context, p *domain.Payout) (*domain.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[p.AccountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if a.Balance < p.TotalDebit() {
		return nil, domain.ErrInsufficientFunds
	}
	p.ID = uuid.New()
	p.Status = domain.PayoutPending
	p.CreatedAt = time.Now()
	f.payouts[p.ID] = p
	return p, nil
}

func (f *fakeStore) GetPayout(_ context.Context, accountID, payoutID uuid.UUID) (*domain.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payouts[payoutID]
	if !ok || p.AccountID != accountID {
		return nil, domain.ErrPayoutNotFound
	}
	return p, nil
}

func (f *fakeStore) ListPayouts(_ context.Context, accountID uuid.UUID, limit int) ([]domain.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Payout
	for _, p := range f.payouts {
		if p.AccountID == accountID && len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListPendingPayouts(_ context.Context, limit int) ([]domain.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Payout
	for _, p := range f.payouts {
		if p.Status == domain.PayoutPending && len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) CancelPayout(_ context.Context, accountID, payoutID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payouts[payoutID]
	if !ok || p.AccountID != accountID {
		return domain.ErrPayoutNotFound
	}
	if p.Status != domain.PayoutPending {
		return domain.ErrNotPending
	}
	p.Status = domain.PayoutCancelled
	return nil
}

func (f *fakeStore) ApprovePayout(_ context.Context, payoutID uuid.UUID, remark string) (*domain.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payouts[payoutID]
	if !ok {
		return nil, domain.ErrPayoutNotFound
	}
	if p.Status != domain.PayoutPending {
		return nil, domain.ErrNotPending
	}
	a, ok := f.accounts[p.AccountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if a.Balance < p.TotalDebit() {
		return nil, domain.ErrInsufficientFunds
	}
	a.Balance -= p.TotalDebit()
	now := time.Now()
	p.Status = domain.PayoutApproved
	p.Remark = remark
	p.DecidedAt = &now
	return p, nil
}

func (f *fakeStore) RejectPayout(_ context.Context, payoutID uuid.UUID, remark string) (*domain.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payouts[payoutID]
	if !ok {
		return nil, domain.ErrPayoutNotFound
	}
	if p.Status != domain.PayoutPending {
		return nil, domain.ErrNotPending
	}
	now := time.Now()
	p.Status = domain.PayoutRejected
	p.Remark = remark
	p.DecidedAt = &now
	return p, nil
}

func (f *fakeStore) ListGatewaySettings(context.Context) ([]domain.GatewaySettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.GatewaySettings
	for _, g := range f.gateways {
		out = append(out, *g)
	}
	return out, nil
}

func (f *fakeStore) UpsertGatewaySettings(_ context.Context, g *domain.GatewaySettings) (*domain.GatewaySettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g.UpdatedAt = time.Now()
	f.gateways[g.Gateway] = g
	return g, nil
}

func (f *fakeStore) SetActiveGateway(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.gateways[name]
	if !ok || !target.Enabled || !target.Configured() {
		return domain.ErrGatewayNotConfigured
	}
	for _, g := range f.gateways {
		g.Active = false
	}
	target.Active = true
	return nil
}

// fakeProcessor scripts gateway behaviour for handler tests.
type fakeProcessor struct {
	name      string
	createErr error
	verifyOK  bool
}

func (f *fakeProcessor) Name() string { return f.name }

func (f *fakeProcessor) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.CheckoutIntent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &gateway.CheckoutIntent{
		Gateway:        f.name,
		GatewayOrderID: "gw_" + req.OrderID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		KeyID:          "rzp_test_key",
	}, nil
}

func (f *fakeProcessor) VerifyPayment(gateway.VerifyRequest) bool   { return f.verifyOK }
func (f *fakeProcessor) VerifyCallback(map[string]string) bool      { return false }
func (f *fakeProcessor) VerifyWebhookSignature([]byte, string) bool { return f.verifyOK }

func (f *fakeProcessor) PollStatus(context.Context, string) (*gateway.PaymentStatus, error) {
	return &gateway.PaymentStatus{Status: "ACTIVE"}, nil
}

type fakeResolver struct {
	proc *fakeProcessor
}

func (f *fakeResolver) Active(context.Context) (gateway.Processor, *domain.GatewaySettings, error) {
	return f.proc, &domain.GatewaySettings{Gateway: f.proc.name, TestMode: true, Enabled: true, Active: true}, nil
}

func (f *fakeResolver) ForGateway(_ context.Context, name string) (gateway.Processor, *domain.GatewaySettings, error) {
	if name != f.proc.name {
		return nil, nil, domain.ErrGatewayNotConfigured
	}
	return f.proc, &domain.GatewaySettings{Gateway: name, Enabled: true}, nil
}

func (f *fakeResolver) RazorpayEnvFallback() (gateway.Processor, *domain.GatewaySettings, bool) {
	return nil, nil, false
}

const testJWTSecret = "test-jwt-secret"

// newTestHandler wires the handler onto the fake store with a scriptable
// gateway processor behind the checkout and verifier services.
func newTestHandler(fs *fakeStore, proc *fakeProcessor) *Handler {
	log := zap.NewNop()
	resolver := &fakeResolver{proc: proc}
	checkout := service.NewCheckout(fs, fs, resolver, domain.ModeTest, log)
	verifier := service.NewVerifier(fs, fs, fs, resolver, nil, log)
	return NewHandler(fs, checkout, verifier, testJWTSecret, log)
}
