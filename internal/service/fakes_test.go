package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/satpay/walletd/internal/domain"
	"github.com/satpay/walletd/internal/gateway"
	"github.com/satpay/walletd/internal/store"
)

// fakeOrders is an in-memory OrderStore keyed by our order id.
type fakeOrders struct {
	orders  map[string]*domain.Order
	created []*domain.Order
}

func newFakeOrders(orders ...*domain.Order) *fakeOrders {
	f := &fakeOrders{orders: map[string]*domain.Order{}}
	for _, o := range orders {
		f.orders[o.OrderID] = o
	}
	return f
}

func (f *fakeOrders) CreateOrder(_ context.Context, o *domain.Order) (*domain.Order, error) {
	if o.Status == "" {
		o.Status = domain.OrderCreated
	}
	f.orders[o.OrderID] = o
	f.created = append(f.created, o)
	return o, nil
}

func (f *fakeOrders) GetOrder(_ context.Context, accountID uuid.UUID, orderID string) (*domain.Order, error) {
	o, ok := f.orders[orderID]
	if !ok || o.AccountID != accountID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrders) GetOrderByOrderID(_ context.Context, orderID string) (*domain.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrders) GetOrderByGatewayID(_ context.Context, gatewayOrderID string) (*domain.Order, error) {
	for _, o := range f.orders {
		if o.GatewayOrderID == gatewayOrderID {
			return o, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (f *fakeOrders) MarkOrderAttempted(_ context.Context, orderID string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = domain.OrderAttempted
	return nil
}

func (f *fakeOrders) MarkOrderPaid(_ context.Context, orderID, paymentID string) error {
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

func (f *fakeOrders) MarkOrderFailed(_ context.Context, orderID string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = domain.OrderFailed
	return nil
}

type fakeReceivables struct {
	receivables map[string]*domain.Receivable
}

func newFakeReceivables(rs ...*domain.Receivable) *fakeReceivables {
	f := &fakeReceivables{receivables: map[string]*domain.Receivable{}}
	for _, r := range rs {
		f.receivables[r.PublicID] = r
	}
	return f
}

func (f *fakeReceivables) GetReceivable(_ context.Context, publicID string) (*domain.Receivable, error) {
	r, ok := f.receivables[publicID]
	if !ok {
		return nil, domain.ErrReceivableNotFound
	}
	return r, nil
}

func (f *fakeReceivables) MarkReceivablePaid(_ context.Context, publicID, paymentID string) error {
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

// fakeLedger enforces the (account, reference) uniqueness the real store
// gets from its unique index.
type fakeLedger struct {
	credits []store.CreditParams
	seen    map[string]bool
}

func newFakeLedger() *fakeLedger { return &fakeLedger{seen: map[string]bool{}} }

func (f *fakeLedger) Credit(_ context.Context, p store.CreditParams) (*domain.Transaction, error) {
	key := p.AccountID.String() + "/" + p.ReferenceID
	if f.seen[key] {
		return nil, domain.ErrAlreadyProcessed
	}
	f.seen[key] = true
	f.credits = append(f.credits, p)
	return &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   p.AccountID,
		ReferenceID: p.ReferenceID,
		Type:        domain.TxnCredit,
		Amount:      p.Amount,
		Status:      domain.TxnCompleted,
		Category:    p.Category,
		Gateway:     p.Gateway,
	}, nil
}

// fakeProcessor is a scriptable gateway.Processor.
type fakeProcessor struct {
	name         string
	intent       *gateway.CheckoutIntent
	createErr    error
	createCalls  int
	verifyOK     bool
	callbackOK   bool
	webhookOK    bool
	pollStatus   *gateway.PaymentStatus
	pollErr      error
	lastVerify   gateway.VerifyRequest
	lastCallback map[string]string
}

func (f *fakeProcessor) Name() string { return f.name }

func (f *fakeProcessor) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.CheckoutIntent, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.intent != nil {
		return f.intent, nil
	}
	return &gateway.CheckoutIntent{
		Gateway:        f.name,
		GatewayOrderID: "gw_" + req.OrderID,
		Amount:         req.Amount,
		Currency:       req.Currency,
	}, nil
}

func (f *fakeProcessor) VerifyPayment(req gateway.VerifyRequest) bool {
	f.lastVerify = req
	return f.verifyOK
}

func (f *fakeProcessor) VerifyCallback(fields map[string]string) bool {
	f.lastCallback = fields
	return f.callbackOK
}

func (f *fakeProcessor) PollStatus(context.Context, string) (*gateway.PaymentStatus, error) {
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	return f.pollStatus, nil
}

func (f *fakeProcessor) VerifyWebhookSignature([]byte, string) bool { return f.webhookOK }

// fakeResolver serves one active processor and a per-gateway map.
type fakeResolver struct {
	active         *fakeProcessor
	activeSettings *domain.GatewaySettings
	byName         map[string]*fakeProcessor
	fallback       *fakeProcessor
}

func (f *fakeResolver) Active(context.Context) (gateway.Processor, *domain.GatewaySettings, error) {
	if f.active == nil {
		return nil, nil, domain.ErrGatewayNotConfigured
	}
	return f.active, f.activeSettings, nil
}

func (f *fakeResolver) ForGateway(_ context.Context, name string) (gateway.Processor, *domain.GatewaySettings, error) {
	p, ok := f.byName[name]
	if !ok {
		return nil, nil, domain.ErrGatewayNotConfigured
	}
	return p, &domain.GatewaySettings{Gateway: name, Enabled: true}, nil
}

func (f *fakeResolver) RazorpayEnvFallback() (gateway.Processor, *domain.GatewaySettings, bool) {
	if f.fallback == nil {
		return nil, nil, false
	}
	return f.fallback, &domain.GatewaySettings{Gateway: gateway.Razorpay, TestMode: true}, true
}

type fakeQueue struct {
	enqueued [][]byte
	err      error
}

func (f *fakeQueue) EnqueueSettlement(_ context.Context, _ uuid.UUID, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, payload)
	return nil
}

var errGatewayDown = errors.New("gateway unreachable")
