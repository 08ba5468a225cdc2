package escrow

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/api/model"
	"github.com/lancerhub/marketplace-be/internal/gateway"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePaymentStore is an in-memory PaymentStore with the same conditional
// update semantics as the real one.
type fakePaymentStore struct {
	mu       sync.Mutex
	payments map[string]*model.Payment

	createErr error
	deleteErr error
	attachErr error
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{payments: make(map[string]*model.Payment)}
}

func (f *fakePaymentStore) CreatePayment(_ context.Context, payment *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	cp := *payment
	f.payments[payment.PaymentID] = &cp
	return nil
}

func (f *fakePaymentStore) GetPaymentByID(_ context.Context, paymentID string) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.payments[paymentID]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentStore) AttachTransaction(_ context.Context, paymentID, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.attachErr != nil {
		return f.attachErr
	}
	p, ok := f.payments[paymentID]
	if !ok || p.TransactionID.Valid {
		return domain.ErrPaymentNotFound
	}
	p.TransactionID.String = transactionID
	p.TransactionID.Valid = true
	return nil
}

func (f *fakePaymentStore) SetStatusIfChanged(_ context.Context, paymentID string, status domain.PaymentStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.payments[paymentID]
	if !ok {
		return false, domain.ErrPaymentNotFound
	}
	if p.Status == status {
		return false, nil
	}
	p.Status = status
	return true, nil
}

func (f *fakePaymentStore) DeletePayment(_ context.Context, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.payments[paymentID]; !ok {
		return domain.ErrPaymentNotFound
	}
	delete(f.payments, paymentID)
	return nil
}

func (f *fakePaymentStore) ListUnlinkedBefore(_ context.Context, cutoff time.Time) ([]model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Payment
	for _, p := range f.payments {
		if !p.TransactionID.Valid && p.Status == domain.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePaymentStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payments)
}

func (f *fakePaymentStore) get(paymentID string) *model.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (f *fakePaymentStore) put(p *model.Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.payments[p.PaymentID] = &cp
}

// fakeContractReader serves a single contract.
type fakeContractReader struct {
	contract *model.Contract
}

func (f *fakeContractReader) GetContractByID(_ context.Context, contractID string) (*model.Contract, error) {
	if f.contract == nil || f.contract.ContractID != contractID {
		return nil, domain.ErrContractNotFound
	}
	cp := *f.contract
	return &cp, nil
}

// fakeGateway is a hook-based gateway.Client double.
type fakeGateway struct {
	generateLink   func(ctx context.Context, req gateway.LinkRequest) (*gateway.LinkResponse, error)
	initiateDirect func(ctx context.Context, req gateway.DirectRequest) (*gateway.DirectResponse, error)
	getStatus      func(ctx context.Context, transID string) (*gateway.Transaction, error)
	search         func(ctx context.Context, q gateway.SearchQuery) ([]gateway.Transaction, error)
}

func (f *fakeGateway) GenerateLink(ctx context.Context, req gateway.LinkRequest) (*gateway.LinkResponse, error) {
	return f.generateLink(ctx, req)
}

func (f *fakeGateway) InitiateDirect(ctx context.Context, req gateway.DirectRequest) (*gateway.DirectResponse, error) {
	return f.initiateDirect(ctx, req)
}

func (f *fakeGateway) GetStatus(ctx context.Context, transID string) (*gateway.Transaction, error) {
	return f.getStatus(ctx, transID)
}

func (f *fakeGateway) Expire(_ context.Context, transID string) (*gateway.Transaction, error) {
	return &gateway.Transaction{TransID: transID, Status: gateway.StatusExpired}, nil
}

func (f *fakeGateway) ListUserTransactions(context.Context, string) ([]gateway.Transaction, error) {
	return nil, nil
}

func (f *fakeGateway) Search(ctx context.Context, q gateway.SearchQuery) ([]gateway.Transaction, error) {
	return f.search(ctx, q)
}

func (f *fakeGateway) Balance(context.Context) (int64, error) {
	return 0, nil
}
