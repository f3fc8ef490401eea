package repository

import (
	"context"
	"sync"

	"github.com/wavetours/booking-engine/internal/domain"
)

// MemoryPaymentRepository is an in-memory PaymentRepository for tests.
type MemoryPaymentRepository struct {
	mu   sync.RWMutex
	txns map[string]*domain.PaymentTransaction
}

// NewMemoryPaymentRepository creates an empty in-memory transaction store.
func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{txns: make(map[string]*domain.PaymentTransaction)}
}

func (r *MemoryPaymentRepository) Create(ctx context.Context, t *domain.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.txns[t.ID] = &cp
	return nil
}

func (r *MemoryPaymentRepository) Update(ctx context.Context, t *domain.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.txns[t.ID]; !ok {
		return domain.ErrPaymentNotFound
	}
	cp := *t
	r.txns[t.ID] = &cp
	return nil
}

func (r *MemoryPaymentRepository) GetByID(ctx context.Context, id string) (*domain.PaymentTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.txns[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.txns {
		if t.IdempotencyKey == key {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *MemoryPaymentRepository) GetByGatewayTxnID(ctx context.Context, gatewayTxnID string) (*domain.PaymentTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.txns {
		if t.GatewayTxnID == gatewayTxnID && gatewayTxnID != "" {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *MemoryPaymentRepository) GetSucceededCharge(ctx context.Context, bookingID string) (*domain.PaymentTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.txns {
		if t.BookingID == bookingID && t.Kind == domain.TransactionKindCharge && t.Status == domain.TransactionStatusSucceeded {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *MemoryPaymentRepository) CountAttempts(ctx context.Context, bookingID string, kind domain.TransactionKind) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, t := range r.txns {
		if t.BookingID == bookingID && t.Kind == kind {
			count++
		}
	}
	return count, nil
}

var _ PaymentRepository = (*MemoryPaymentRepository)(nil)
