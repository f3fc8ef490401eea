package repository

import (
	"context"
	"sync"

	"github.com/wavetours/booking-engine/internal/domain"
)

// MemoryCancellationRepository is an in-memory CancellationRepository for tests.
type MemoryCancellationRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.CancellationRecord // keyed by booking id
}

// NewMemoryCancellationRepository creates an empty in-memory record store.
func NewMemoryCancellationRepository() *MemoryCancellationRepository {
	return &MemoryCancellationRepository{records: make(map[string]*domain.CancellationRecord)}
}

func (r *MemoryCancellationRepository) Create(ctx context.Context, rec *domain.CancellationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.BookingID] = &cp
	return nil
}

func (r *MemoryCancellationRepository) Update(ctx context.Context, rec *domain.CancellationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.BookingID]; !ok {
		return domain.ErrBookingNotFound
	}
	cp := *rec
	r.records[rec.BookingID] = &cp
	return nil
}

func (r *MemoryCancellationRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.CancellationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[bookingID]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	cp := *rec
	return &cp, nil
}

var _ CancellationRepository = (*MemoryCancellationRepository)(nil)
