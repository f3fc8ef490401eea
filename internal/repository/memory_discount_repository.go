package repository

import (
	"context"
	"sync"

	"github.com/wavetours/booking-engine/internal/discount"
	"github.com/wavetours/booking-engine/internal/domain"
)

// MemoryDiscountRepository is an in-memory discount.Repository for tests.
// ConsumeUsage holds the same all-or-nothing cap semantics as the SQL
// implementation so concurrency tests exercise the real contract.
type MemoryDiscountRepository struct {
	mu     sync.Mutex
	codes  map[string]*domain.DiscountCode
	usages map[string][]memoryUsage // keyed by code
}

type memoryUsage struct {
	userID    string
	bookingID string
}

// NewMemoryDiscountRepository creates an empty in-memory discount store.
func NewMemoryDiscountRepository() *MemoryDiscountRepository {
	return &MemoryDiscountRepository{
		codes:  make(map[string]*domain.DiscountCode),
		usages: make(map[string][]memoryUsage),
	}
}

// Create adds a discount code.
func (r *MemoryDiscountRepository) Create(ctx context.Context, d *domain.DiscountCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.codes[d.Code] = &cp
	return nil
}

func (r *MemoryDiscountRepository) GetByCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.codes[code]
	if !ok {
		return nil, domain.ErrInvalidDiscountCode
	}
	cp := *d
	return &cp, nil
}

func (r *MemoryDiscountRepository) CountUserUsage(ctx context.Context, code, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, u := range r.usages[code] {
		if u.userID == userID {
			count++
		}
	}
	return count, nil
}

func (r *MemoryDiscountRepository) ConsumeUsage(ctx context.Context, code, userID, bookingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.codes[code]
	if !ok {
		return domain.ErrInvalidDiscountCode
	}
	if d.MaxUses > 0 && d.CurrentUses >= d.MaxUses {
		return domain.ErrInvalidDiscountCode
	}
	d.CurrentUses++
	r.usages[code] = append(r.usages[code], memoryUsage{userID: userID, bookingID: bookingID})
	return nil
}

var _ discount.Repository = (*MemoryDiscountRepository)(nil)
