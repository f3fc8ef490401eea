package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wavetours/booking-engine/internal/domain"
)

// MemoryBookingRepository is an in-memory BookingRepository for tests.
type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking
}

// NewMemoryBookingRepository creates an empty in-memory booking store.
func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{bookings: make(map[string]*domain.Booking)}
}

func (r *MemoryBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *MemoryBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *MemoryBookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		return domain.ErrBookingNotFound
	}
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *MemoryBookingRepository) UpdateIfStatus(ctx context.Context, b *domain.Booking, expected domain.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.bookings[b.ID]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if cur.Status != expected {
		return domain.ErrInvalidBookingStatus
	}
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *MemoryBookingRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Booking
	for _, b := range r.bookings {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryBookingRepository) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Booking
	for _, b := range r.bookings {
		if b.Status == domain.BookingStatusPending && b.HoldExpiresAt.Before(now) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HoldExpiresAt.Before(out[j].HoldExpiresAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryBookingRepository) GetConfirmedDeparted(ctx context.Context, now time.Time, limit int) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Booking
	for _, b := range r.bookings {
		if b.Status == domain.BookingStatusConfirmed && b.TourDate.Before(now) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TourDate.Before(out[j].TourDate) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

var _ BookingRepository = (*MemoryBookingRepository)(nil)
