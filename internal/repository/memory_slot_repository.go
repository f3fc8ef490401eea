package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wavetours/booking-engine/internal/domain"
)

// MemorySlotRepository is an in-memory SlotRepository for tests.
type MemorySlotRepository struct {
	mu    sync.RWMutex
	slots map[string]*domain.Slot
}

// NewMemorySlotRepository creates an empty in-memory slot store.
func NewMemorySlotRepository() *MemorySlotRepository {
	return &MemorySlotRepository{slots: make(map[string]*domain.Slot)}
}

func (r *MemorySlotRepository) Create(ctx context.Context, slot *domain.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *slot
	r.slots[slot.ID] = &cp
	return nil
}

func (r *MemorySlotRepository) GetByID(ctx context.Context, id string) (*domain.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.slots[id]
	if !ok {
		return nil, domain.ErrSlotNotFound
	}
	cp := *slot
	return &cp, nil
}

func (r *MemorySlotRepository) GetByKey(ctx context.Context, tourID, date, tm string) (*domain.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, slot := range r.slots {
		if slot.TourID == tourID && slot.Date == date && slot.Time == tm {
			cp := *slot
			return &cp, nil
		}
	}
	return nil, domain.ErrSlotNotFound
}

func (r *MemorySlotRepository) ListByTour(ctx context.Context, tourID, date string) ([]*domain.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Slot
	for _, slot := range r.slots {
		if slot.TourID != tourID {
			continue
		}
		if date != "" && slot.Date != date {
			continue
		}
		cp := *slot
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (r *MemorySlotRepository) AdjustBooked(ctx context.Context, id string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[id]
	if !ok {
		return domain.ErrSlotNotFound
	}
	next := slot.Booked + delta
	if next < 0 || next > slot.MaxCapacity {
		return domain.ErrCapacityExceeded
	}
	slot.Booked = next
	slot.UpdatedAt = time.Now()
	return nil
}

var _ SlotRepository = (*MemorySlotRepository)(nil)
