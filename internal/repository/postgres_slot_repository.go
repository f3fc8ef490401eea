package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wavetours/booking-engine/internal/domain"
)

// PostgresSlotRepository implements SlotRepository using PostgreSQL.
type PostgresSlotRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSlotRepository creates a new PostgresSlotRepository.
func NewPostgresSlotRepository(pool *pgxpool.Pool) *PostgresSlotRepository {
	return &PostgresSlotRepository{pool: pool}
}

// Create inserts a slot.
func (r *PostgresSlotRepository) Create(ctx context.Context, slot *domain.Slot) error {
	query := `
		INSERT INTO slots (
			id, tour_id, date, time, max_capacity, booked,
			base_price, cancelled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		slot.ID, slot.TourID, slot.Date, slot.Time, slot.MaxCapacity, slot.Booked,
		int64(slot.BasePrice), slot.Cancelled, slot.CreatedAt, slot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

// GetByID retrieves a slot by id.
func (r *PostgresSlotRepository) GetByID(ctx context.Context, id string) (*domain.Slot, error) {
	query := slotSelect + ` WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByKey retrieves a slot by its (tour, date, time) identity.
func (r *PostgresSlotRepository) GetByKey(ctx context.Context, tourID, date, tm string) (*domain.Slot, error) {
	query := slotSelect + ` WHERE tour_id = $1 AND date = $2 AND time = $3`
	return r.scanOne(r.pool.QueryRow(ctx, query, tourID, date, tm))
}

// ListByTour lists a tour's slots, optionally filtered to one date.
func (r *PostgresSlotRepository) ListByTour(ctx context.Context, tourID, date string) ([]*domain.Slot, error) {
	query := slotSelect + ` WHERE tour_id = $1`
	args := []interface{}{tourID}
	if date != "" {
		query += ` AND date = $2`
		args = append(args, date)
	}
	query += ` ORDER BY date, time`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	var slots []*domain.Slot
	for rows.Next() {
		slot := &domain.Slot{}
		var basePrice int64
		if err := rows.Scan(
			&slot.ID, &slot.TourID, &slot.Date, &slot.Time, &slot.MaxCapacity, &slot.Booked,
			&basePrice, &slot.Cancelled, &slot.CreatedAt, &slot.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slot.BasePrice = toAmount(basePrice)
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate slots: %w", err)
	}
	return slots, nil
}

// AdjustBooked moves the booked counter by delta with the 0 <= booked <= max
// guard inside the statement, so the check and the mutation are one step.
func (r *PostgresSlotRepository) AdjustBooked(ctx context.Context, id string, delta int) error {
	query := `
		UPDATE slots
		SET booked = booked + $2, updated_at = NOW()
		WHERE id = $1
		  AND booked + $2 >= 0
		  AND booked + $2 <= max_capacity
	`
	tag, err := r.pool.Exec(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust booked count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCapacityExceeded
	}
	return nil
}

const slotSelect = `
	SELECT id, tour_id, date, time, max_capacity, booked,
	       base_price, cancelled, created_at, updated_at
	FROM slots
`

func (r *PostgresSlotRepository) scanOne(row pgx.Row) (*domain.Slot, error) {
	slot := &domain.Slot{}
	var basePrice int64
	err := row.Scan(
		&slot.ID, &slot.TourID, &slot.Date, &slot.Time, &slot.MaxCapacity, &slot.Booked,
		&basePrice, &slot.Cancelled, &slot.CreatedAt, &slot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to scan slot: %w", err)
	}
	slot.BasePrice = toAmount(basePrice)
	return slot, nil
}

var _ SlotRepository = (*PostgresSlotRepository)(nil)
