package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wavetours/booking-engine/internal/domain"
	"github.com/wavetours/booking-engine/internal/money"
)

// PostgresBookingRepository implements BookingRepository using PostgreSQL.
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository.
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

// Create inserts a booking.
func (r *PostgresBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	passengers, err := json.Marshal(b.PassengerList)
	if err != nil {
		return fmt.Errorf("failed to marshal passenger list: %w", err)
	}

	query := `
		INSERT INTO bookings (
			id, user_id, slot_id, slot_key, tour_date, passengers, passenger_list,
			contact_email, base_price, final_price, currency, discount_code,
			status, payment_state, gateway_txn_id, hold_expires_at,
			created_at, confirmed_at, cancelled_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19, $20
		)
	`
	_, err = r.pool.Exec(ctx, query,
		b.ID, b.UserID, b.SlotID, b.SlotKey, b.TourDate, b.Passengers, passengers,
		b.ContactEmail, int64(b.BasePrice), int64(b.FinalPrice), b.Currency, nullable(b.DiscountCode),
		b.Status.String(), string(b.PaymentState), nullable(b.GatewayTxnID), b.HoldExpiresAt,
		b.CreatedAt, b.ConfirmedAt, b.CancelledAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by its id.
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := bookingSelect + ` WHERE id = $1`
	b, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// Update persists the mutable booking fields after a transition.
func (r *PostgresBookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	query := `
		UPDATE bookings
		SET status = $2, payment_state = $3, gateway_txn_id = $4,
		    final_price = $5, discount_code = $6,
		    confirmed_at = $7, cancelled_at = $8, updated_at = $9
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		b.ID, b.Status.String(), string(b.PaymentState), nullable(b.GatewayTxnID),
		int64(b.FinalPrice), nullable(b.DiscountCode),
		b.ConfirmedAt, b.CancelledAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

// UpdateIfStatus is the compare-and-swap variant of Update: the write lands
// only while the stored status still matches. Zero rows means the booking
// moved on under a concurrent transition (or does not exist).
func (r *PostgresBookingRepository) UpdateIfStatus(ctx context.Context, b *domain.Booking, expected domain.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $2, payment_state = $3, gateway_txn_id = $4,
		    final_price = $5, discount_code = $6,
		    confirmed_at = $7, cancelled_at = $8, updated_at = $9
		WHERE id = $1 AND status = $10
	`
	tag, err := r.pool.Exec(ctx, query,
		b.ID, b.Status.String(), string(b.PaymentState), nullable(b.GatewayTxnID),
		int64(b.FinalPrice), nullable(b.DiscountCode),
		b.ConfirmedAt, b.CancelledAt, b.UpdatedAt,
		expected.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidBookingStatus
	}
	return nil
}

// GetByUserID lists a user's bookings newest first.
func (r *PostgresBookingRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error) {
	query := bookingSelect + `
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

// GetExpiredPending returns pending bookings whose hold lapsed before now.
func (r *PostgresBookingRepository) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Booking, error) {
	query := bookingSelect + `
		WHERE status = 'pending' AND hold_expires_at < $1
		ORDER BY hold_expires_at
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired bookings: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

// GetConfirmedDeparted returns confirmed bookings whose tour date passed.
func (r *PostgresBookingRepository) GetConfirmedDeparted(ctx context.Context, now time.Time, limit int) ([]*domain.Booking, error) {
	query := bookingSelect + `
		WHERE status = 'confirmed' AND tour_date < $1
		ORDER BY tour_date
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query departed bookings: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

const bookingSelect = `
	SELECT id, user_id, slot_id, slot_key, tour_date, passengers, passenger_list,
	       contact_email, base_price, final_price, currency, discount_code,
	       status, payment_state, gateway_txn_id, hold_expires_at,
	       created_at, confirmed_at, cancelled_at, updated_at
	FROM bookings
`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	b := &domain.Booking{}
	var (
		passengerList      []byte
		basePrice          int64
		finalPrice         int64
		status             string
		paymentState       string
		discountCode       *string
		gatewayTxnID       *string
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.SlotID, &b.SlotKey, &b.TourDate, &b.Passengers, &passengerList,
		&b.ContactEmail, &basePrice, &finalPrice, &b.Currency, &discountCode,
		&status, &paymentState, &gatewayTxnID, &b.HoldExpiresAt,
		&b.CreatedAt, &b.ConfirmedAt, &b.CancelledAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(passengerList) > 0 {
		if err := json.Unmarshal(passengerList, &b.PassengerList); err != nil {
			return nil, fmt.Errorf("failed to unmarshal passenger list: %w", err)
		}
	}
	b.BasePrice = money.Amount(basePrice)
	b.FinalPrice = money.Amount(finalPrice)
	b.Status = domain.BookingStatus(status)
	b.PaymentState = domain.PaymentState(paymentState)
	if discountCode != nil {
		b.DiscountCode = *discountCode
	}
	if gatewayTxnID != nil {
		b.GatewayTxnID = *gatewayTxnID
	}
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// toAmount converts a stored minor-unit value.
func toAmount(v int64) money.Amount {
	return money.Amount(v)
}

var _ BookingRepository = (*PostgresBookingRepository)(nil)
