package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wavetours/booking-engine/internal/discount"
	"github.com/wavetours/booking-engine/internal/domain"
	"github.com/wavetours/booking-engine/internal/money"
)

// PostgresDiscountRepository implements discount.Repository using PostgreSQL.
// ConsumeUsage is the concurrency-sensitive operation: the global cap guard
// lives inside the UPDATE statement so two confirmations racing for the last
// use cannot both win.
type PostgresDiscountRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresDiscountRepository creates a new PostgresDiscountRepository.
func NewPostgresDiscountRepository(pool *pgxpool.Pool) *PostgresDiscountRepository {
	return &PostgresDiscountRepository{pool: pool}
}

// Create inserts a discount code.
func (r *PostgresDiscountRepository) Create(ctx context.Context, d *domain.DiscountCode) error {
	query := `
		INSERT INTO discount_codes (
			code, type, value, max_discount, min_purchase,
			max_uses, max_uses_per_user, current_uses,
			valid_from, valid_until, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		d.Code, string(d.Type), d.Value, int64(d.MaxDiscount), int64(d.MinPurchase),
		d.MaxUses, d.MaxUsesPerUser, d.CurrentUses,
		d.ValidFrom, d.ValidUntil, d.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to create discount code: %w", err)
	}
	return nil
}

// GetByCode fetches a code record.
func (r *PostgresDiscountRepository) GetByCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	query := `
		SELECT code, type, value, max_discount, min_purchase,
		       max_uses, max_uses_per_user, current_uses,
		       valid_from, valid_until, active
		FROM discount_codes
		WHERE code = $1
	`
	d := &domain.DiscountCode{}
	var (
		typ         string
		maxDiscount int64
		minPurchase int64
	)
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&d.Code, &typ, &d.Value, &maxDiscount, &minPurchase,
		&d.MaxUses, &d.MaxUsesPerUser, &d.CurrentUses,
		&d.ValidFrom, &d.ValidUntil, &d.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidDiscountCode
		}
		return nil, fmt.Errorf("failed to scan discount code: %w", err)
	}
	d.Type = domain.DiscountType(typ)
	d.MaxDiscount = money.Amount(maxDiscount)
	d.MinPurchase = money.Amount(minPurchase)
	return d, nil
}

// CountUserUsage returns how many confirmed bookings of this user used the code.
func (r *PostgresDiscountRepository) CountUserUsage(ctx context.Context, code, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM discount_usages WHERE code = $1 AND user_id = $2`
	var count int
	if err := r.pool.QueryRow(ctx, query, code, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count discount usage: %w", err)
	}
	return count, nil
}

// ConsumeUsage increments the global counter under the cap guard and records
// the per-user usage row in one transaction. Zero rows affected means another
// confirmation took the last use first.
func (r *PostgresDiscountRepository) ConsumeUsage(ctx context.Context, code, userID, bookingID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE discount_codes
		SET current_uses = current_uses + 1
		WHERE code = $1 AND (max_uses = 0 OR current_uses < max_uses)
	`, code)
	if err != nil {
		return fmt.Errorf("failed to increment discount usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidDiscountCode
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO discount_usages (code, user_id, booking_id, used_at)
		VALUES ($1, $2, $3, NOW())
	`, code, userID, bookingID)
	if err != nil {
		return fmt.Errorf("failed to record discount usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit discount usage: %w", err)
	}
	return nil
}

var _ discount.Repository = (*PostgresDiscountRepository)(nil)
