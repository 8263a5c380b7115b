package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/veilport/veilport/internal/domain/premium"
	"github.com/veilport/veilport/internal/pkg/errors"
)

// PremiumRepository implements premium.Repository
type PremiumRepository struct {
	db *DB
}

// NewPremiumRepository creates a new premium code repository
func NewPremiumRepository(db *DB) *PremiumRepository {
	return &PremiumRepository{db: db}
}

const codeColumns = `id, code, duration, duration_hours, expires_at,
	is_used, used_by, used_at, notes, created_at`

// Create inserts a new premium code
func (r *PremiumRepository) Create(ctx context.Context, c *premium.Code) error {
	c.CreatedAt = time.Now()

	query := `INSERT INTO premium_codes (code, duration, duration_hours,
		expires_at, is_used, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	args := []interface{}{
		c.Code, c.Duration, c.DurationHours, c.ExpiresAt, c.IsUsed, c.Notes, c.CreatedAt,
	}

	if r.db.Driver() == "postgres" {
		err := r.db.QueryRowContext(ctx, r.db.rebind(query+" RETURNING id"), args...).Scan(&c.ID)
		if err != nil {
			return errors.DatabaseError("Failed to create code", err)
		}
		return nil
	}

	res, err := r.db.ExecContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return errors.DatabaseError("Failed to create code", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return errors.DatabaseError("Failed to create code", err)
	}
	return nil
}

// GetByCode retrieves a code by its redemption string
func (r *PremiumRepository) GetByCode(ctx context.Context, code string) (*premium.Code, error) {
	row := r.db.QueryRowContext(ctx,
		r.db.rebind("SELECT "+codeColumns+" FROM premium_codes WHERE code = ?"), code)

	c, err := scanCode(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Premium code")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get code", err)
	}
	return c, nil
}

// Claim marks a code as used if and only if it is still unused. The WHERE
// clause on is_used makes the claim atomic; a second caller sees zero rows
// affected.
func (r *PremiumRepository) Claim(ctx context.Context, codeID, userID int64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		r.db.rebind(`UPDATE premium_codes SET is_used = ?, used_by = ?, used_at = ?
			WHERE id = ? AND is_used = ?`),
		true, userID, at, codeID, false,
	)
	if err != nil {
		return false, errors.DatabaseError("Failed to claim code", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to claim code", err)
	}
	return affected == 1, nil
}

// Release resets a claim held by the given user. The WHERE clause on used_by
// ensures only the claim owner can undo it.
func (r *PremiumRepository) Release(ctx context.Context, codeID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		r.db.rebind(`UPDATE premium_codes SET is_used = ?, used_by = NULL, used_at = NULL
			WHERE id = ? AND is_used = ? AND used_by = ?`),
		false, codeID, true, userID,
	)
	if err != nil {
		return errors.DatabaseError("Failed to release code", err)
	}
	return nil
}

// List retrieves codes with pagination, newest first
func (r *PremiumRepository) List(ctx context.Context, limit, offset int) ([]*premium.Code, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM premium_codes").Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count codes", err)
	}

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		r.db.rebind("SELECT "+codeColumns+" FROM premium_codes ORDER BY id DESC LIMIT ? OFFSET ?"),
		limit, offset,
	)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list codes", err)
	}
	defer rows.Close()

	codes := make([]*premium.Code, 0)
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan code", err)
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.DatabaseError("Failed to list codes", err)
	}

	return codes, total, nil
}

func scanCode(row rowScanner) (*premium.Code, error) {
	var (
		c      premium.Code
		usedBy sql.NullInt64
		usedAt sql.NullTime
	)

	err := row.Scan(
		&c.ID, &c.Code, &c.Duration, &c.DurationHours, &c.ExpiresAt,
		&c.IsUsed, &usedBy, &usedAt, &c.Notes, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if usedBy.Valid {
		c.UsedBy = &usedBy.Int64
	}
	if usedAt.Valid {
		c.UsedAt = &usedAt.Time
	}

	return &c, nil
}
