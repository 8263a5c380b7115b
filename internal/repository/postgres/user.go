package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/veilport/veilport/internal/domain/user"
	"github.com/veilport/veilport/internal/pkg/errors"
)

// UserRepository implements user.Repository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, role,
	two_factor_enabled, two_factor_secret, recovery_codes,
	is_premium, premium_expiry, last_login, created_at, updated_at`

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	codes, err := marshalRecoveryCodes(u.RecoveryCodes)
	if err != nil {
		return errors.Internal("Failed to encode recovery codes", err)
	}

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = user.RoleUser
	}

	query := `INSERT INTO users (username, email, password_hash, role,
		two_factor_enabled, two_factor_secret, recovery_codes,
		is_premium, premium_expiry, last_login, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []interface{}{
		u.Username, u.Email, u.PasswordHash, u.Role,
		u.TwoFactorEnabled, u.TwoFactorSecret, codes,
		u.IsPremium, u.PremiumExpiry, u.LastLogin, u.CreatedAt, u.UpdatedAt,
	}

	if r.db.Driver() == "postgres" {
		err = r.db.QueryRowContext(ctx, r.db.rebind(query+" RETURNING id"), args...).Scan(&u.ID)
		if err != nil {
			return errors.DatabaseError("Failed to create user", err)
		}
		return nil
	}

	res, err := r.db.ExecContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return errors.DatabaseError("Failed to create user", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return errors.DatabaseError("Failed to create user", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

// Update persists all mutable fields of a user
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	codes, err := marshalRecoveryCodes(u.RecoveryCodes)
	if err != nil {
		return errors.Internal("Failed to encode recovery codes", err)
	}

	u.UpdatedAt = time.Now()

	query := `UPDATE users SET username = ?, email = ?, password_hash = ?, role = ?,
		two_factor_enabled = ?, two_factor_secret = ?, recovery_codes = ?,
		is_premium = ?, premium_expiry = ?, last_login = ?, updated_at = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, r.db.rebind(query),
		u.Username, u.Email, u.PasswordHash, u.Role,
		u.TwoFactorEnabled, u.TwoFactorSecret, codes,
		u.IsPremium, u.PremiumExpiry, u.LastLogin, u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		return errors.DatabaseError("Failed to update user", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to update user", err)
	}
	if affected == 0 {
		return errors.NotFound("User")
	}
	return nil
}

// List retrieves users with pagination
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*user.User, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count users", err)
	}

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		r.db.rebind("SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?"),
		limit, offset,
	)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list users", err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.DatabaseError("Failed to list users", err)
	}

	return users, total, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*user.User, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(query), arg)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("User")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get user", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*user.User, error) {
	var (
		u             user.User
		codes         string
		premiumExpiry sql.NullTime
		lastLogin     sql.NullTime
	)

	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.TwoFactorEnabled, &u.TwoFactorSecret, &codes,
		&u.IsPremium, &premiumExpiry, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(codes), &u.RecoveryCodes); err != nil {
		return nil, err
	}
	if premiumExpiry.Valid {
		u.PremiumExpiry = &premiumExpiry.Time
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}

	return &u, nil
}

func marshalRecoveryCodes(codes []string) (string, error) {
	if codes == nil {
		codes = []string{}
	}
	b, err := json.Marshal(codes)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
