package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mseller-cloud/mseller-server/internal/models"
)

const userColumns = `
	id, created_at, updated_at, business_id, email, password_hash,
	first_name, last_name, phone, photo_url, role, seller_code, warehouse,
	initials, disabled, test_mode_user, last_seen_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.BusinessID, &u.Email,
		&u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.PhotoURL,
		&u.Role, &u.SellerCode, &u.Warehouse, &u.Initials, &u.Disabled,
		&u.TestModeUser, &u.LastSeenAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

// CreateUser creates a new user
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (
			id, created_at, updated_at, business_id, email, password_hash,
			first_name, last_name, phone, photo_url, role, seller_code,
			warehouse, initials, disabled, test_mode_user, last_seen_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.CreatedAt, user.UpdatedAt, user.BusinessID, user.Email,
		user.PasswordHash, user.FirstName, user.LastName, user.Phone,
		user.PhotoURL, user.Role, user.SellerCode, user.Warehouse,
		user.Initials, user.Disabled, user.TestModeUser, user.LastSeenAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetUser gets a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.getDB().QueryRowContext(ctx, query, id))
}

// GetUserByEmail gets a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(s.getDB().QueryRowContext(ctx, query, email))
}

// GetUserBySellerCode gets a user by seller code within a business
func (s *PostgresStore) GetUserBySellerCode(ctx context.Context, businessID uuid.UUID, sellerCode string) (*models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE business_id = $1 AND seller_code = $2`
	return scanUser(s.getDB().QueryRowContext(ctx, query, businessID, sellerCode))
}

// UpdateUser updates a user
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users SET
			updated_at = $2, email = $3, password_hash = $4, first_name = $5,
			last_name = $6, phone = $7, photo_url = $8, role = $9,
			seller_code = $10, warehouse = $11, initials = $12, disabled = $13,
			test_mode_user = $14, last_seen_at = $15
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.UpdatedAt, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.Phone, user.PhotoURL, user.Role,
		user.SellerCode, user.Warehouse, user.Initials, user.Disabled,
		user.TestModeUser, user.LastSeenAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteUser deletes a user
func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListUsers lists users, optionally filtered by business
func (s *PostgresStore) ListUsers(ctx context.Context, businessID *uuid.UUID, limit, offset int) ([]*models.User, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM users`
	listQuery := `SELECT ` + userColumns + ` FROM users`

	var args []interface{}
	if businessID != nil {
		countQuery += ` WHERE business_id = $1`
		listQuery += ` WHERE business_id = $1 ORDER BY first_name, last_name LIMIT $2 OFFSET $3`
		args = []interface{}{*businessID, limit, offset}
		if err := s.getDB().QueryRowContext(ctx, countQuery, *businessID).Scan(&total); err != nil {
			return nil, 0, err
		}
	} else {
		listQuery += ` ORDER BY first_name, last_name LIMIT $1 OFFSET $2`
		args = []interface{}{limit, offset}
		if err := s.getDB().QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
			return nil, 0, err
		}
	}

	rows, err := s.getDB().QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}

	return users, total, rows.Err()
}

// DeleteUsersByBusiness removes every user of a business and returns
// the number of rows deleted
func (s *PostgresStore) DeleteUsersByBusiness(ctx context.Context, businessID uuid.UUID) (int64, error) {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM users WHERE business_id = $1`, businessID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SaveDeviceToken registers a push token, replacing an existing row
// for the same token string
func (s *PostgresStore) SaveDeviceToken(ctx context.Context, token *models.DeviceToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO device_tokens (id, user_id, token, platform, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			created_at = EXCLUDED.created_at`

	_, err := s.getDB().ExecContext(ctx, query,
		token.ID, token.UserID, token.Token, token.Platform, token.CreatedAt)
	return err
}

// GetDeviceTokens lists push tokens for a user
func (s *PostgresStore) GetDeviceTokens(ctx context.Context, userID uuid.UUID) ([]*models.DeviceToken, error) {
	query := `
		SELECT id, user_id, token, platform, created_at
		FROM device_tokens
		WHERE user_id = $1
		ORDER BY created_at`

	rows, err := s.getDB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*models.DeviceToken
	for rows.Next() {
		t := &models.DeviceToken{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}

	return tokens, rows.Err()
}

// DeleteDeviceToken removes one push token for a user
func (s *PostgresStore) DeleteDeviceToken(ctx context.Context, userID uuid.UUID, token string) error {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM device_tokens WHERE user_id = $1 AND token = $2`, userID, token)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
