package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kouprey/storefront/internal/models"
)

// GetUserByEmail returns nil, nil when no such user exists.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, password_hash, role, created_at FROM users WHERE email = ?`
	row := s.DB.QueryRowContext(ctx, query, email)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser stores an already hashed password.
func (s *Store) CreateUser(ctx context.Context, email, hashedPassword string, role models.Role) error {
	query := `INSERT INTO users (email, password_hash, role, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, query, email, hashedPassword, role, time.Now().UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", email, ErrDuplicate)
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, email, role, created_at FROM users WHERE role = ? ORDER BY created_at DESC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, email string, role models.Role, hashedPassword string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE email = ? AND role = ?`, hashedPassword, email, role)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *Store) DeleteUser(ctx context.Context, email string, role models.Role) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE email = ? AND role = ?`, email, role)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
