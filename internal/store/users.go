package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const userColumns = "id, email, username, password, shipping_address, is_admin, created_at, updated_at"

// CreateUser inserts the user together with its zero-balance account.
func (s *Store) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return User{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var u User
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, username, password, shipping_address, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		input.Email,
		input.Username,
		input.PasswordHash,
		input.ShippingAddress,
		input.IsAdmin,
	).Scan(userDest(&u)...)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrConflict
		}
		return User{}, storageErr("insert user", err)
	}

	if _, err := tx.Exec(ctx, "INSERT INTO accounts (user_id, balance) VALUES ($1, 0)", u.ID); err != nil {
		return User{}, storageErr("insert account", err)
	}

	if err := commit(ctx, tx); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id).Scan(userDest(&u)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, storageErr("get user", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(userDest(&u)...); err != nil {
			return nil, storageErr("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list users", err)
	}
	return users, nil
}

func userDest(u *User) []any {
	return []any{
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.ShippingAddress,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	}
}
