// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/evreg-go/internal/model"
)

// CreateUserParams holds the fields for creating a user.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         string
	Role         string
}

// CreateUser inserts a new user and returns it with its generated id.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, name, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		arg.Email, arg.PasswordHash, arg.Name, arg.Role, now, now,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("user insert id: %w", err)
	}
	return model.User{
		ID:           id,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Name:         arg.Name,
		Role:         arg.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

const selectUser = `SELECT id, email, password_hash, name, role, created_at, updated_at FROM users`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetUser returns a single user or ErrNotFound.
func (q *Queries) GetUser(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id))
	if err != nil {
		return model.User{}, notFoundIfNoRows(err)
	}
	return u, nil
}

// GetUserByEmail returns a single user by email or ErrNotFound.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, selectUser+` WHERE email = ?`, email))
	if err != nil {
		return model.User{}, notFoundIfNoRows(err)
	}
	return u, nil
}

// ListUsers returns all users ordered by id.
func (q *Queries) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := q.db.QueryContext(ctx, selectUser+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserParams holds the full set of mutable user fields.
type UpdateUserParams struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Role         string
}

// UpdateUser writes back all mutable fields of a user, or ErrNotFound.
func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE users SET email = ?, password_hash = ?, name = ?, role = ?, updated_at = ? WHERE id = ?`,
		arg.Email, arg.PasswordHash, arg.Name, arg.Role, time.Now().UTC(), arg.ID,
	)
	return requireRowsAffected(res, err)
}

// DeleteUser removes a user by id, or ErrNotFound.
func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return requireRowsAffected(res, err)
}

// CountUsers returns the total number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
