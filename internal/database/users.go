package database

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, restaurant_id, full_name, email, hashed_password, role, is_active, created_at`

const getUserByEmail = `
SELECT ` + userColumns + ` FROM users WHERE email = $1 AND is_active`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByEmail, email).
		Scan(&u.ID, &u.RestaurantID, &u.FullName, &u.Email, &u.HashedPassword, &u.Role, &u.IsActive, &u.CreatedAt)
	return u, err
}

const getUserByID = `
SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByID, id).
		Scan(&u.ID, &u.RestaurantID, &u.FullName, &u.Email, &u.HashedPassword, &u.Role, &u.IsActive, &u.CreatedAt)
	return u, err
}
