package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tableColumns = `id, restaurant_id, number, capacity, status`

func scanTable(row pgx.Row) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.RestaurantID, &t.Number, &t.Capacity, &t.Status)
	return t, err
}

type GetTableForUpdateParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

const getTableForUpdate = `
SELECT ` + tableColumns + ` FROM tables WHERE id = $1 AND restaurant_id = $2 FOR NO KEY UPDATE`

func (q *Queries) GetTableForUpdate(ctx context.Context, arg GetTableForUpdateParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTableForUpdate, arg.ID, arg.RestaurantID))
}

type UpdateTableStatusParams struct {
	ID     uuid.UUID
	Status string
}

const updateTableStatus = `
UPDATE tables SET status = $2 WHERE id = $1`

func (q *Queries) UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) error {
	_, err := q.db.Exec(ctx, updateTableStatus, arg.ID, arg.Status)
	return err
}

const listTables = `
SELECT ` + tableColumns + ` FROM tables WHERE restaurant_id = $1 ORDER BY number`

func (q *Queries) ListTables(ctx context.Context, restaurantID uuid.UUID) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTables, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}
