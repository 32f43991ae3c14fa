package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/shoplite/apiserver/types"
)

// OrderRepository reads purchase history for profile responses. Order
// placement itself happens outside the API layer; this repository only
// needs Create for seeding and tests.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]types.Order, error) {
	const query = `
		SELECT id, user_id, total_cents, status, shipping_phone, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]types.Order, 0)
	for rows.Next() {
		var order types.Order
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.TotalCents,
			&order.Status,
			&order.ShippingPhone,
			&order.CreatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *OrderRepository) Create(ctx context.Context, order types.Order) (types.Order, error) {
	order.ID = uuid.NewString()
	order.CreatedAt = time.Now()
	if order.Status == "" {
		order.Status = types.OrderStatusPending
	}

	const query = `
		INSERT INTO orders (id, user_id, total_cents, status, shipping_phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.UserID,
		order.TotalCents,
		order.Status,
		order.ShippingPhone,
		order.CreatedAt,
	); err != nil {
		return types.Order{}, err
	}

	return order, nil
}
