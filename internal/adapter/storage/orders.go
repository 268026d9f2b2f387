package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/niksmo/shop/internal/core/domain"
	"github.com/niksmo/shop/internal/core/port"
	"github.com/shopspring/decimal"
)

var _ port.OrdersReader = (*OrdersRepository)(nil)

// One row per order and product pair, orders without products
// come with NULL product columns.
const ordersQuery = `
	SELECT
		o.id, o.delivery_address, o.promocode, o.created_at,
		u.id, u.username, u.is_staff,
		p.id, p.name, p.price, p.archived
	FROM orders o
	JOIN users u ON u.id = o.user_id
	LEFT JOIN orders_products op ON op.order_id = o.id
	LEFT JOIN products p ON p.id = op.product_id`

type OrdersRepository struct {
	sqldb sqldb
}

func NewOrdersRepository(sqldb sqldb) OrdersRepository {
	return OrdersRepository{sqldb}
}

func (r OrdersRepository) ReadOrders(ctx context.Context) ([]domain.Order, error) {
	const op = "OrdersRepository.ReadOrders"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := ordersQuery + `
	ORDER BY o.id ASC, p.id ASC;`

	orders, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

func (r OrdersRepository) ReadUserOrders(
	ctx context.Context, userID int64,
) ([]domain.Order, error) {
	const op = "OrdersRepository.ReadUserOrders"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := ordersQuery + `
	WHERE o.user_id = $1
	ORDER BY o.id ASC, p.id ASC;`

	orders, err := r.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

func (r OrdersRepository) query(
	ctx context.Context, query string, args ...any,
) (orders []domain.Order, err error) {
	rows, err := r.sqldb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer closeRows(rows, &err)

	for rows.Next() {
		var (
			o         domain.Order
			pID       sql.NullInt64
			pName     sql.NullString
			pPrice    decimal.NullDecimal
			pArchived sql.NullBool
		)
		err := rows.Scan(
			&o.ID, &o.DeliveryAddress, &o.Promocode, &o.CreatedAt,
			&o.User.ID, &o.User.Username, &o.User.IsStaff,
			&pID, &pName, &pPrice, &pArchived,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}

		if n := len(orders); n == 0 || orders[n-1].ID != o.ID {
			orders = append(orders, o)
		}

		if !pID.Valid {
			continue
		}
		last := &orders[len(orders)-1]
		last.Products = append(last.Products, domain.Product{
			ID:       pID.Int64,
			Name:     pName.String,
			Price:    pPrice.Decimal,
			Archived: pArchived.Bool,
		})
	}
	return orders, nil
}
