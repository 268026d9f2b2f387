package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/niksmo/shop/internal/core/domain"
	"github.com/niksmo/shop/internal/core/port"
)

var _ port.ProductsReader = (*ProductsRepository)(nil)

const productColumns = `
	id, name, description, price, discount,
	archived, preview, created_by_id, created_at`

type ProductsRepository struct {
	sqldb sqldb
}

func NewProductsRepository(sqldb sqldb) ProductsRepository {
	return ProductsRepository{sqldb}
}

func (r ProductsRepository) ReadProducts(
	ctx context.Context,
) ([]domain.Product, error) {
	const op = "ProductsRepository.ReadProducts"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT` + productColumns + `
		FROM products
		ORDER BY id ASC;`

	ps, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

func (r ProductsRepository) ReadLatestProducts(
	ctx context.Context, limit int,
) ([]domain.Product, error) {
	const op = "ProductsRepository.ReadLatestProducts"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT` + productColumns + `
		FROM products
		ORDER BY created_at DESC, id DESC
		LIMIT $1;`

	ps, err := r.query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

func (r ProductsRepository) query(
	ctx context.Context, query string, args ...any,
) (ps []domain.Product, err error) {
	rows, err := r.sqldb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer closeRows(rows, &err)

	for rows.Next() {
		var (
			v         domain.Product
			createdBy sql.NullInt64
		)
		err := rows.Scan(
			&v.ID, &v.Name, &v.Description, &v.Price, &v.Discount,
			&v.Archived, &v.Preview, &createdBy, &v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		v.CreatedByID = createdBy.Int64
		ps = append(ps, v)
	}
	return ps, nil
}

func closeRows(rows *sql.Rows, errp *error) {
	if err := rows.Err(); err != nil && *errp == nil {
		*errp = fmt.Errorf("failed to iterate rows: %w", err)
	}
	if err := rows.Close(); err != nil && *errp == nil {
		*errp = fmt.Errorf("failed to close rows: %w", err)
	}
}
