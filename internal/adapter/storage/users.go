package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/niksmo/shop/internal/core/domain"
	"github.com/niksmo/shop/internal/core/port"
)

var _ port.UsersReader = (*UsersRepository)(nil)

type UsersRepository struct {
	sqldb sqldb
}

func NewUsersRepository(sqldb sqldb) UsersRepository {
	return UsersRepository{sqldb}
}

func (r UsersRepository) ReadUser(ctx context.Context, id int64) (domain.User, error) {
	const op = "UsersRepository.ReadUser"

	if err := ctx.Err(); err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT id, username, is_staff
		FROM users
		WHERE id = $1;`

	var v domain.User
	err := r.sqldb.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.Username, &v.IsStaff,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, fmt.Errorf("%s: user %d: %w", op, id, domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}
