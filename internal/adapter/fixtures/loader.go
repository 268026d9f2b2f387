package fixtures

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const batchSize = 500

type userRow struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"size:150;uniqueIndex"`
	IsStaff  bool
}

func (userRow) TableName() string { return "users" }

type productRow struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"size:100"`
	Description string
	Price       decimal.Decimal `gorm:"type:numeric(8,2)"`
	Discount    int16
	Archived    bool
	Preview     string `gorm:"size:255"`
	CreatedByID *int64
	CreatedAt   time.Time
}

func (productRow) TableName() string { return "products" }

type orderRow struct {
	ID              int64 `gorm:"primaryKey"`
	DeliveryAddress string
	Promocode       string `gorm:"size:20"`
	CreatedAt       time.Time
	UserID          int64
}

func (orderRow) TableName() string { return "orders" }

type orderProductRow struct {
	OrderID   int64 `gorm:"primaryKey"`
	ProductID int64 `gorm:"primaryKey"`
}

func (orderProductRow) TableName() string { return "orders_products" }

// Open connects gorm to the postgres database at dsn.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

type Loader struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLoader(db *gorm.DB) Loader {
	return Loader{db: db, now: time.Now}
}

// Load inserts the set in one transaction. Rows whose primary key
// already exists are left untouched.
func (l Loader) Load(ctx context.Context, set Set) error {
	const op = "Loader.Load"
	log := slog.With("op", op)

	rows := l.toRows(set)

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).Session(&gorm.Session{})

		if err := createInBatches(insert, rows.users); err != nil {
			return fmt.Errorf("users: %w", err)
		}
		if err := createInBatches(insert, rows.products); err != nil {
			return fmt.Errorf("products: %w", err)
		}
		if err := createInBatches(insert, rows.orders); err != nil {
			return fmt.Errorf("orders: %w", err)
		}
		if err := createInBatches(insert, rows.orderProducts); err != nil {
			return fmt.Errorf("orders products: %w", err)
		}
		return resetSequences(tx, "users", "products", "orders")
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("fixtures loaded",
		"users", len(rows.users),
		"products", len(rows.products),
		"orders", len(rows.orders),
		"skipped", set.Skipped,
	)
	return nil
}

type rowSet struct {
	users         []userRow
	products      []productRow
	orders        []orderRow
	orderProducts []orderProductRow
}

func (l Loader) toRows(set Set) rowSet {
	now := l.now()
	var rows rowSet

	for _, u := range set.Users {
		rows.users = append(rows.users, userRow{u.ID, u.Username, u.IsStaff})
	}

	for _, p := range set.Products {
		row := productRow{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Discount:    int16(p.Discount),
			Archived:    p.Archived,
			Preview:     p.Preview,
			CreatedAt:   p.CreatedAt,
		}
		if p.CreatedByID != 0 {
			createdBy := p.CreatedByID
			row.CreatedByID = &createdBy
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		rows.products = append(rows.products, row)
	}

	for _, o := range set.Orders {
		row := orderRow{
			ID:              o.ID,
			DeliveryAddress: o.DeliveryAddress,
			Promocode:       o.Promocode,
			CreatedAt:       o.CreatedAt,
			UserID:          o.User.ID,
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		rows.orders = append(rows.orders, row)
		for _, p := range o.Products {
			rows.orderProducts = append(rows.orderProducts,
				orderProductRow{OrderID: o.ID, ProductID: p.ID})
		}
	}
	return rows
}

func createInBatches[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, batchSize).Error
}

// resetSequences moves serial sequences past the explicitly inserted ids.
func resetSequences(tx *gorm.DB, tables ...string) error {
	for _, table := range tables {
		err := tx.Exec(fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'),
			COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)`,
			table,
		)).Error
		if err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return nil
}
