// Package fixtures loads dumpdata-style JSON fixtures into the shop database.
//
// A fixture file holds an array of objects:
//
//	[{"model": "shopapp.product", "pk": 1, "fields": {"name": "A", "price": "10.00"}}]
//
// Models other than auth.user, shopapp.product and shopapp.order are skipped.
package fixtures

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/niksmo/shop/internal/core/domain"
	"github.com/shopspring/decimal"
)

const (
	ModelUser    = "auth.user"
	ModelProduct = "shopapp.product"
	ModelOrder   = "shopapp.order"
)

var ErrInvalidFixture = errors.New("invalid fixture")

type object struct {
	Model  string          `json:"model"`
	PK     int64           `json:"pk"`
	Fields json.RawMessage `json:"fields"`
}

type userFields struct {
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
}

type productFields struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Discount    int             `json:"discount"`
	Archived    bool            `json:"archived"`
	Preview     string          `json:"preview"`
	CreatedBy   *int64          `json:"created_by"`
	CreatedAt   *time.Time      `json:"created_at"`
}

type orderFields struct {
	DeliveryAddress string     `json:"delivery_address"`
	Promocode       string     `json:"promocode"`
	CreatedAt       *time.Time `json:"created_at"`
	User            int64      `json:"user"`
	Products        []int64    `json:"products"`
}

// Set is the content of one or more fixture files.
type Set struct {
	Users    []domain.User
	Products []domain.Product
	Orders   []domain.Order
	Skipped  int
}

// Merge appends other to s.
func (s *Set) Merge(other Set) {
	s.Users = append(s.Users, other.Users...)
	s.Products = append(s.Products, other.Products...)
	s.Orders = append(s.Orders, other.Orders...)
	s.Skipped += other.Skipped
}

// Parse decodes a fixture file. Products are validated, orders carry
// only the ids of their user and products.
func Parse(r io.Reader) (Set, error) {
	const op = "fixtures.Parse"

	var objects []object
	if err := json.NewDecoder(r).Decode(&objects); err != nil {
		return Set{}, fmt.Errorf("%s: %w", op, err)
	}

	var set Set
	for i, obj := range objects {
		if obj.PK <= 0 {
			return Set{}, fmt.Errorf(
				"%s: object %d: %w: non-positive pk", op, i, ErrInvalidFixture,
			)
		}
		if err := set.add(obj); err != nil {
			return Set{}, fmt.Errorf("%s: object %d: %w", op, i, err)
		}
	}
	return set, nil
}

func (s *Set) add(obj object) error {
	switch obj.Model {
	case ModelUser:
		var f userFields
		if err := json.Unmarshal(obj.Fields, &f); err != nil {
			return err
		}
		if f.Username == "" {
			return fmt.Errorf("%w: empty username", ErrInvalidFixture)
		}
		s.Users = append(s.Users, domain.User{
			ID: obj.PK, Username: f.Username, IsStaff: f.IsStaff,
		})
	case ModelProduct:
		var f productFields
		if err := json.Unmarshal(obj.Fields, &f); err != nil {
			return err
		}
		p := domain.Product{
			ID:          obj.PK,
			Name:        f.Name,
			Description: f.Description,
			Price:       f.Price,
			Discount:    f.Discount,
			Archived:    f.Archived,
			Preview:     f.Preview,
		}
		if f.CreatedBy != nil {
			p.CreatedByID = *f.CreatedBy
		}
		if f.CreatedAt != nil {
			p.CreatedAt = *f.CreatedAt
		}
		if err := p.Validate(); err != nil {
			return err
		}
		s.Products = append(s.Products, p)
	case ModelOrder:
		var f orderFields
		if err := json.Unmarshal(obj.Fields, &f); err != nil {
			return err
		}
		if f.User <= 0 {
			return fmt.Errorf("%w: order without user", ErrInvalidFixture)
		}
		o := domain.Order{
			ID:              obj.PK,
			DeliveryAddress: f.DeliveryAddress,
			Promocode:       f.Promocode,
			User:            domain.User{ID: f.User},
		}
		if f.CreatedAt != nil {
			o.CreatedAt = *f.CreatedAt
		}
		for _, id := range f.Products {
			o.Products = append(o.Products, domain.Product{ID: id})
		}
		s.Orders = append(s.Orders, o)
	default:
		slog.Debug("fixture model skipped", "model", obj.Model, "pk", obj.PK)
		s.Skipped++
	}
	return nil
}
