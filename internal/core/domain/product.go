package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const maxDiscount = 100

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Discount    int
	Archived    bool
	Preview     string
	CreatedByID int64
	CreatedAt   time.Time
}

// Validate reports whether p holds a non-negative price
// and a discount in percents.
func (p Product) Validate() error {
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: negative price %s", ErrInvalidProduct, p.Price)
	}
	if p.Discount < 0 || p.Discount > maxDiscount {
		return fmt.Errorf(
			"%w: discount %d out of [0,%d]", ErrInvalidProduct, p.Discount, maxDiscount,
		)
	}
	return nil
}
