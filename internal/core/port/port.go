package port

import (
	"context"
	"time"

	"github.com/niksmo/shop/internal/core/domain"
)

type ProductsExporter interface {
	ExportProducts(context.Context) (domain.Export, error)
}

type OrdersExporter interface {
	ExportOrders(context.Context) (domain.Export, error)
	ExportUserOrders(ctx context.Context, ownerID int64) (domain.Export, error)
}

type ProductsLister interface {
	ListProducts(context.Context) ([]domain.Product, error)
	LatestProducts(ctx context.Context, limit int) ([]domain.Product, error)
}

// ProductsReader returns products ascending by id.
type ProductsReader interface {
	ReadProducts(context.Context) ([]domain.Product, error)
	ReadLatestProducts(ctx context.Context, limit int) ([]domain.Product, error)
}

// OrdersReader returns orders ascending by id with
// the owner and the products attached.
type OrdersReader interface {
	ReadOrders(context.Context) ([]domain.Order, error)
	ReadUserOrders(ctx context.Context, userID int64) ([]domain.Order, error)
}

type UsersReader interface {
	ReadUser(ctx context.Context, id int64) (domain.User, error)
}

// Cache is a key-value store with per-entry expiry.
//
// Get reports a miss with ok == false and nil error.
type Cache interface {
	Get(ctx context.Context, key string) (v []byte, ok bool, err error)
	Set(ctx context.Context, key string, v []byte, ttl time.Duration) error
}

type ExportEventsProducer interface {
	ProduceExportEvent(context.Context, domain.ExportEvent) error
}

type ExportNotifier interface {
	NotifyExport(context.Context, domain.ExportEvent) error
}
