package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/shop/internal/core/domain"
	"github.com/niksmo/shop/internal/core/port"
)

const DefaultCacheTTL = 300 * time.Second

var _ port.ProductsExporter = (*Service)(nil)
var _ port.OrdersExporter = (*Service)(nil)
var _ port.ProductsLister = (*Service)(nil)
var _ port.ExportNotifier = (*Service)(nil)

type Service struct {
	productsReader       port.ProductsReader
	ordersReader         port.OrdersReader
	usersReader          port.UsersReader
	cache                port.Cache
	exportEventsProducer port.ExportEventsProducer
	cacheTTL             time.Duration
}

// New returns the export service.
//
// exportEventsProducer may be nil, then export events are dropped.
// Non-positive cacheTTL falls back to [DefaultCacheTTL].
func New(
	productsReader port.ProductsReader,
	ordersReader port.OrdersReader,
	usersReader port.UsersReader,
	cache port.Cache,
	exportEventsProducer port.ExportEventsProducer,
	cacheTTL time.Duration,
) Service {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return Service{
		productsReader,
		ordersReader,
		usersReader,
		cache,
		exportEventsProducer,
		cacheTTL,
	}
}

func (s Service) ExportProducts(ctx context.Context) (domain.Export, error) {
	const op = "Service.ExportProducts"

	if err := ctx.Err(); err != nil {
		return domain.Export{}, fmt.Errorf("%s: %w", op, err)
	}

	export, err := s.cached(ctx, ProductsExportKey(), s.buildProducts)
	if err != nil {
		return domain.Export{}, fmt.Errorf("%s: %w", op, err)
	}
	return export, nil
}

func (s Service) ExportOrders(ctx context.Context) (domain.Export, error) {
	const op = "Service.ExportOrders"

	if err := ctx.Err(); err != nil {
		return domain.Export{}, fmt.Errorf("%s: %w", op, err)
	}

	orders, err := s.ordersReader.ReadOrders(ctx)
	if err != nil {
		return domain.Export{}, fmt.Errorf("%s: %w", op, err)
	}

	records, err := encodeOrders(orders)
	if err != nil {
		return domain.Export{}, fmt.Errorf("%s: %w", op, err)
	}
	return domain.Export{Records: records}, nil
}

// ExportUserOrders exports the orders owned by ownerID.
//
// Returns [domain.ErrNotFound] when the owner does not exist,
// the cache is not touched in that case.
func (s Service) ExportUserOrders(
	ctx context.Context, ownerID int64,
) (domain.Export, error) {
	const op = "Service.ExportUserOrders"

	if err := ctx.Err(); err != nil {
		return domain.Export{}, fmt.Errorf("%s: %w", op, err)
	}

	owner, err := s.usersReader.ReadUser(ctx, ownerID)
	if err != nil {
		return domain.Export{}, fmt.Errorf("%s: %w", op, err)
	}

	build := func(ctx context.Context) (json.RawMessage, error) {
		orders, err := s.ordersReader.ReadUserOrders(ctx, owner.ID)
		if err != nil {
			return nil, err
		}
		return encodeOrders(orders)
	}

	export, err := s.cached(ctx, UserOrdersExportKey(owner.ID), build)
	if err != nil {
		return domain.Export{}, fmt.Errorf("%s: %w", op, err)
	}
	return export, nil
}

func (s Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "Service.ListProducts"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ps, err := s.productsReader.ReadProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

func (s Service) LatestProducts(
	ctx context.Context, limit int,
) ([]domain.Product, error) {
	const op = "Service.LatestProducts"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ps, err := s.productsReader.ReadLatestProducts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

func (s Service) NotifyExport(ctx context.Context, evt domain.ExportEvent) error {
	const op = "Service.NotifyExport"

	if s.exportEventsProducer == nil {
		return nil
	}

	if err := s.exportEventsProducer.ProduceExportEvent(ctx, evt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s Service) buildProducts(ctx context.Context) (json.RawMessage, error) {
	ps, err := s.productsReader.ReadProducts(ctx)
	if err != nil {
		return nil, err
	}
	return encodeProducts(ps)
}

// cached returns the entry stored under key or builds, stores and returns it.
//
// Read-then-write is not atomic: concurrent misses build twice
// and the last write wins.
func (s Service) cached(
	ctx context.Context,
	key string,
	build func(context.Context) (json.RawMessage, error),
) (domain.Export, error) {
	const op = "Service.cached"
	log := slog.With("op", op, "key", key)

	v, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("failed to read cache, rebuilding", "err", err)
	}
	if ok {
		log.Debug("cache hit")
		return domain.Export{Records: v, Cached: true}, nil
	}

	records, err := build(ctx)
	if err != nil {
		return domain.Export{}, err
	}

	if err := s.cache.Set(ctx, key, records, s.cacheTTL); err != nil {
		log.Warn("failed to write cache", "err", err)
	}
	return domain.Export{Records: records}, nil
}
