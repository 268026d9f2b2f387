package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/niksmo/shop/internal/core/domain"
	"github.com/niksmo/shop/internal/core/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProductsReader struct {
	mock.Mock
}

func (m *MockProductsReader) ReadProducts(
	ctx context.Context,
) ([]domain.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockProductsReader) ReadLatestProducts(
	ctx context.Context, limit int,
) ([]domain.Product, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Product), args.Error(1)
}

type MockOrdersReader struct {
	mock.Mock
}

func (m *MockOrdersReader) ReadOrders(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrdersReader) ReadUserOrders(
	ctx context.Context, userID int64,
) ([]domain.Order, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Order), args.Error(1)
}

type MockUsersReader struct {
	mock.Mock
}

func (m *MockUsersReader) ReadUser(ctx context.Context, id int64) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

type MockExportEventsProducer struct {
	mock.Mock
}

func (m *MockExportEventsProducer) ProduceExportEvent(
	ctx context.Context, evt domain.ExportEvent,
) error {
	return m.Called(ctx, evt).Error(0)
}

type fakeCache struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	gets    int
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *fakeCache) Set(
	_ context.Context, key string, v []byte, ttl time.Duration,
) error {
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = v
	c.ttls[key] = ttl
	return nil
}

func product(id int64, name, price string, archived bool) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Archived: archived,
	}
}

type deps struct {
	products *MockProductsReader
	orders   *MockOrdersReader
	users    *MockUsersReader
	events   *MockExportEventsProducer
	cache    *fakeCache
}

func newDeps() deps {
	return deps{
		products: new(MockProductsReader),
		orders:   new(MockOrdersReader),
		users:    new(MockUsersReader),
		events:   new(MockExportEventsProducer),
		cache:    newFakeCache(),
	}
}

func (d deps) service() service.Service {
	return service.New(d.products, d.orders, d.users, d.cache, d.events, 0)
}

func TestExportProducts(t *testing.T) {
	t.Run("ShapeAndOrder", func(t *testing.T) {
		d := newDeps()
		d.products.On("ReadProducts", mock.Anything).Return([]domain.Product{
			product(2, "B", "5.5", true),
			product(1, "A", "10", false),
		}, nil).Once()

		export, err := d.service().ExportProducts(t.Context())
		require.NoError(t, err)

		expected := `[` +
			`{"pk":1,"name":"A","price":"10.00","archived":false},` +
			`{"pk":2,"name":"B","price":"5.50","archived":true}` +
			`]`
		assert.Equal(t, expected, string(export.Records))
		assert.False(t, export.Cached)
		d.products.AssertExpectations(t)
	})

	t.Run("StoresWithDefaultTTL", func(t *testing.T) {
		d := newDeps()
		d.products.On("ReadProducts", mock.Anything).
			Return([]domain.Product{product(1, "A", "1.00", false)}, nil).Once()

		export, err := d.service().ExportProducts(t.Context())
		require.NoError(t, err)

		key := service.ProductsExportKey()
		assert.Equal(t, []byte(export.Records), d.cache.entries[key])
		assert.Equal(t, service.DefaultCacheTTL, d.cache.ttls[key])
	})

	t.Run("CacheHitSkipsStore", func(t *testing.T) {
		d := newDeps()
		d.products.On("ReadProducts", mock.Anything).
			Return([]domain.Product{product(1, "A", "1.00", false)}, nil).Once()
		s := d.service()

		first, err := s.ExportProducts(t.Context())
		require.NoError(t, err)

		second, err := s.ExportProducts(t.Context())
		require.NoError(t, err)

		assert.True(t, second.Cached)
		assert.Equal(t, first.Records, second.Records)
		d.products.AssertNumberOfCalls(t, "ReadProducts", 1)
	})

	t.Run("RecomputedIsByteIdentical", func(t *testing.T) {
		d := newDeps()
		ps := []domain.Product{
			product(3, "C", "0.99", false),
			product(1, "A", "10.00", false),
			product(2, "B", "5.50", true),
		}
		d.products.On("ReadProducts", mock.Anything).Return(ps, nil)
		d.cache.getErr = errors.New("cache is down")
		s := d.service()

		first, err := s.ExportProducts(t.Context())
		require.NoError(t, err)
		second, err := s.ExportProducts(t.Context())
		require.NoError(t, err)

		assert.Equal(t, string(first.Records), string(second.Records))
		assert.False(t, second.Cached)
		d.products.AssertNumberOfCalls(t, "ReadProducts", 2)
	})

	t.Run("EmptyCatalog", func(t *testing.T) {
		d := newDeps()
		d.products.On("ReadProducts", mock.Anything).
			Return([]domain.Product(nil), nil)

		export, err := d.service().ExportProducts(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "[]", string(export.Records))
	})

	t.Run("CacheSetFailure", func(t *testing.T) {
		d := newDeps()
		d.products.On("ReadProducts", mock.Anything).
			Return([]domain.Product{product(1, "A", "1.00", false)}, nil)
		d.cache.setErr = errors.New("cache is full")

		export, err := d.service().ExportProducts(t.Context())
		require.NoError(t, err)
		assert.NotEmpty(t, export.Records)
	})

	t.Run("StoreFailure", func(t *testing.T) {
		d := newDeps()
		storeErr := errors.New("connection refused")
		d.products.On("ReadProducts", mock.Anything).
			Return([]domain.Product(nil), storeErr)

		_, err := d.service().ExportProducts(t.Context())
		require.ErrorIs(t, err, storeErr)
		assert.Zero(t, d.cache.sets)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		d := newDeps()
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := d.service().ExportProducts(ctx)
		require.ErrorIs(t, err, context.Canceled)
		d.products.AssertNotCalled(t, "ReadProducts", mock.Anything)
	})
}

func aliceOrder() domain.Order {
	return domain.Order{
		ID:              7,
		DeliveryAddress: "ul Vishnevaya, d 12",
		Promocode:       "SALE555",
		User:            domain.User{ID: 3, Username: "alice"},
		Products: []domain.Product{
			product(5, "E", "1.00", true),
			product(2, "B", "5.50", false),
		},
	}
}

func TestExportOrders(t *testing.T) {
	t.Run("NestedShape", func(t *testing.T) {
		d := newDeps()
		d.orders.On("ReadOrders", mock.Anything).
			Return([]domain.Order{aliceOrder()}, nil)

		export, err := d.service().ExportOrders(t.Context())
		require.NoError(t, err)

		expected := `[{"id":7,` +
			`"delivery_address":"ul Vishnevaya, d 12",` +
			`"promocode":"SALE555",` +
			`"user":{"id":3,"username":"alice","is_staff":false},` +
			`"products":[` +
			`{"id":2,"name":"B","price":"5.50","archived":false},` +
			`{"id":5,"name":"E","price":"1.00","archived":true}` +
			`]}]`
		assert.Equal(t, expected, string(export.Records))
	})

	t.Run("OrderWithoutProducts", func(t *testing.T) {
		d := newDeps()
		o := aliceOrder()
		o.Products = nil
		d.orders.On("ReadOrders", mock.Anything).Return([]domain.Order{o}, nil)

		export, err := d.service().ExportOrders(t.Context())
		require.NoError(t, err)
		assert.Contains(t, string(export.Records), `"products":[]`)
	})

	t.Run("SortedByID", func(t *testing.T) {
		d := newDeps()
		first, second := aliceOrder(), aliceOrder()
		first.ID, second.ID = 9, 8
		d.orders.On("ReadOrders", mock.Anything).
			Return([]domain.Order{first, second}, nil)

		export, err := d.service().ExportOrders(t.Context())
		require.NoError(t, err)

		s := string(export.Records)
		assert.Less(t, strings.Index(s, `"id":8`), strings.Index(s, `"id":9`))
	})

	t.Run("NotCached", func(t *testing.T) {
		d := newDeps()
		d.orders.On("ReadOrders", mock.Anything).
			Return([]domain.Order{aliceOrder()}, nil)

		_, err := d.service().ExportOrders(t.Context())
		require.NoError(t, err)
		assert.Zero(t, d.cache.gets)
		assert.Zero(t, d.cache.sets)
	})
}

func TestExportUserOrders(t *testing.T) {
	alice := domain.User{ID: 3, Username: "alice"}

	t.Run("CachedUntilExpiry", func(t *testing.T) {
		d := newDeps()
		d.users.On("ReadUser", mock.Anything, int64(3)).Return(alice, nil)
		d.orders.On("ReadUserOrders", mock.Anything, int64(3)).
			Return([]domain.Order{aliceOrder()}, nil).Once()
		s := d.service()

		first, err := s.ExportUserOrders(t.Context(), 3)
		require.NoError(t, err)
		assert.False(t, first.Cached)

		changed := aliceOrder()
		changed.Promocode = "CHANGED"
		d.orders.On("ReadUserOrders", mock.Anything, int64(3)).
			Return([]domain.Order{changed}, nil)

		second, err := s.ExportUserOrders(t.Context(), 3)
		require.NoError(t, err)
		assert.True(t, second.Cached)
		assert.Equal(t, first.Records, second.Records)
		assert.NotContains(t, string(second.Records), "CHANGED")
		d.orders.AssertNumberOfCalls(t, "ReadUserOrders", 1)

		key := service.UserOrdersExportKey(3)
		assert.Equal(t, service.DefaultCacheTTL, d.cache.ttls[key])
	})

	t.Run("OwnerNotFound", func(t *testing.T) {
		d := newDeps()
		d.users.On("ReadUser", mock.Anything, int64(42)).
			Return(domain.User{}, fmt.Errorf("storage: %w", domain.ErrNotFound))

		_, err := d.service().ExportUserOrders(t.Context(), 42)
		require.ErrorIs(t, err, domain.ErrNotFound)

		assert.Zero(t, d.cache.gets)
		assert.Zero(t, d.cache.sets)
		assert.Empty(t, d.cache.entries)
		d.orders.AssertNotCalled(t, "ReadUserOrders", mock.Anything, mock.Anything)
	})

	t.Run("SeparateKeysPerOwner", func(t *testing.T) {
		d := newDeps()
		bob := domain.User{ID: 4, Username: "bob"}
		bobOrder := aliceOrder()
		bobOrder.ID, bobOrder.User = 8, bob

		d.users.On("ReadUser", mock.Anything, int64(3)).Return(alice, nil)
		d.users.On("ReadUser", mock.Anything, int64(4)).Return(bob, nil)
		d.orders.On("ReadUserOrders", mock.Anything, int64(3)).
			Return([]domain.Order{aliceOrder()}, nil)
		d.orders.On("ReadUserOrders", mock.Anything, int64(4)).
			Return([]domain.Order{bobOrder}, nil)
		s := d.service()

		a, err := s.ExportUserOrders(t.Context(), 3)
		require.NoError(t, err)
		b, err := s.ExportUserOrders(t.Context(), 4)
		require.NoError(t, err)

		assert.NotEqual(t, a.Records, b.Records)
		assert.False(t, b.Cached)
		assert.Len(t, d.cache.entries, 2)
	})
}

func TestNotifyExport(t *testing.T) {
	evt := domain.ExportEvent{Kind: domain.ExportProducts, Size: 2}

	t.Run("Produced", func(t *testing.T) {
		d := newDeps()
		d.events.On("ProduceExportEvent", mock.Anything, evt).Return(nil).Once()

		err := d.service().NotifyExport(t.Context(), evt)
		require.NoError(t, err)
		d.events.AssertExpectations(t)
	})

	t.Run("ProducerFailure", func(t *testing.T) {
		d := newDeps()
		produceErr := errors.New("broker unavailable")
		d.events.On("ProduceExportEvent", mock.Anything, evt).Return(produceErr)

		err := d.service().NotifyExport(t.Context(), evt)
		require.ErrorIs(t, err, produceErr)
	})

	t.Run("NoProducer", func(t *testing.T) {
		d := newDeps()
		s := service.New(d.products, d.orders, d.users, d.cache, nil, time.Minute)
		assert.NoError(t, s.NotifyExport(t.Context(), evt))
	})
}

func TestLatestProducts(t *testing.T) {
	d := newDeps()
	ps := []domain.Product{product(9, "Newest", "1.00", false)}
	d.products.On("ReadLatestProducts", mock.Anything, 5).Return(ps, nil)

	got, err := d.service().LatestProducts(t.Context(), 5)
	require.NoError(t, err)
	assert.Equal(t, ps, got)
}
