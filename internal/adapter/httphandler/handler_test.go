package httphandler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/niksmo/shop/internal/adapter/httphandler"
	"github.com/niksmo/shop/internal/adapter/metrics"
	"github.com/niksmo/shop/internal/core/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret"
	testLoginURL = "/accounts/login/"
)

type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) ExportProducts(ctx context.Context) (domain.Export, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Export), args.Error(1)
}

func (m *MockExporter) ExportOrders(ctx context.Context) (domain.Export, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Export), args.Error(1)
}

func (m *MockExporter) ExportUserOrders(
	ctx context.Context, ownerID int64,
) (domain.Export, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(domain.Export), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyExport(ctx context.Context, evt domain.ExportEvent) error {
	return m.Called(ctx, evt).Error(0)
}

type fixture struct {
	exporter *MockExporter
	notifier *MockNotifier
	auth     httphandler.Authenticator
	handler  httphandler.ExportsHandler
	mux      *http.ServeMux
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		exporter: new(MockExporter),
		notifier: new(MockNotifier),
		auth:     httphandler.NewAuthenticator(testSecret),
		mux:      http.NewServeMux(),
	}
	f.notifier.On("NotifyExport", mock.Anything, mock.Anything).Return(nil).Maybe()

	f.handler = httphandler.NewExportsHandler(
		f.exporter,
		f.exporter,
		f.notifier,
		metrics.New(prometheus.NewRegistry()),
		f.auth,
		testLoginURL,
	)
	httphandler.RegisterExports(f.mux, f.handler)
	return f
}

func (f fixture) do(
	t *testing.T, path string, principal *domain.Principal,
) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if principal != nil {
		token, err := f.auth.Issue(*principal, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	f.handler.Drain(t.Context())
	return rec
}

var (
	staff = &domain.Principal{ID: 1, Username: "admin", IsStaff: true}
	alice = &domain.Principal{ID: 3, Username: "alice"}
)

const ordersRecords = `[{"id":7,"delivery_address":"ul Vishnevaya, d 12",` +
	`"promocode":"SALE555",` +
	`"user":{"id":3,"username":"alice","is_staff":false},` +
	`"products":[{"id":2,"name":"B","price":"5.50","archived":false}]}]`

func TestGetProductsExport(t *testing.T) {
	t.Run("Anonymous", func(t *testing.T) {
		f := newFixture(t)
		records := `[{"pk":1,"name":"A","price":"10.00","archived":false},` +
			`{"pk":2,"name":"B","price":"5.50","archived":true}]`
		f.exporter.On("ExportProducts", mock.Anything).
			Return(domain.Export{Records: []byte(records)}, nil)

		rec := f.do(t, "/products/export/", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, `{"products":`+records+`}`, rec.Body.String())
		f.notifier.AssertCalled(t, "NotifyExport", mock.Anything,
			mock.MatchedBy(func(evt domain.ExportEvent) bool {
				return evt.Kind == domain.ExportProducts && evt.RequesterID == 0
			}),
		)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/products/export/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		f.exporter.AssertNotCalled(t, "ExportProducts", mock.Anything)
	})

	t.Run("ServiceFailure", func(t *testing.T) {
		f := newFixture(t)
		f.exporter.On("ExportProducts", mock.Anything).
			Return(domain.Export{}, fmt.Errorf("db is down"))

		rec := f.do(t, "/products/export/", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		f.notifier.AssertNotCalled(t, "NotifyExport", mock.Anything, mock.Anything)
	})

	t.Run("NotifierFailureIgnored", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.ExpectedCalls = nil
		f.notifier.On("NotifyExport", mock.Anything, mock.Anything).
			Return(fmt.Errorf("broker is down"))
		f.exporter.On("ExportProducts", mock.Anything).
			Return(domain.Export{Records: []byte(`[]`)}, nil)

		rec := f.do(t, "/products/export/", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"products":[]}`, rec.Body.String())
	})
}

func TestGetOrdersExport(t *testing.T) {
	t.Run("Staff", func(t *testing.T) {
		f := newFixture(t)
		f.exporter.On("ExportOrders", mock.Anything).
			Return(domain.Export{Records: []byte(ordersRecords)}, nil)

		rec := f.do(t, "/orders/export/", staff)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"orders":`+ordersRecords+`}`, rec.Body.String())
	})

	t.Run("AnonymousRedirectsToLogin", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(t, "/orders/export/", nil)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t,
			testLoginURL+"?next=%2Forders%2Fexport%2F",
			rec.Header().Get("Location"),
		)
		f.exporter.AssertNotCalled(t, "ExportOrders", mock.Anything)
	})

	t.Run("NonStaffForbidden", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(t, "/orders/export/", alice)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		f.exporter.AssertNotCalled(t, "ExportOrders", mock.Anything)
	})
}

func TestGetUserOrdersExport(t *testing.T) {
	t.Run("Owner", func(t *testing.T) {
		f := newFixture(t)
		f.exporter.On("ExportUserOrders", mock.Anything, int64(3)).
			Return(domain.Export{Records: []byte(ordersRecords), Cached: true}, nil)

		rec := f.do(t, "/users/3/orders/export/", alice)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"orders":`+ordersRecords+`}`, rec.Body.String())
		f.notifier.AssertCalled(t, "NotifyExport", mock.Anything,
			mock.MatchedBy(func(evt domain.ExportEvent) bool {
				return evt.Kind == domain.ExportUserOrders &&
					evt.OwnerID == 3 && evt.RequesterID == 3 && evt.Cached
			}),
		)
	})

	t.Run("StaffForOtherUser", func(t *testing.T) {
		f := newFixture(t)
		f.exporter.On("ExportUserOrders", mock.Anything, int64(3)).
			Return(domain.Export{Records: []byte(`[]`)}, nil)

		rec := f.do(t, "/users/3/orders/export/", staff)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"orders":[]}`, rec.Body.String())
	})

	t.Run("OtherUserForbiddenBeforeExport", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(t, "/users/4/orders/export/", alice)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		f.exporter.AssertNotCalled(t, "ExportUserOrders", mock.Anything, mock.Anything)
	})

	t.Run("AnonymousRedirectsToLogin", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(t, "/users/3/orders/export/", nil)
		assert.Equal(t, http.StatusFound, rec.Code)
		f.exporter.AssertNotCalled(t, "ExportUserOrders", mock.Anything, mock.Anything)
	})

	t.Run("OwnerNotFound", func(t *testing.T) {
		f := newFixture(t)
		f.exporter.On("ExportUserOrders", mock.Anything, int64(42)).
			Return(domain.Export{}, fmt.Errorf("service: %w", domain.ErrNotFound))

		rec := f.do(t, "/users/42/orders/export/", staff)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("NonIntegerID", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(t, "/users/abc/orders/export/", staff)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		f.exporter.AssertNotCalled(t, "ExportUserOrders", mock.Anything, mock.Anything)
	})
}
