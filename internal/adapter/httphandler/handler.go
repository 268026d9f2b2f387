package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/niksmo/shop/internal/core/access"
	"github.com/niksmo/shop/internal/core/domain"
	"github.com/niksmo/shop/internal/core/port"
)

// GET /products/export/ (200 OK)
// GET /orders/export/ Authorization Bearer, staff (200 OK, 302 Found, 403 Forbidden)
// GET /users/{user_id}/orders/export/ Authorization Bearer, owner or staff
//   (200 OK, 302 Found, 403 Forbidden, 404 Not found)

const notifyTimeout = time.Second

type exportRecorder interface {
	RecordExport(kind string, cached bool)
}

type ExportsHandler struct {
	products port.ProductsExporter
	orders   port.OrdersExporter
	notifier port.ExportNotifier
	recorder exportRecorder
	auth     Authenticator
	loginURL string
	pending  *sync.WaitGroup
}

func NewExportsHandler(
	products port.ProductsExporter,
	orders port.OrdersExporter,
	notifier port.ExportNotifier,
	recorder exportRecorder,
	auth Authenticator,
	loginURL string,
) ExportsHandler {
	return ExportsHandler{
		products, orders, notifier, recorder, auth, loginURL, new(sync.WaitGroup),
	}
}

func RegisterExports(mux *http.ServeMux, h ExportsHandler) {
	mux.HandleFunc("GET /products/export/", h.GetProductsExport)
	mux.HandleFunc("GET /orders/export/", h.GetOrdersExport)
	mux.HandleFunc("GET /users/{user_id}/orders/export/", h.GetUserOrdersExport)
}

func (h ExportsHandler) GetProductsExport(w http.ResponseWriter, r *http.Request) {
	const op = "ExportsHandler.GetProductsExport"
	log := slog.With("op", op, "request_id", RequestID(r.Context()))

	principal, ok := h.authorize(w, r, access.Public, 0)
	if !ok {
		return
	}

	export, err := h.products.ExportProducts(r.Context())
	if err != nil {
		h.fail(w, log, err)
		return
	}

	h.write(w, log, "products", export)
	h.served(r, log, domain.ExportProducts, principal, 0, export)
}

func (h ExportsHandler) GetOrdersExport(w http.ResponseWriter, r *http.Request) {
	const op = "ExportsHandler.GetOrdersExport"
	log := slog.With("op", op, "request_id", RequestID(r.Context()))

	principal, ok := h.authorize(w, r, access.StaffOnly, 0)
	if !ok {
		return
	}

	export, err := h.orders.ExportOrders(r.Context())
	if err != nil {
		h.fail(w, log, err)
		return
	}

	h.write(w, log, "orders", export)
	h.served(r, log, domain.ExportOrders, principal, 0, export)
}

func (h ExportsHandler) GetUserOrdersExport(w http.ResponseWriter, r *http.Request) {
	const op = "ExportsHandler.GetUserOrdersExport"
	log := slog.With("op", op, "request_id", RequestID(r.Context()))

	ownerID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil || ownerID <= 0 {
		http.NotFound(w, r)
		return
	}

	principal, ok := h.authorize(w, r, access.OwnerOrStaff, ownerID)
	if !ok {
		return
	}

	export, err := h.orders.ExportUserOrders(r.Context(), ownerID)
	if err != nil {
		h.fail(w, log, err)
		return
	}

	h.write(w, log, "orders", export)
	h.served(r, log, domain.ExportUserOrders, principal, ownerID, export)
}

// authorize resolves the principal and evaluates the policy.
// On rejection the response is written and false is returned.
func (h ExportsHandler) authorize(
	w http.ResponseWriter, r *http.Request, policy access.Policy, ownerID int64,
) (domain.Principal, bool) {
	principal, err := h.auth.Principal(r)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return domain.Principal{}, false
	}

	err = access.Check(principal, policy, ownerID)
	switch {
	case err == nil:
		return principal, true
	case errors.Is(err, domain.ErrUnauthenticated):
		h.redirectToLogin(w, r)
	default:
		http.Error(w, "forbidden", http.StatusForbidden)
	}

	slog.Info("access denied",
		"request_id", RequestID(r.Context()),
		"policy", policy.String(),
		"user_id", principal.ID,
		"owner_id", ownerID,
	)
	return domain.Principal{}, false
}

func (h ExportsHandler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := h.loginURL + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusFound)
}

func (h ExportsHandler) fail(w http.ResponseWriter, log *slog.Logger, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		log.Info("not found", "err", err)
		return
	}
	http.Error(w, "failed to export", http.StatusInternalServerError)
	log.Error("failed to export", "err", err)
}

func (h ExportsHandler) write(
	w http.ResponseWriter, log *slog.Logger, name string, export domain.Export,
) {
	body, err := json.Marshal(map[string]json.RawMessage{name: export.Records})
	if err != nil {
		http.Error(w, "failed to export", http.StatusInternalServerError)
		log.Error("failed to encode response", "err", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error("failed to write response body", "err", err)
		return
	}
	log.Info("exported", "cached", export.Cached, "bytes", len(export.Records))
}

// served records the export and publishes its event in the background,
// a failed notification never affects the response.
func (h ExportsHandler) served(
	r *http.Request,
	log *slog.Logger,
	kind domain.ExportKind,
	principal domain.Principal,
	ownerID int64,
	export domain.Export,
) {
	h.recorder.RecordExport(string(kind), export.Cached)

	evt := domain.ExportEvent{
		Kind:        kind,
		RequesterID: principal.ID,
		OwnerID:     ownerID,
		Cached:      export.Cached,
		Size:        len(export.Records),
		RequestID:   RequestID(r.Context()),
		ServedAtMs:  time.Now().UnixMilli(),
	}
	ctx := context.WithoutCancel(r.Context())

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()

		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()

		if err := h.notifier.NotifyExport(ctx, evt); err != nil {
			log.Warn("failed to notify export", "err", err)
		}
	}()
}

// Drain waits for the export events still being published or for ctx.
func (h ExportsHandler) Drain(ctx context.Context) {
	const op = "ExportsHandler.Drain"

	done := make(chan struct{})
	go func() {
		h.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("export events left unpublished", "op", op, "err", ctx.Err())
	}
}
