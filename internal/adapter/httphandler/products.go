package httphandler

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/feeds"
	"github.com/niksmo/shop/internal/core/domain"
	"github.com/niksmo/shop/internal/core/port"
)

// GET /products/latest/feed/ (200 OK, RSS 2.0)
// GET /api/products/download_csv/ (200 OK, text/csv attachment)

const (
	latestFeedSize  = 5
	productsListURL = "/products/"
	csvFilename     = "products-export.csv"
)

var csvHeader = []string{"name", "description", "price", "discount"}

type ProductsHandler struct {
	lister port.ProductsLister
}

func RegisterProducts(mux *http.ServeMux, lister port.ProductsLister) {
	h := ProductsHandler{lister}
	mux.HandleFunc("GET /products/latest/feed/", h.GetLatestFeed)
	mux.HandleFunc("GET /api/products/download_csv/", h.GetProductsCSV)
}

func (h ProductsHandler) GetLatestFeed(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.GetLatestFeed"
	log := slog.With("op", op, "request_id", RequestID(r.Context()))

	ps, err := h.lister.LatestProducts(r.Context(), latestFeedSize)
	if err != nil {
		http.Error(w, "failed to build feed", http.StatusInternalServerError)
		log.Error("failed to read latest products", "err", err)
		return
	}

	rss, err := h.toFeed(ps).ToRss()
	if err != nil {
		http.Error(w, "failed to build feed", http.StatusInternalServerError)
		log.Error("failed to encode feed", "err", err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write([]byte(rss)); err != nil {
		log.Error("failed to write response body", "err", err)
	}
}

func (h ProductsHandler) toFeed(ps []domain.Product) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       "New products",
		Description: "Info on addition new products",
		Link:        &feeds.Link{Href: productsListURL},
	}
	for _, p := range ps {
		link := fmt.Sprintf("%s%d/", productsListURL, p.ID)
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          link,
			Title:       p.Name,
			Description: p.Price.StringFixed(2) + "$",
			Link:        &feeds.Link{Href: link},
			Created:     p.CreatedAt,
		})
	}
	if len(ps) != 0 {
		feed.Created = ps[0].CreatedAt
	}
	return feed
}

func (h ProductsHandler) GetProductsCSV(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.GetProductsCSV"
	log := slog.With("op", op, "request_id", RequestID(r.Context()))

	ps, err := h.lister.ListProducts(r.Context())
	if err != nil {
		http.Error(w, "failed to export", http.StatusInternalServerError)
		log.Error("failed to read products", "err", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set(
		"Content-Disposition", "attachment; filename="+csvFilename,
	)

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		log.Error("failed to write csv header", "err", err)
		return
	}
	for _, p := range ps {
		row := []string{
			p.Name,
			p.Description,
			p.Price.StringFixed(2),
			strconv.Itoa(p.Discount),
		}
		if err := cw.Write(row); err != nil {
			log.Error("failed to write csv row", "err", err)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Error("failed to flush csv", "err", err)
		return
	}

	log.Info("exported csv", "nProducts", len(ps))
}
