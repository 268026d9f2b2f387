package service

import (
	"cmp"
	"encoding/json"
	"slices"

	"github.com/niksmo/shop/internal/core/domain"
	"github.com/shopspring/decimal"
)

const priceScale = 2

type (
	productRecord struct {
		PK       int64  `json:"pk"`
		Name     string `json:"name"`
		Price    string `json:"price"`
		Archived bool   `json:"archived"`
	}

	orderRecord struct {
		ID              int64                `json:"id"`
		DeliveryAddress string               `json:"delivery_address"`
		Promocode       string               `json:"promocode"`
		User            userRecord           `json:"user"`
		Products        []orderProductRecord `json:"products"`
	}

	userRecord struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		IsStaff  bool   `json:"is_staff"`
	}

	orderProductRecord struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Price    string `json:"price"`
		Archived bool   `json:"archived"`
	}
)

func formatPrice(d decimal.Decimal) string {
	return d.StringFixed(priceScale)
}

func byID[T any](id func(T) int64) func(a, b T) int {
	return func(a, b T) int {
		return cmp.Compare(id(a), id(b))
	}
}

func encodeProducts(ps []domain.Product) (json.RawMessage, error) {
	ps = slices.Clone(ps)
	slices.SortStableFunc(ps, byID(func(p domain.Product) int64 { return p.ID }))

	rs := make([]productRecord, 0, len(ps))
	for _, p := range ps {
		rs = append(rs, productRecord{
			PK:       p.ID,
			Name:     p.Name,
			Price:    formatPrice(p.Price),
			Archived: p.Archived,
		})
	}
	return json.Marshal(rs)
}

func encodeOrders(orders []domain.Order) (json.RawMessage, error) {
	orders = slices.Clone(orders)
	slices.SortStableFunc(orders, byID(func(o domain.Order) int64 { return o.ID }))

	rs := make([]orderRecord, 0, len(orders))
	for _, o := range orders {
		rs = append(rs, toOrderRecord(o))
	}
	return json.Marshal(rs)
}

func toOrderRecord(o domain.Order) (r orderRecord) {
	r.ID = o.ID
	r.DeliveryAddress = o.DeliveryAddress
	r.Promocode = o.Promocode
	r.User.ID = o.User.ID
	r.User.Username = o.User.Username
	r.User.IsStaff = o.User.IsStaff

	ps := slices.Clone(o.Products)
	slices.SortStableFunc(ps, byID(func(p domain.Product) int64 { return p.ID }))

	r.Products = make([]orderProductRecord, 0, len(ps))
	for _, p := range ps {
		r.Products = append(r.Products, orderProductRecord{
			ID:       p.ID,
			Name:     p.Name,
			Price:    formatPrice(p.Price),
			Archived: p.Archived,
		})
	}
	return
}
