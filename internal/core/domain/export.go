package domain

import "encoding/json"

// An Export is an encoded JSON array of flat records.
type Export struct {
	Records json.RawMessage
	Cached  bool
}

// A Principal is the authenticated requester.
//
// The zero value is an anonymous principal.
type Principal struct {
	ID       int64
	Username string
	IsStaff  bool
}

func (p Principal) Anonymous() bool {
	return p.ID == 0
}

type ExportKind string

const (
	ExportProducts   ExportKind = "products"
	ExportOrders     ExportKind = "orders"
	ExportUserOrders ExportKind = "user_orders"
)

// An ExportEvent describes a served export.
type ExportEvent struct {
	Kind        ExportKind
	RequesterID int64
	OwnerID     int64
	Cached      bool
	Size        int
	RequestID   string
	ServedAtMs  int64
}
