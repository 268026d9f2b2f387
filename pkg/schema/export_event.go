package schema

import "github.com/hamba/avro/v2"

const ExportEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "shop",
	"name": "export_event",
	"fields" : [
		{"name": "kind", "type": "string"},
		{"name": "requester_id", "type": "long"},
		{"name": "owner_id", "type": "long"},
		{"name": "cached", "type": "boolean"},
		{"name": "size", "type": "int"},
		{"name": "request_id", "type": "string"},
		{"name": "served_at_ms", "type": "long"}
	]
}`

type ExportEventV1 struct {
	Kind        string `avro:"kind"`
	RequesterID int64  `avro:"requester_id"`
	OwnerID     int64  `avro:"owner_id"`
	Cached      bool   `avro:"cached"`
	Size        int    `avro:"size"`
	RequestID   string `avro:"request_id"`
	ServedAtMs  int64  `avro:"served_at_ms"`
}

// ExportEventV1Avro panics if the schema text is invalid.
func ExportEventV1Avro() avro.Schema {
	return avro.MustParse(ExportEventSchemaTextV1)
}
