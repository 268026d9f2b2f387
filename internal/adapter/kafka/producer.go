package kafka

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/niksmo/shop/internal/core/domain"
	"github.com/niksmo/shop/internal/core/port"
	"github.com/niksmo/shop/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.ExportEventsProducer = (*ExportEventsProducer)(nil)

// A producer is used for composition.
//
// Producing records to kafka broker and closing underlying [kgo.Client].
type producer struct {
	opPrefix string
	cl       ProducerClient
}

func (p producer) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p producer) produce(
	ctx context.Context, rs ...*kgo.Record,
) error {
	const op = "produce"
	res := p.cl.ProduceSync(ctx, rs...)
	if err := res.FirstErr(); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

// An ExportEventsProducer used for produce [domain.ExportEvent]
type ExportEventsProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
}

func NewExportEventsProducer(
	opts ...ProducerOpt,
) (ExportEventsProducer, error) {
	const op = "NewExportEventsProducer"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return ExportEventsProducer{}, opErr(err, op)
		}
	}

	opPrefix := "ExportEventsProducer"
	p := producer{
		opPrefix: opPrefix,
		cl:       options.cl,
	}

	return ExportEventsProducer{
		producer: p,
		encoder:  options.encoder,
		opPrefix: opPrefix,
	}, nil
}

func (p ExportEventsProducer) Close() {
	p.producer.close()
}

func (p ExportEventsProducer) ProduceExportEvent(
	ctx context.Context, evt domain.ExportEvent,
) error {
	const op = "ProduceExportEvent"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	r, err := p.createRecord(evt)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if err := p.producer.produce(ctx, r); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	return nil
}

// createRecord keys records by owner so one owner's events keep order.
func (p ExportEventsProducer) createRecord(
	evt domain.ExportEvent,
) (*kgo.Record, error) {
	const op = "createRecord"

	s := p.toSchema(evt)
	b, err := p.encoder.Encode(s)
	if err != nil {
		return nil, opErr(err, p.opPrefix, op)
	}
	msgKey := []byte(s.Kind + ":" + strconv.FormatInt(s.OwnerID, 10))
	return &kgo.Record{Key: msgKey, Value: b}, nil
}

func (ExportEventsProducer) toSchema(
	evt domain.ExportEvent,
) (s schema.ExportEventV1) {
	s.Kind = string(evt.Kind)
	s.RequesterID = evt.RequesterID
	s.OwnerID = evt.OwnerID
	s.Cached = evt.Cached
	s.Size = evt.Size
	s.RequestID = evt.RequestID
	s.ServedAtMs = evt.ServedAtMs
	return
}
