package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/M-Chimiste/DCSOlympus/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type busMetrics struct {
	processed metric.Int64Counter
	dropped   metric.Int64Counter
}

// newBusMetrics registers the bus instruments. depth reports the number of
// queued commands per kind at collection time.
func newBusMetrics(depth func() map[Kind]int) (*busMetrics, error) {
	m := meter()
	bm := &busMetrics{}

	var err error
	if bm.processed, err = m.Int64Counter("bus.commands.processed",
		metric.WithDescription("Commands handled by queued subscribers")); err != nil {
		return nil, fmt.Errorf("processed counter: %w", err)
	}
	if bm.dropped, err = m.Int64Counter("bus.commands.dropped",
		metric.WithDescription("Commands rejected by a full subscriber queue")); err != nil {
		return nil, fmt.Errorf("dropped counter: %w", err)
	}

	gauge, err := m.Int64ObservableGauge("bus.queue.depth",
		metric.WithDescription("Commands waiting in subscriber queues"))
	if err != nil {
		return nil, fmt.Errorf("queue depth gauge: %w", err)
	}
	if _, err := m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for kind, n := range depth() {
			o.ObserveInt64(gauge, int64(n), metric.WithAttributes(kindAttr(kind)))
		}
		return nil
	}, gauge); err != nil {
		return nil, fmt.Errorf("queue depth callback: %w", err)
	}
	return bm, nil
}

func kindAttr(k Kind) attribute.KeyValue {
	return attribute.String("command", string(k))
}
