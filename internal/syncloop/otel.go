package syncloop

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/M-Chimiste/DCSOlympus/internal/syncloop"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	appliedCounter metric.Int64Counter
	staleCounter   metric.Int64Counter
	failedCounter  metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := meter()
	var err error
	out := &metrics{}

	out.appliedCounter, err = m.Int64Counter(
		"sync.responses.applied",
		metric.WithDescription("Unit responses applied to the store"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating applied counter: %w", err)
	}

	out.staleCounter, err = m.Int64Counter(
		"sync.responses.stale",
		metric.WithDescription("Unit responses dropped because a newer one was applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stale counter: %w", err)
	}

	out.failedCounter, err = m.Int64Counter(
		"sync.requests.failed",
		metric.WithDescription("Ingest requests that returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return out, nil
}

func cycleAttr(cycle string) metric.AddOption {
	return metric.WithAttributes(attribute.String("cycle", cycle))
}

func (m *metrics) applied(ctx context.Context, cycle string) {
	m.appliedCounter.Add(context.WithoutCancel(ctx), 1, cycleAttr(cycle))
}

func (m *metrics) stale(ctx context.Context, cycle string) {
	m.staleCounter.Add(context.WithoutCancel(ctx), 1, cycleAttr(cycle))
}

func (m *metrics) failed(ctx context.Context, cycle string) {
	m.failedCounter.Add(context.WithoutCancel(ctx), 1, cycleAttr(cycle))
}
