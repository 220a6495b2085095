package api

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"vintique.shop/internal/logging"
)

type metrics struct {
	checkouts metric.Int64Counter
	ledger    metric.Int64Counter
}

func newMetrics(logger logging.Logger) metrics {
	meter := otel.Meter(instrumentationName)

	checkouts, err := meter.Int64Counter("shop.checkouts",
		metric.WithDescription("Checkout attempts by outcome"),
		metric.WithUnit("{checkout}"),
	)
	if err != nil {
		logger.Printf("metric shop.checkouts: %v", err)
	}
	ledger, err := meter.Int64Counter("shop.ledger.operations",
		metric.WithDescription("Account fund and withdraw calls by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		logger.Printf("metric shop.ledger.operations: %v", err)
	}
	return metrics{checkouts: checkouts, ledger: ledger}
}

func (m metrics) checkout(ctx context.Context, outcome string) {
	if m.checkouts != nil {
		m.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func (m metrics) ledgerOp(ctx context.Context, op, outcome string) {
	if m.ledger != nil {
		m.ledger.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("outcome", outcome),
		))
	}
}
