package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"orderagent"
)

// InstrumentedEngine wraps an Engine with tracing and turn metrics.
type InstrumentedEngine struct {
	engine *Engine
	tracer trace.Tracer

	turnsCounter        metric.Int64Counter
	fallbacksCounter    metric.Int64Counter
	genFailuresCounter  metric.Int64Counter
	droppedLinesCounter metric.Int64Counter
	repairedCounter     metric.Int64Counter
	latencyHist         metric.Float64Histogram
	orderLinesGauge     metric.Int64Gauge
}

// NewInstrumentedEngine registers the engine's instruments with meter.
func NewInstrumentedEngine(e *Engine, tracer trace.Tracer, meter metric.Meter) (*InstrumentedEngine, error) {
	ie := &InstrumentedEngine{engine: e, tracer: tracer}

	var err error
	if ie.turnsCounter, err = meter.Int64Counter("turns_total",
		metric.WithDescription("Total number of turns processed")); err != nil {
		return nil, fmt.Errorf("failed to create turns counter: %w", err)
	}
	if ie.fallbacksCounter, err = meter.Int64Counter("turn_fallbacks_total",
		metric.WithDescription("Total number of turns answered with the fallback reply")); err != nil {
		return nil, fmt.Errorf("failed to create fallbacks counter: %w", err)
	}
	if ie.genFailuresCounter, err = meter.Int64Counter("generation_failures_total",
		metric.WithDescription("Total number of failed generation calls")); err != nil {
		return nil, fmt.Errorf("failed to create generation failures counter: %w", err)
	}
	if ie.droppedLinesCounter, err = meter.Int64Counter("order_lines_dropped_total",
		metric.WithDescription("Total number of proposed order lines removed by the sanitizer")); err != nil {
		return nil, fmt.Errorf("failed to create dropped lines counter: %w", err)
	}
	if ie.repairedCounter, err = meter.Int64Counter("order_lines_repaired_total",
		metric.WithDescription("Total number of proposed order lines kept with a defaulted quantity")); err != nil {
		return nil, fmt.Errorf("failed to create repaired lines counter: %w", err)
	}
	if ie.latencyHist, err = meter.Float64Histogram("generation_latency_seconds",
		metric.WithDescription("Time taken by the generation service in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create latency histogram: %w", err)
	}
	if ie.orderLinesGauge, err = meter.Int64Gauge("order_lines",
		metric.WithDescription("Number of lines in the order after the latest turn")); err != nil {
		return nil, fmt.Errorf("failed to create order lines gauge: %w", err)
	}

	return ie, nil
}

// Respond runs the turn and records its outcome.
func (ie *InstrumentedEngine) Respond(ctx context.Context, history []orderagent.Turn) (orderagent.TurnResult, error) {
	ctx, span := ie.tracer.Start(ctx, "InstrumentedEngine.Respond")
	defer span.End()

	span.AddEvent("Recovering state", trace.WithAttributes(
		attribute.Int("history_len", len(history)),
	))

	res, outcome, err := ie.engine.respond(ctx, history)
	if err != nil {
		span.SetStatus(codes.Error, "Turn failed")
		span.RecordError(err)
		return res, err
	}

	ie.turnsCounter.Add(ctx, 1)
	ie.latencyHist.Record(ctx, outcome.Latency.Seconds())
	ie.orderLinesGauge.Record(ctx, int64(len(res.Order)))

	if outcome.GenerationErr != nil {
		ie.genFailuresCounter.Add(ctx, 1)
		span.RecordError(outcome.GenerationErr)
	}
	if outcome.Fallback() {
		reason := "malformed_output"
		if outcome.GenerationErr != nil {
			reason = "generation_failed"
		}
		ie.fallbacksCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
		span.AddEvent("Fallback reply used", trace.WithAttributes(attribute.String("reason", reason)))
		slog.Warn("ENGINE: Turn answered with fallback", "reason", reason)
	}
	if n := len(outcome.Dropped); n > 0 {
		ie.droppedLinesCounter.Add(ctx, int64(n))
		span.AddEvent("Order lines dropped", trace.WithAttributes(attribute.Int("count", n)))
	}
	if n := len(outcome.Repaired); n > 0 {
		ie.repairedCounter.Add(ctx, int64(n))
	}

	span.SetAttributes(
		attribute.Bool("fallback", outcome.Fallback()),
		attribute.String("step_number", res.StepNumber),
		attribute.Int("order_lines", len(res.Order)),
		attribute.Float64("generation_latency_seconds", outcome.Latency.Seconds()),
	)
	return res, nil
}
