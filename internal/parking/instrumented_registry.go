package parking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentedRegistry struct {
	*SessionRegistry
	telemetry *TelemetryProvider

	// Metrics
	entryOperations   metric.Int64Counter
	exitOperations    metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
}

func NewInstrumentedRegistry(registry *SessionRegistry, telemetry *TelemetryProvider) (*InstrumentedRegistry, error) {
	meter := telemetry.Meter()

	entryOperations, err := meter.Int64Counter("parking_entries_total",
		metric.WithDescription("Total number of vehicle entry attempts"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	exitOperations, err := meter.Int64Counter("parking_exits_total",
		metric.WithDescription("Total number of vehicle exit attempts"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of vehicles inside the lot"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of session registry operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedRegistry{
		SessionRegistry:   registry,
		telemetry:         telemetry,
		entryOperations:   entryOperations,
		exitOperations:    exitOperations,
		occupancyGauge:    occupancyGauge,
		operationDuration: operationDuration,
	}, nil
}

func (ir *InstrumentedRegistry) TryOpen(ctx context.Context, vehicleIdentifier string, at time.Time) (*ParkingSession, error) {
	ctx, span := ir.telemetry.Tracer().Start(ctx, "session_registry.open",
		trace.WithAttributes(
			attribute.String("vehicle.identifier", vehicleIdentifier),
		))
	defer span.End()

	start := time.Now()

	session, err := ir.SessionRegistry.TryOpen(vehicleIdentifier, at)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "open"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "already_open"))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(attribute.String("session.id", session.ID))
		span.AddEvent("session_opened")
		ir.occupancyGauge.Add(ctx, 1)
	}

	ir.entryOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ir.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return session, err
}

func (ir *InstrumentedRegistry) TryClose(ctx context.Context, vehicleIdentifier string, at time.Time) (*Departure, error) {
	ctx, span := ir.telemetry.Tracer().Start(ctx, "session_registry.close",
		trace.WithAttributes(
			attribute.String("vehicle.identifier", vehicleIdentifier),
		))
	defer span.End()

	start := time.Now()

	departure, err := ir.SessionRegistry.TryClose(vehicleIdentifier, at)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "close"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "not_found"))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(
			attribute.String("session.id", departure.Session.ID),
			attribute.Float64("session.duration_seconds", departure.Duration().Seconds()),
		)
		span.AddEvent("session_closed")
		ir.occupancyGauge.Add(ctx, -1)
	}

	ir.exitOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ir.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return departure, err
}

func (ir *InstrumentedRegistry) IsOpen(ctx context.Context, vehicleIdentifier string) bool {
	_, span := ir.telemetry.Tracer().Start(ctx, "session_registry.lookup",
		trace.WithAttributes(
			attribute.String("vehicle.identifier", vehicleIdentifier),
		))
	defer span.End()

	open := ir.SessionRegistry.IsOpen(vehicleIdentifier)
	span.SetAttributes(attribute.Bool("session.open", open))
	return open
}
