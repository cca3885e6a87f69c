package parking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parking-attendant/internal/logging"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type EntryReceipt struct {
	Session *ParkingSession
	Ticket  *Ticket
	// BarcodeErr is set when the ticket was issued without an image.
	BarcodeErr error
}

type ExitReceipt struct {
	Departure *Departure
	Duration  time.Duration
	Fee       Money
}

// Attendant runs the entry and exit workflow against the registry and the form.
type Attendant struct {
	registry  *InstrumentedRegistry
	fees      FeeCalculator
	money     *MoneyFormatter
	tickets   *TicketFormatter
	form      *Form
	publisher EventPublisher
	now       func() time.Time
	telemetry *TelemetryProvider

	feeAmount       metric.Int64Histogram
	sessionDuration metric.Float64Histogram
}

type AttendantOption func(*Attendant)

func WithClock(now func() time.Time) AttendantOption {
	return func(a *Attendant) {
		a.now = now
	}
}

func WithEventPublisher(publisher EventPublisher) AttendantOption {
	return func(a *Attendant) {
		a.publisher = publisher
	}
}

func WithMoneyFormatter(money *MoneyFormatter) AttendantOption {
	return func(a *Attendant) {
		a.money = money
	}
}

func NewAttendant(registry *InstrumentedRegistry, fees FeeCalculator, tickets *TicketFormatter, form *Form, telemetry *TelemetryProvider, opts ...AttendantOption) (*Attendant, error) {
	meter := telemetry.Meter()

	feeAmount, err := meter.Int64Histogram("parking_fee_amount",
		metric.WithDescription("Fee charged on exit in currency minor units"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	sessionDuration, err := meter.Float64Histogram("parking_session_duration_seconds",
		metric.WithDescription("Time between entry and exit"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	a := &Attendant{
		registry:        registry,
		fees:            fees,
		money:           NewMoneyFormatter("Rp"),
		tickets:         tickets,
		form:            form,
		now:             time.Now,
		telemetry:       telemetry,
		feeAmount:       feeAmount,
		sessionDuration: sessionDuration,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Enter opens a session for the identifier and issues its ticket.
func (a *Attendant) Enter(ctx context.Context, input string) (*EntryReceipt, error) {
	vehicleIdentifier := strings.TrimSpace(input)
	if vehicleIdentifier == "" {
		return nil, ErrEmptyInput
	}

	session, err := a.registry.TryOpen(ctx, vehicleIdentifier, a.now())
	if err != nil {
		return nil, err
	}

	ticket, barcodeErr := a.tickets.Issue(session)
	if barcodeErr != nil {
		logging.Warn(ctx).Err(barcodeErr).Str("vehicle", vehicleIdentifier).Msg("ticket issued without barcode")
	}

	a.publishEntry(ctx, session)

	return &EntryReceipt{Session: session, Ticket: ticket, BarcodeErr: barcodeErr}, nil
}

// Exit closes the identifier's session and computes the fee.
func (a *Attendant) Exit(ctx context.Context, input string) (*ExitReceipt, error) {
	vehicleIdentifier := strings.TrimSpace(input)
	if vehicleIdentifier == "" {
		return nil, ErrEmptyInput
	}

	departure, err := a.registry.TryClose(ctx, vehicleIdentifier, a.now())
	if err != nil {
		return nil, err
	}

	duration := departure.Duration()
	fee := a.fees.ComputeFee(duration)

	a.feeAmount.Record(ctx, int64(fee))
	a.sessionDuration.Record(ctx, duration.Seconds())
	a.publishExit(ctx, departure, fee)

	return &ExitReceipt{Departure: departure, Duration: duration, Fee: fee}, nil
}

// SubmitEntry runs Enter on the form's entry field and reports the outcome.
func (a *Attendant) SubmitEntry(ctx context.Context, n Notifier) (*EntryReceipt, error) {
	ctx, span := a.telemetry.Tracer().Start(ctx, "attendant.submit_entry")
	defer span.End()

	receipt, err := a.Enter(ctx, a.form.EntryIdentifier)
	switch {
	case errors.Is(err, ErrEmptyInput):
		n.Notify(SeverityWarning, "Input Error", "Please enter a vehicle number.")
	case errors.Is(err, ErrAlreadyOpen):
		n.Notify(SeverityWarning, "Duplicate Entry", "This vehicle is already in the parking lot.")
	case err != nil:
		n.Notify(SeverityError, "Entry Error", err.Error())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	session := receipt.Session
	span.SetAttributes(attribute.String("session.id", session.ID))

	n.Notify(SeverityInfo, "Entry Recorded",
		fmt.Sprintf("Vehicle %s entered at %s", session.VehicleIdentifier, FormatTimestamp(session.EntryTime)))
	a.form.EntryIdentifier = ""
	a.form.Ticket = receipt.Ticket

	if receipt.BarcodeErr != nil {
		span.AddEvent("barcode_failed", trace.WithAttributes(
			attribute.String("error", receipt.BarcodeErr.Error()),
		))
		n.Notify(SeverityError, "Barcode Error", fmt.Sprintf("Failed to generate barcode: %v", receipt.BarcodeErr))
	}

	return receipt, nil
}

// SubmitExit runs Exit on the form's exit field and reports the outcome.
func (a *Attendant) SubmitExit(ctx context.Context, n Notifier) (*ExitReceipt, error) {
	ctx, span := a.telemetry.Tracer().Start(ctx, "attendant.submit_exit")
	defer span.End()

	receipt, err := a.Exit(ctx, a.form.ExitIdentifier)
	switch {
	case errors.Is(err, ErrEmptyInput):
		n.Notify(SeverityWarning, "Input Error", "Please enter a vehicle number.")
	case errors.Is(err, ErrNotFound):
		n.Notify(SeverityWarning, "Not Found", "This vehicle is not found in the parking lot.")
	case err != nil:
		n.Notify(SeverityError, "Exit Error", err.Error())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("session.id", receipt.Departure.Session.ID),
		attribute.Int64("parking.fee", int64(receipt.Fee)),
	)

	n.Notify(SeverityInfo, "Payment Due",
		fmt.Sprintf("Vehicle %s exited.\nDuration: %s\nFee: %s",
			receipt.Departure.Session.VehicleIdentifier,
			FormatDuration(receipt.Duration),
			a.money.Format(receipt.Fee)))
	a.form.ExitIdentifier = ""
	a.form.ClearTicket()

	return receipt, nil
}

func (a *Attendant) publishEntry(ctx context.Context, session *ParkingSession) {
	if a.publisher == nil {
		return
	}
	err := a.publisher.PublishEntry(ctx, EntryEvent{
		SessionID:    session.ID,
		VehiclePlate: session.VehicleIdentifier,
		EntryTime:    session.EntryTime,
	})
	if err != nil {
		logging.Warn(ctx).Err(err).Str("session", session.ID).Msg("publish entry event")
	}
}

func (a *Attendant) publishExit(ctx context.Context, departure *Departure, fee Money) {
	if a.publisher == nil {
		return
	}
	err := a.publisher.PublishExit(ctx, ExitEvent{
		SessionID:       departure.Session.ID,
		VehiclePlate:    departure.Session.VehicleIdentifier,
		EntryTime:       departure.Session.EntryTime,
		ExitTime:        departure.ExitTime,
		DurationSeconds: int64(departure.Duration() / time.Second),
		Fee:             fee,
	})
	if err != nil {
		logging.Warn(ctx).Err(err).Str("session", departure.Session.ID).Msg("publish exit event")
	}
}
