package parking

import (
	"context"
	"sync"
)

// Desk serializes every shell action onto one logical thread of control.
// Identifiers passed as "" keep the current form field, so a captured
// identifier can be submitted without retyping it.
type Desk struct {
	mu        sync.Mutex
	attendant *Attendant
	capturer  *Capturer
	registry  *InstrumentedRegistry
	form      *Form
}

func NewDesk(attendant *Attendant, capturer *Capturer, registry *InstrumentedRegistry, form *Form) *Desk {
	return &Desk{
		attendant: attendant,
		capturer:  capturer,
		registry:  registry,
		form:      form,
	}
}

func (d *Desk) SubmitEntry(ctx context.Context, identifier string, n Notifier) (*EntryReceipt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if identifier != "" {
		d.form.EntryIdentifier = identifier
	}
	return d.attendant.SubmitEntry(ctx, n)
}

func (d *Desk) SubmitExit(ctx context.Context, identifier string, n Notifier) (*ExitReceipt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if identifier != "" {
		d.form.ExitIdentifier = identifier
	}
	return d.attendant.SubmitExit(ctx, n)
}

func (d *Desk) CaptureIdentifier(ctx context.Context, keys KeySource, preview PreviewSink, n Notifier) (*CaptureResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.capturer.Capture(ctx, keys, preview, n)
}

// Snapshot returns a copy of the form.
func (d *Desk) Snapshot() Form {
	d.mu.Lock()
	defer d.mu.Unlock()

	return *d.form
}

func (d *Desk) IsOpen(ctx context.Context, vehicleIdentifier string) (*ParkingSession, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.registry.IsOpen(ctx, vehicleIdentifier) {
		return nil, false
	}
	return d.registry.Get(vehicleIdentifier)
}

func (d *Desk) Sessions() []*ParkingSession {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.registry.Sessions()
}
