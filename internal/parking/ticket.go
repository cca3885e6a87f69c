package parking

import (
	"fmt"
	"time"
)

const (
	TicketTimeLayout = "2006-01-02 15:04:05"

	BarcodeWidth  = 200
	BarcodeHeight = 80
)

// Ticket is the display-only receipt printed on entry.
type Ticket struct {
	SessionID         string
	VehicleIdentifier string
	EntryTime         time.Time
	Text              string
	// Barcode is a PNG image, nil when rendering failed.
	Barcode []byte
}

func (t *Ticket) HasBarcode() bool {
	return t != nil && len(t.Barcode) > 0
}

type TicketFormatter struct {
	encoder BarcodeEncoder
}

func NewTicketFormatter(encoder BarcodeEncoder) *TicketFormatter {
	return &TicketFormatter{encoder: encoder}
}

func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TicketTimeLayout)
}

func (f *TicketFormatter) Format(vehicleIdentifier string, entryTime time.Time) string {
	return fmt.Sprintf("Parking Ticket\n\nVehicle Number: %s\nEntry Time: %s\n\nPlease keep this ticket for exit.",
		vehicleIdentifier, FormatTimestamp(entryTime))
}

func (f *TicketFormatter) RenderBarcode(vehicleIdentifier string) ([]byte, error) {
	if f.encoder == nil {
		return nil, fmt.Errorf("%w: no barcode encoder configured", ErrBarcode)
	}

	img, err := f.encoder.Encode(vehicleIdentifier, Code128)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBarcode, err)
	}
	return img, nil
}

// Issue always returns a ticket. A non-nil error means only the barcode is missing.
func (f *TicketFormatter) Issue(session *ParkingSession) (*Ticket, error) {
	ticket := &Ticket{
		SessionID:         session.ID,
		VehicleIdentifier: session.VehicleIdentifier,
		EntryTime:         session.EntryTime,
		Text:              f.Format(session.VehicleIdentifier, session.EntryTime),
	}

	img, err := f.RenderBarcode(session.VehicleIdentifier)
	if err != nil {
		return ticket, err
	}
	ticket.Barcode = img
	return ticket, nil
}
