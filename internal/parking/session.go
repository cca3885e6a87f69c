package parking

import (
	"time"

	"github.com/google/uuid"
)

// ParkingSession is one vehicle currently inside the lot.
type ParkingSession struct {
	ID                string
	VehicleIdentifier string
	EntryTime         time.Time
}

func NewParkingSession(vehicleIdentifier string, entryTime time.Time) *ParkingSession {
	return &ParkingSession{
		ID:                uuid.NewString(),
		VehicleIdentifier: vehicleIdentifier,
		EntryTime:         entryTime,
	}
}

// Departure is a session closed at ExitTime.
type Departure struct {
	Session  *ParkingSession
	ExitTime time.Time
}

// Duration may be negative when the clock moved backwards between entry and exit.
func (d *Departure) Duration() time.Duration {
	return d.ExitTime.Sub(d.Session.EntryTime)
}
