package parking

import (
	"errors"
	"testing"
	"time"
)

func TestNewSessionRegistry(t *testing.T) {
	r := NewSessionRegistry()

	if r.Len() != 0 {
		t.Errorf("Expected empty registry, got %d sessions", r.Len())
	}

	if r.IsOpen("B1234XYZ") {
		t.Error("Expected no open session in a new registry")
	}
}

func TestSessionRegistryTryOpen(t *testing.T) {
	r := NewSessionRegistry()

	session, err := r.TryOpen("B1234XYZ", t0)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if session.VehicleIdentifier != "B1234XYZ" {
		t.Errorf("Expected identifier B1234XYZ, got %s", session.VehicleIdentifier)
	}
	if !session.EntryTime.Equal(t0) {
		t.Errorf("Expected entry time %v, got %v", t0, session.EntryTime)
	}
	if session.ID == "" {
		t.Error("Expected session to have an ID")
	}
	if !r.IsOpen("B1234XYZ") {
		t.Error("Expected B1234XYZ to be open")
	}

	_, err = r.TryOpen("B1234XYZ", t0.Add(time.Minute))
	if !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("Expected ErrAlreadyOpen, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 session, got %d", r.Len())
	}

	kept, _ := r.Get("B1234XYZ")
	if !kept.EntryTime.Equal(t0) {
		t.Error("Expected the original entry time to be kept after a duplicate open")
	}
}

func TestSessionRegistryTryCloseWithoutOpen(t *testing.T) {
	r := NewSessionRegistry()
	r.TryOpen("D5678ABC", t0)

	_, err := r.TryClose("UNKNOWN", t0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Expected registry unchanged, got %d sessions", r.Len())
	}
}

func TestSessionRegistryRoundTrip(t *testing.T) {
	r := NewSessionRegistry()
	r.TryOpen("B1234XYZ", t0)

	departure, err := r.TryClose("B1234XYZ", t0.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if departure.Duration() != 90*time.Minute {
		t.Errorf("Expected duration 90m, got %v", departure.Duration())
	}
	if r.IsOpen("B1234XYZ") {
		t.Error("Expected B1234XYZ to be closed")
	}

	_, err = r.TryClose("B1234XYZ", t0.Add(91*time.Minute))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected second close to fail with ErrNotFound, got %v", err)
	}

	if _, err := r.TryOpen("B1234XYZ", t0.Add(2*time.Hour)); err != nil {
		t.Errorf("Expected re-entry after exit to succeed, got %v", err)
	}
}

func TestSessionRegistrySessions(t *testing.T) {
	r := NewSessionRegistry()
	r.TryOpen("C3", t0.Add(2*time.Minute))
	r.TryOpen("B2", t0)
	r.TryOpen("A1", t0)

	sessions := r.Sessions()
	expected := []string{"A1", "B2", "C3"}

	if len(sessions) != len(expected) {
		t.Fatalf("Expected %d sessions, got %d", len(expected), len(sessions))
	}
	for i, session := range sessions {
		if session.VehicleIdentifier != expected[i] {
			t.Errorf("Expected %s at position %d, got %s", expected[i], i, session.VehicleIdentifier)
		}
	}
}

func TestDepartureNegativeDuration(t *testing.T) {
	d := &Departure{Session: NewParkingSession("B1234XYZ", t0), ExitTime: t0.Add(-time.Minute)}

	if d.Duration() != -time.Minute {
		t.Errorf("Expected -1m, got %v", d.Duration())
	}
}
