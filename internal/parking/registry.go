package parking

import (
	"sort"
	"time"
)

// SessionRegistry holds the open sessions keyed by vehicle identifier.
// It is not safe for concurrent use; callers serialize access (see Desk).
type SessionRegistry struct {
	sessions map[string]*ParkingSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*ParkingSession),
	}
}

func (r *SessionRegistry) TryOpen(vehicleIdentifier string, at time.Time) (*ParkingSession, error) {
	if _, ok := r.sessions[vehicleIdentifier]; ok {
		return nil, ErrAlreadyOpen
	}

	session := NewParkingSession(vehicleIdentifier, at)
	r.sessions[vehicleIdentifier] = session
	return session, nil
}

func (r *SessionRegistry) TryClose(vehicleIdentifier string, at time.Time) (*Departure, error) {
	session, ok := r.sessions[vehicleIdentifier]
	if !ok {
		return nil, ErrNotFound
	}

	delete(r.sessions, vehicleIdentifier)
	return &Departure{Session: session, ExitTime: at}, nil
}

func (r *SessionRegistry) IsOpen(vehicleIdentifier string) bool {
	_, ok := r.sessions[vehicleIdentifier]
	return ok
}

func (r *SessionRegistry) Get(vehicleIdentifier string) (*ParkingSession, bool) {
	session, ok := r.sessions[vehicleIdentifier]
	return session, ok
}

func (r *SessionRegistry) Len() int {
	return len(r.sessions)
}

// Sessions returns the open sessions ordered by entry time, then identifier.
func (r *SessionRegistry) Sessions() []*ParkingSession {
	sessions := make([]*ParkingSession, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].EntryTime.Equal(sessions[j].EntryTime) {
			return sessions[i].EntryTime.Before(sessions[j].EntryTime)
		}
		return sessions[i].VehicleIdentifier < sessions[j].VehicleIdentifier
	})

	return sessions
}
