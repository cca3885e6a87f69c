package parking

import "time"

type EntryEvent struct {
	SessionID    string    `json:"session_id"`
	VehiclePlate string    `json:"vehicle_plate"`
	EntryTime    time.Time `json:"entry_date_time"`
}

type ExitEvent struct {
	SessionID       string    `json:"session_id"`
	VehiclePlate    string    `json:"vehicle_plate"`
	EntryTime       time.Time `json:"entry_date_time"`
	ExitTime        time.Time `json:"exit_date_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	Fee             Money     `json:"fee"`
}
