package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"parking-attendant/internal/parking"

	"go.opentelemetry.io/otel/trace"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success       bool                   `json:"success"`
	Message       string                 `json:"message,omitempty"`
	Data          any                    `json:"data,omitempty"`
	Error         string                 `json:"error,omitempty"`
	Notifications []parking.Notification `json:"notifications,omitempty"`
	Meta          *Meta                  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type VehicleRequest struct {
	VehicleNumber string `json:"vehicle_number"`
}

type TicketResponse struct {
	SessionID     string `json:"session_id"`
	VehicleNumber string `json:"vehicle_number"`
	EntryTime     string `json:"entry_time"`
	Text          string `json:"text"`
	HasBarcode    bool   `json:"has_barcode"`
	BarcodeURL    string `json:"barcode_url,omitempty"`
}

type EntryResponse struct {
	SessionID     string          `json:"session_id"`
	VehicleNumber string          `json:"vehicle_number"`
	EntryTime     string          `json:"entry_time"`
	Ticket        *TicketResponse `json:"ticket,omitempty"`
}

type ExitResponse struct {
	SessionID       string `json:"session_id"`
	VehicleNumber   string `json:"vehicle_number"`
	EntryTime       string `json:"entry_time"`
	ExitTime        string `json:"exit_time"`
	Duration        string `json:"duration"`
	DurationSeconds int64  `json:"duration_seconds"`
	Fee             int64  `json:"fee"`
}

type CaptureResponse struct {
	State         string `json:"state"`
	Frames        int    `json:"frames"`
	RawText       string `json:"raw_text,omitempty"`
	VehicleNumber string `json:"vehicle_number,omitempty"`
}

type SessionResponse struct {
	SessionID     string `json:"session_id"`
	VehicleNumber string `json:"vehicle_number"`
	EntryTime     string `json:"entry_time"`
}

type FormResponse struct {
	EntryVehicleNumber string `json:"entry_vehicle_number"`
	ExitVehicleNumber  string `json:"exit_vehicle_number"`
	HasTicket          bool   `json:"has_ticket"`
}

type StatusResponse struct {
	Occupied int               `json:"occupied"`
	Sessions []SessionResponse `json:"sessions"`
	Form     FormResponse      `json:"form"`
}

func newTicketResponse(ticket *parking.Ticket) *TicketResponse {
	if ticket == nil {
		return nil
	}
	resp := &TicketResponse{
		SessionID:     ticket.SessionID,
		VehicleNumber: ticket.VehicleIdentifier,
		EntryTime:     parking.FormatTimestamp(ticket.EntryTime),
		Text:          ticket.Text,
		HasBarcode:    ticket.HasBarcode(),
	}
	if resp.HasBarcode {
		resp.BarcodeURL = "/api/parking/ticket/barcode.png"
	}
	return resp
}

func newSessionResponse(session *parking.ParkingSession) SessionResponse {
	return SessionResponse{
		SessionID:     session.ID,
		VehicleNumber: session.VehicleIdentifier,
		EntryTime:     parking.FormatTimestamp(session.EntryTime),
	}
}

// statusFor maps workflow errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, parking.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, parking.ErrAlreadyOpen):
		return http.StatusConflict
	case errors.Is(err, parking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, parking.ErrCameraUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, parking.ErrCameraReadFailure):
		return http.StatusBadGateway
	case errors.Is(err, parking.ErrOCRFailure):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any, notifications []parking.Notification) {
	WriteJSON(w, http.StatusOK, Response{
		Success:       true,
		Message:       message,
		Data:          data,
		Notifications: notifications,
		Meta:          extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string, notifications []parking.Notification) {
	WriteJSON(w, status, Response{
		Success:       false,
		Error:         message,
		Notifications: notifications,
		Meta:          extractMeta(ctx),
	})
}

// writeWorkflowError reports a failed desk action using the last notification
// the workflow raised as the error message.
func writeWorkflowError(ctx context.Context, w http.ResponseWriter, err error, notes *parking.NotificationBuffer) {
	message := err.Error()
	if last, ok := notes.Last(); ok {
		message = last.Message
	}
	WriteError(ctx, w, statusFor(err), message, notes.Notifications())
}
