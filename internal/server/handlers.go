package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"parking-attendant/internal/parking"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	desk        *parking.Desk
	serviceName string
}

func NewHandler(desk *parking.Desk, serviceName string) *Handler {
	return &Handler{desk: desk, serviceName: serviceName}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

// Entry records a vehicle entering. An empty body submits the identifier
// already held in the entry field, e.g. one filled by a capture.
func (h *Handler) Entry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decodeVehicleRequest(w, r)
	if !ok {
		return
	}

	notes := &parking.NotificationBuffer{}
	receipt, err := h.desk.SubmitEntry(ctx, req.VehicleNumber, notes)
	if err != nil {
		writeWorkflowError(ctx, w, err, notes)
		return
	}

	WriteSuccess(ctx, w, "Entry recorded", EntryResponse{
		SessionID:     receipt.Session.ID,
		VehicleNumber: receipt.Session.VehicleIdentifier,
		EntryTime:     parking.FormatTimestamp(receipt.Session.EntryTime),
		Ticket:        newTicketResponse(receipt.Ticket),
	}, notes.Notifications())
}

func (h *Handler) Exit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decodeVehicleRequest(w, r)
	if !ok {
		return
	}

	notes := &parking.NotificationBuffer{}
	receipt, err := h.desk.SubmitExit(ctx, req.VehicleNumber, notes)
	if err != nil {
		writeWorkflowError(ctx, w, err, notes)
		return
	}

	session := receipt.Departure.Session
	WriteSuccess(ctx, w, "Payment due", ExitResponse{
		SessionID:       session.ID,
		VehicleNumber:   session.VehicleIdentifier,
		EntryTime:       parking.FormatTimestamp(session.EntryTime),
		ExitTime:        parking.FormatTimestamp(receipt.Departure.ExitTime),
		Duration:        parking.FormatDuration(receipt.Duration),
		DurationSeconds: int64(receipt.Duration / time.Second),
		Fee:             int64(receipt.Fee),
	}, notes.Notifications())
}

// Capture takes the first frame the camera delivers. There is no preview
// window over HTTP.
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	notes := &parking.NotificationBuffer{}
	result, err := h.desk.CaptureIdentifier(ctx, immediateCapture{}, nil, notes)
	if err != nil {
		writeWorkflowError(ctx, w, err, notes)
		return
	}

	WriteSuccess(ctx, w, "Capture "+result.State.String(), CaptureResponse{
		State:         result.State.String(),
		Frames:        result.Frames,
		RawText:       result.RawText,
		VehicleNumber: result.Identifier,
	}, notes.Notifications())
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	form := h.desk.Snapshot()
	if form.Ticket == nil {
		WriteError(ctx, w, http.StatusNotFound, "No ticket", nil)
		return
	}

	WriteSuccess(ctx, w, "Ticket retrieved", newTicketResponse(form.Ticket), nil)
}

func (h *Handler) GetBarcode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	form := h.desk.Snapshot()
	if !form.Ticket.HasBarcode() {
		WriteError(ctx, w, http.StatusNotFound, "No barcode", nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(form.Ticket.Barcode)))
	w.WriteHeader(http.StatusOK)
	w.Write(form.Ticket.Barcode)
}

func (h *Handler) FindSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identifier := chi.URLParam(r, "identifier")
	if identifier == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Vehicle number is required", nil)
		return
	}

	session, ok := h.desk.IsOpen(ctx, identifier)
	if !ok {
		WriteError(ctx, w, http.StatusNotFound, "This vehicle is not found in the parking lot.", nil)
		return
	}

	WriteSuccess(ctx, w, "Vehicle found", newSessionResponse(session), nil)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions := h.desk.Sessions()
	form := h.desk.Snapshot()

	response := StatusResponse{
		Occupied: len(sessions),
		Sessions: make([]SessionResponse, 0, len(sessions)),
		Form: FormResponse{
			EntryVehicleNumber: form.EntryIdentifier,
			ExitVehicleNumber:  form.ExitIdentifier,
			HasTicket:          form.Ticket != nil,
		},
	}
	for _, session := range sessions {
		response.Sessions = append(response.Sessions, newSessionResponse(session))
	}

	WriteSuccess(ctx, w, "Status retrieved successfully", response, nil)
}

func decodeVehicleRequest(w http.ResponseWriter, r *http.Request) (VehicleRequest, bool) {
	var req VehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(r.Context(), w, http.StatusBadRequest, "Invalid request body", nil)
		return req, false
	}
	return req, true
}

// immediateCapture presses the capture key on the first poll.
type immediateCapture struct{}

func (immediateCapture) Poll(context.Context, time.Duration) (parking.Key, bool) {
	return parking.KeyCapture, true
}
