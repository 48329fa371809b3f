package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-booking/internal/application"
)

type admissionService interface {
	Evaluate(ctx context.Context, principal application.Principal, bookingID string) (application.AdmissionState, error)
	StartSession(ctx context.Context, principal application.Principal, bookingID string) (application.SessionResult, error)
	GuestStatus(ctx context.Context, bookingID string) (application.GuestStatus, error)
	PollInterval() time.Duration
}

type AdmissionHandler struct {
	service   admissionService
	responder responder
	logger    *slog.Logger
}

func NewAdmissionHandler(service admissionService, logger *slog.Logger) *AdmissionHandler {
	base := defaultLogger(logger)
	return &AdmissionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AdmissionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AdmissionHandler", operation, attrs...)
}

// Evaluate answers GET /bookings/{id}/admission for the owner.
func (h *AdmissionHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.bookingID(w, r, "Evaluate")
	if !ok {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	state, err := h.service.Evaluate(r.Context(), principal, bookingID)
	if err != nil {
		h.log(r.Context(), "Evaluate", "principal_id", principal.UserID, "booking_id", bookingID).
			WarnContext(r.Context(), "admission evaluation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toAdmissionDTO(state))
}

// StartSession answers POST /bookings/{id}/session.
func (h *AdmissionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.bookingID(w, r, "StartSession")
	if !ok {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "StartSession", "principal_id", principal.UserID, "booking_id", bookingID)

	result, err := h.service.StartSession(r.Context(), principal, bookingID)
	if err != nil {
		logger.WarnContext(r.Context(), "session start failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session started", "session_room_id", result.SessionRoomID)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionDTO{BookingID: result.BookingID, SessionRoomID: result.SessionRoomID})
}

// Guest answers GET /meetings/{id}. No identity is required.
func (h *AdmissionHandler) Guest(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.bookingID(w, r, "Guest")
	if !ok {
		return
	}

	status, err := h.service.GuestStatus(r.Context(), bookingID)
	if err != nil {
		h.log(r.Context(), "Guest", "booking_id", bookingID).
			WarnContext(r.Context(), "guest status failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, guestDTO{
		admissionDTO:  h.toAdmissionDTO(status.AdmissionState),
		SessionRoomID: status.SessionRoomID,
	})
}

func (h *AdmissionHandler) bookingID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return "", false
	}
	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").WarnContext(r.Context(), "missing booking id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errInvalidBookingID)
		return "", false
	}
	return bookingID, true
}

type admissionDTO struct {
	BookingID        string `json:"booking_id"`
	TimeActive       bool   `json:"time_active"`
	CheckedIn        bool   `json:"checked_in"`
	Admitted         bool   `json:"admitted"`
	EvaluatedAt      string `json:"evaluated_at"`
	PollAfterSeconds int    `json:"poll_after_seconds"`
}

type guestDTO struct {
	admissionDTO
	SessionRoomID string `json:"session_room_id,omitempty"`
}

type sessionDTO struct {
	BookingID     string `json:"booking_id"`
	SessionRoomID string `json:"session_room_id"`
}

func (h *AdmissionHandler) toAdmissionDTO(state application.AdmissionState) admissionDTO {
	return admissionDTO{
		BookingID:        state.BookingID,
		TimeActive:       state.TimeActive,
		CheckedIn:        state.CheckedIn,
		Admitted:         state.Admitted,
		EvaluatedAt:      formatTime(state.EvaluatedAt),
		PollAfterSeconds: int(math.Ceil(h.service.PollInterval().Seconds())),
	}
}
