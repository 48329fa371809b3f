package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-booking/internal/application"
)

var (
	errBadRequestBody   = errors.New("request body is not valid JSON")
	errInvalidBookingID = errors.New("booking id is missing")
	errMissingIdentity  = errors.New("caller identity is missing")
	errMissingReaderKey = errors.New("reader key is missing")
)

// contentionRetryAfter is advertised on 503 responses.
const contentionRetryAfter = time.Second

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError answers a request that failed before reaching a service.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{ErrorCode: "UNEXPECTED", Message: "unknown error"})
		return
	}

	kind := application.ErrorKind(err)
	status, message := statusFor(kind)

	var tsErr *application.TimestampError
	if errors.As(err, &tsErr) {
		message = fmt.Sprintf("%s is not a valid timestamp: %q", tsErr.Field, tsErr.Value)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(contentionRetryAfter.Seconds())))
	}
	if status == http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: strings.ToUpper(kind), Message: message})
}

func statusFor(kind string) (int, string) {
	switch kind {
	case "invalid_timestamp":
		return http.StatusBadRequest, "timestamp is not valid"
	case "invalid_interval":
		return http.StatusBadRequest, "start must be before end"
	case "room_not_found":
		return http.StatusNotFound, "room not found"
	case "booking_not_found":
		return http.StatusNotFound, "booking not found"
	case "forbidden":
		return http.StatusForbidden, "booking belongs to another user"
	case "slot_unavailable":
		return http.StatusConflict, "room is already booked for an overlapping interval"
	case "not_admitted":
		return http.StatusConflict, "booking is not admitted yet"
	case "contention":
		return http.StatusServiceUnavailable, "room is busy, retry shortly"
	case "session_provider_unavailable":
		return http.StatusBadGateway, "session provider is unavailable"
	case "unauthorized":
		return http.StatusUnauthorized, "authentication required"
	case "cancelled":
		return http.StatusServiceUnavailable, "request was cancelled"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
