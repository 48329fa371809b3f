package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-booking/internal/application"
)

// ReaderKeyHeader carries the badge reader credential.
const ReaderKeyHeader = "X-Reader-Key"

type checkInService interface {
	Record(ctx context.Context, bookingID string) (application.CheckIn, error)
	Get(ctx context.Context, bookingID string) (application.CheckIn, bool, error)
}

// KeyVerifier checks a presented reader key. It returns
// application.ErrUnauthorized on mismatch.
type KeyVerifier func(key string) error

// HashVerifier returns a KeyVerifier for an argon2id encoded hash.
func HashVerifier(encoded string) KeyVerifier {
	return func(key string) error {
		return application.VerifyReaderKey(encoded, key)
	}
}

type CheckInHandler struct {
	service   checkInService
	verify    KeyVerifier
	responder responder
	logger    *slog.Logger
}

func NewCheckInHandler(service checkInService, verify KeyVerifier, logger *slog.Logger) *CheckInHandler {
	base := defaultLogger(logger)
	return &CheckInHandler{service: service, verify: verify, responder: newResponder(base), logger: base}
}

func (h *CheckInHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CheckInHandler", operation, attrs...)
}

// Record answers POST /checkins.
func (h *CheckInHandler) Record(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil || h.verify == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if !h.authorize(w, r, "Record") {
		return
	}

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Record", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode check-in request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Record", "booking_id", req.BookingID)
	record, err := h.service.Record(r.Context(), req.BookingID)
	if err != nil {
		logger.WarnContext(r.Context(), "check-in failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, checkInDTO{BookingID: record.BookingID, RecordedAt: formatTime(record.RecordedAt)})
}

// Get answers GET /checkins/{booking_id}. A missing marker is reported as
// checked_in=false rather than 404.
func (h *CheckInHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil || h.verify == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !h.authorize(w, r, "Get") {
		return
	}

	bookingID, _ := BookingIDFromContext(r.Context())
	record, ok, err := h.service.Get(r.Context(), bookingID)
	if err != nil {
		h.log(r.Context(), "Get", "booking_id", bookingID).
			ErrorContext(r.Context(), "check-in lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := checkInStatusDTO{BookingID: bookingID, CheckedIn: ok}
	if ok {
		resp.RecordedAt = formatTime(record.RecordedAt)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *CheckInHandler) authorize(w http.ResponseWriter, r *http.Request, operation string) bool {
	key := readerKey(r)
	if key == "" {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHORIZED", errMissingReaderKey)
		return false
	}
	if err := h.verify(key); err != nil {
		h.log(r.Context(), operation).WarnContext(r.Context(), "reader key rejected", "error", err)
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return false
	}
	return true
}

func readerKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(ReaderKeyHeader)); key != "" {
		return key
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

type checkInRequest struct {
	BookingID string `json:"booking_id"`
}

type checkInDTO struct {
	BookingID  string `json:"booking_id"`
	RecordedAt string `json:"recorded_at"`
}

type checkInStatusDTO struct {
	BookingID  string `json:"booking_id"`
	CheckedIn  bool   `json:"checked_in"`
	RecordedAt string `json:"recorded_at,omitempty"`
}
