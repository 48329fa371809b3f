package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/room-booking/internal/application"
)

type roomService interface {
	ListRooms(ctx context.Context) ([]application.Room, error)
}

type availabilityService interface {
	ListAvailability(ctx context.Context, input application.IntervalInput) (application.Availability, error)
}

type RoomHandler struct {
	rooms        roomService
	availability availabilityService
	responder    responder
	logger       *slog.Logger
}

func NewRoomHandler(rooms roomService, availability availabilityService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{rooms: rooms, availability: availability, responder: newResponder(base), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "room listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		dtos = append(dtos, toRoomDTO(room))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomsResponse{Rooms: dtos})
}

// Availability answers GET /availability?start=&end=.
func (h *RoomHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	input := application.IntervalInput{Start: query.Get("start"), End: query.Get("end")}
	logger := h.log(r.Context(), "Availability", "start", input.Start, "end", input.End)

	result, err := h.availability.ListAvailability(r.Context(), input)
	if err != nil {
		logger.WarnContext(r.Context(), "availability query failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := availabilityResponse{
		Start: formatTime(result.Start),
		End:   formatTime(result.End),
		Rooms: make([]roomAvailabilityDTO, 0, len(result.Rooms)),
	}
	for _, ra := range result.Rooms {
		resp.Rooms = append(resp.Rooms, roomAvailabilityDTO{roomDTO: toRoomDTO(ra.Room), Available: ra.Available})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type roomDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Capacity int    `json:"capacity"`
}

type roomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type roomAvailabilityDTO struct {
	roomDTO
	Available bool `json:"available"`
}

type availabilityResponse struct {
	Start string                `json:"start"`
	End   string                `json:"end"`
	Rooms []roomAvailabilityDTO `json:"rooms"`
}

func toRoomDTO(room application.Room) roomDTO {
	return roomDTO{ID: room.ID, Name: room.Name, Location: room.Location, Capacity: room.Capacity}
}
