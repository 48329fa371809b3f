package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const videoroomPlugin = "janus.plugin.videoroom"

// errRoomExists is returned by the videoroom plugin when create loses a race.
const errRoomExists = 427

var ErrJanus = errors.New("janus request failed")

// JanusConfig describes the Janus HTTP transport. The server must run the
// videoroom plugin with string_ids enabled.
type JanusConfig struct {
	URL        string
	Timeout    time.Duration
	RetryCount int
	// Publishers caps concurrent publishers per room.
	Publishers int
}

// Janus creates videoroom rooms through the Janus REST API.
type Janus struct {
	client     *resty.Client
	publishers int
	logger     *slog.Logger
}

// NewJanus builds a gateway for the server at cfg.URL.
func NewJanus(cfg JanusConfig, logger *slog.Logger) (*Janus, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("session: janus url must be set")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Publishers <= 0 {
		cfg.Publishers = 16
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Content-Type", "application/json")

	return &Janus{client: client, publishers: cfg.Publishers, logger: logger.With("component", "session.Janus")}, nil
}

type janusRequest struct {
	Janus       string `json:"janus"`
	Transaction string `json:"transaction"`
	Plugin      string `json:"plugin,omitempty"`
	Body        any    `json:"body,omitempty"`
}

type janusResponse struct {
	Janus       string `json:"janus"`
	Transaction string `json:"transaction"`
	Data        struct {
		ID int64 `json:"id"`
	} `json:"data"`
	Error *struct {
		Code   int    `json:"code"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
	PluginData struct {
		Plugin string        `json:"plugin"`
		Data   videoroomData `json:"data"`
	} `json:"plugindata"`
}

type videoroomData struct {
	Videoroom string `json:"videoroom"`
	Room      any    `json:"room"`
	Exists    bool   `json:"exists"`
	ErrorCode int    `json:"error_code"`
	Error     string `json:"error"`
}

type videoroomRequest struct {
	Request     string `json:"request"`
	Room        string `json:"room"`
	Description string `json:"description,omitempty"`
	Publishers  int    `json:"publishers,omitempty"`
	Permanent   bool   `json:"permanent"`
}

// SessionRoomID derives the room id without contacting Janus.
func (j *Janus) SessionRoomID(bookingID string) string {
	return RoomName(bookingID)
}

// EnsureSessionRoom creates the videoroom for bookingID unless it exists.
func (j *Janus) EnsureSessionRoom(ctx context.Context, bookingID string) (string, error) {
	room := RoomName(bookingID)
	logger := j.logger.With("room", room)

	sessionID, err := j.createSession(ctx)
	if err != nil {
		return "", err
	}
	defer j.destroySession(sessionID, logger)

	handleID, err := j.attach(ctx, sessionID)
	if err != nil {
		return "", err
	}

	exists, err := j.videoroom(ctx, sessionID, handleID, videoroomRequest{Request: "exists", Room: room})
	if err != nil {
		return "", err
	}
	if exists.ErrorCode != 0 {
		return "", fmt.Errorf("%w: exists %s: %d %s", ErrJanus, room, exists.ErrorCode, exists.Error)
	}
	if exists.Exists {
		logger.DebugContext(ctx, "videoroom already exists")
		return room, nil
	}

	created, err := j.videoroom(ctx, sessionID, handleID, videoroomRequest{
		Request:     "create",
		Room:        room,
		Description: "Booking " + bookingID,
		Publishers:  j.publishers,
	})
	if err != nil {
		return "", err
	}
	if created.ErrorCode != 0 && created.ErrorCode != errRoomExists {
		return "", fmt.Errorf("%w: create %s: %d %s", ErrJanus, room, created.ErrorCode, created.Error)
	}
	logger.InfoContext(ctx, "videoroom ready")
	return room, nil
}

func (j *Janus) post(ctx context.Context, path string, req janusRequest) (janusResponse, error) {
	var out janusResponse
	resp, err := j.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(path)
	if err != nil {
		return janusResponse{}, fmt.Errorf("%w: %s %s: %v", ErrJanus, req.Janus, path, err)
	}
	if resp.IsError() {
		return janusResponse{}, fmt.Errorf("%w: %s %s: http %d", ErrJanus, req.Janus, path, resp.StatusCode())
	}
	if out.Janus == "error" {
		if out.Error != nil {
			return janusResponse{}, fmt.Errorf("%w: %s: %d %s", ErrJanus, req.Janus, out.Error.Code, out.Error.Reason)
		}
		return janusResponse{}, fmt.Errorf("%w: %s", ErrJanus, req.Janus)
	}
	if out.Transaction != "" && out.Transaction != req.Transaction {
		return janusResponse{}, fmt.Errorf("%w: %s: transaction mismatch", ErrJanus, req.Janus)
	}
	return out, nil
}

func (j *Janus) createSession(ctx context.Context) (int64, error) {
	out, err := j.post(ctx, "", janusRequest{Janus: "create", Transaction: uuid.NewString()})
	if err != nil {
		return 0, err
	}
	return out.Data.ID, nil
}

func (j *Janus) attach(ctx context.Context, sessionID int64) (int64, error) {
	out, err := j.post(ctx, fmt.Sprintf("/%d", sessionID), janusRequest{
		Janus:       "attach",
		Transaction: uuid.NewString(),
		Plugin:      videoroomPlugin,
	})
	if err != nil {
		return 0, err
	}
	return out.Data.ID, nil
}

func (j *Janus) videoroom(ctx context.Context, sessionID, handleID int64, body videoroomRequest) (videoroomData, error) {
	out, err := j.post(ctx, fmt.Sprintf("/%d/%d", sessionID, handleID), janusRequest{
		Janus:       "message",
		Transaction: uuid.NewString(),
		Body:        body,
	})
	if err != nil {
		return videoroomData{}, err
	}
	return out.PluginData.Data, nil
}

func (j *Janus) destroySession(sessionID int64, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := j.post(ctx, fmt.Sprintf("/%d", sessionID), janusRequest{Janus: "destroy", Transaction: uuid.NewString()}); err != nil {
		logger.Warn("failed to destroy janus session", "session_id", sessionID, "error", err)
	}
}
