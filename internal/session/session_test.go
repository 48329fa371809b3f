package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/application"
)

var (
	_ application.SessionGateway = (*Local)(nil)
	_ application.SessionGateway = (*Janus)(nil)
)

// fakeJanus implements the subset of the Janus REST API the gateway uses.
type fakeJanus struct {
	mu          sync.Mutex
	rooms       map[string]bool
	creates     int
	destroyed   int
	failCreate  bool
	failExists  bool
	forceExists bool
}

func newFakeJanus() *fakeJanus {
	return &fakeJanus{rooms: make(map[string]bool)}
}

func (f *fakeJanus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Janus       string `json:"janus"`
		Transaction string `json:"transaction"`
		Plugin      string `json:"plugin"`
		Body        struct {
			Request string `json:"request"`
			Room    string `json:"room"`
		} `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	resp := map[string]any{"janus": "success", "transaction": req.Transaction}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/janus"), "/"), "/")
	switch req.Janus {
	case "create":
		resp["data"] = map[string]any{"id": 1001}
	case "attach":
		if req.Plugin != videoroomPlugin || len(parts) != 1 {
			resp = map[string]any{"janus": "error", "transaction": req.Transaction, "error": map[string]any{"code": 460, "reason": "bad plugin"}}
			break
		}
		resp["data"] = map[string]any{"id": 2002}
	case "destroy":
		f.destroyed++
	case "message":
		data := map[string]any{"room": req.Body.Room}
		switch req.Body.Request {
		case "exists":
			if f.failExists {
				data["videoroom"] = "event"
				data["error_code"] = 426
				data["error"] = "No such room"
				break
			}
			data["videoroom"] = "success"
			data["exists"] = f.rooms[req.Body.Room]
		case "create":
			f.creates++
			switch {
			case f.failCreate:
				data["videoroom"] = "event"
				data["error_code"] = 499
				data["error"] = "boom"
			case f.forceExists || f.rooms[req.Body.Room]:
				data["videoroom"] = "event"
				data["error_code"] = errRoomExists
				data["error"] = "Room exists"
			default:
				f.rooms[req.Body.Room] = true
				data["videoroom"] = "created"
			}
		}
		resp["plugindata"] = map[string]any{"plugin": videoroomPlugin, "data": data}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestJanus(t *testing.T, fake *fakeJanus) *Janus {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	gw, err := NewJanus(JanusConfig{URL: srv.URL + "/janus", Timeout: time.Second}, nil)
	require.NoError(t, err)
	return gw
}

func TestRoomName(t *testing.T) {
	assert.Equal(t, "booking-abc", RoomName(" abc "))
}

func TestLocal_EnsureSessionRoom(t *testing.T) {
	l := NewLocal()
	assert.False(t, l.Created("b1"))
	assert.Equal(t, "booking-b1", l.SessionRoomID("b1"))
	assert.False(t, l.Created("b1"))

	first, err := l.EnsureSessionRoom(context.Background(), "b1")
	require.NoError(t, err)
	second, err := l.EnsureSessionRoom(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, l.Created("b1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.EnsureSessionRoom(ctx, "b2")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJanus_CreatesOnceAndDestroysSessions(t *testing.T) {
	fake := newFakeJanus()
	gw := newTestJanus(t, fake)
	ctx := context.Background()

	room, err := gw.EnsureSessionRoom(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "booking-b1", room)

	again, err := gw.EnsureSessionRoom(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, room, again)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.creates)
	assert.Equal(t, 2, fake.destroyed)
	assert.True(t, fake.rooms["booking-b1"])
}

func TestJanus_RoomExistsRaceIsSuccess(t *testing.T) {
	fake := newFakeJanus()
	fake.forceExists = true
	gw := newTestJanus(t, fake)

	room, err := gw.EnsureSessionRoom(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "booking-b1", room)
}

func TestJanus_CreateFailure(t *testing.T) {
	fake := newFakeJanus()
	fake.failCreate = true
	gw := newTestJanus(t, fake)

	_, err := gw.EnsureSessionRoom(context.Background(), "b1")
	assert.ErrorIs(t, err, ErrJanus)
}

func TestJanus_ExistsFailureStopsBeforeCreate(t *testing.T) {
	fake := newFakeJanus()
	fake.failExists = true
	gw := newTestJanus(t, fake)

	_, err := gw.EnsureSessionRoom(context.Background(), "b1")
	assert.ErrorIs(t, err, ErrJanus)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Zero(t, fake.creates)
	assert.Equal(t, 1, fake.destroyed)
}

func TestJanus_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gw, err := NewJanus(JanusConfig{URL: srv.URL, Timeout: time.Second}, nil)
	require.NoError(t, err)
	_, err = gw.EnsureSessionRoom(context.Background(), "b1")
	assert.ErrorIs(t, err, ErrJanus)
}

func TestNewJanus_RequiresURL(t *testing.T) {
	_, err := NewJanus(JanusConfig{}, nil)
	assert.Error(t, err)
}
