package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	calls   atomic.Int32
	delay   time.Duration
	failErr error
}

func (g *fakeGateway) EnsureSessionRoom(ctx context.Context, bookingID string) (string, error) {
	g.calls.Add(1)
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.failErr != nil {
		return "", g.failErr
	}
	return g.SessionRoomID(bookingID), nil
}

func (g *fakeGateway) SessionRoomID(bookingID string) string {
	return "session-" + bookingID
}

type admissionFixture struct {
	store   *memoryStore
	clock   *fixedClock
	gateway *fakeGateway
	svc     *AdmissionService
	booking Booking
}

// newAdmissionFixture books Room 101 from 09:00 to 10:00 for alice.
func newAdmissionFixture(t *testing.T) *admissionFixture {
	t.Helper()
	store := newMemoryStore(testRooms()...)
	booking := Booking{
		ID:     "b-0900",
		RoomID: "101",
		UserID: "alice",
		Start:  testBase,
		End:    testBase.Add(time.Hour),
		Status: BookingStatusActive,
	}
	_, err := store.InsertBooking(context.Background(), booking)
	require.NoError(t, err)

	clock := &fixedClock{now: testBase.Add(-time.Minute)}
	gateway := &fakeGateway{}
	return &admissionFixture{
		store:   store,
		clock:   clock,
		gateway: gateway,
		svc:     NewAdmissionServiceWithLogger(store, store, gateway, clock.Now, time.Second, nil),
		booking: booking,
	}
}

func (f *admissionFixture) checkIn(t *testing.T) {
	t.Helper()
	_, err := f.store.Record(context.Background(), f.booking.ID, f.clock.Now(), f.booking.End)
	require.NoError(t, err)
}

func TestAdmissionService_TimeWindowIsInclusive(t *testing.T) {
	t.Parallel()
	f := newAdmissionFixture(t)
	f.checkIn(t)

	tests := []struct {
		name   string
		at     time.Time
		active bool
	}{
		{"08:59:59", testBase.Add(-time.Second), false},
		{"09:00:00", testBase, true},
		{"09:30:00", testBase.Add(30 * time.Minute), true},
		{"10:00:00", testBase.Add(time.Hour), true},
		{"10:00:01", testBase.Add(time.Hour + time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.clock.Set(tt.at)
			state, err := f.svc.Evaluate(context.Background(), alice, f.booking.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.active, state.TimeActive)
			assert.True(t, state.CheckedIn)
			assert.Equal(t, tt.active, state.Admitted)
			assert.True(t, state.EvaluatedAt.Equal(tt.at))
		})
	}
}

func TestAdmissionService_CheckInRequired(t *testing.T) {
	t.Parallel()
	f := newAdmissionFixture(t)
	ctx := context.Background()

	f.clock.Set(testBase.Add(10 * time.Minute))
	state, err := f.svc.Evaluate(ctx, alice, f.booking.ID)
	require.NoError(t, err)
	assert.True(t, state.TimeActive)
	assert.False(t, state.CheckedIn)
	assert.False(t, state.Admitted)

	_, err = f.svc.StartSession(ctx, alice, f.booking.ID)
	assert.ErrorIs(t, err, ErrNotAdmitted)
	assert.Zero(t, f.gateway.calls.Load())

	f.checkIn(t)
	state, err = f.svc.Evaluate(ctx, alice, f.booking.ID)
	require.NoError(t, err)
	assert.True(t, state.Admitted)
}

func TestAdmissionService_EarlyCheckInCountsWhenWindowOpens(t *testing.T) {
	t.Parallel()
	f := newAdmissionFixture(t)
	f.checkIn(t) // at 08:59

	state, err := f.svc.Evaluate(context.Background(), alice, f.booking.ID)
	require.NoError(t, err)
	assert.False(t, state.Admitted)

	f.clock.Set(testBase)
	state, err = f.svc.Evaluate(context.Background(), alice, f.booking.ID)
	require.NoError(t, err)
	assert.True(t, state.Admitted)
}

func TestAdmissionService_CancelledBookingIsNeverActive(t *testing.T) {
	t.Parallel()
	f := newAdmissionFixture(t)
	f.checkIn(t)
	_, err := f.store.SetBookingStatus(context.Background(), f.booking.ID, BookingStatusCancelled, testBase)
	require.NoError(t, err)

	f.clock.Set(testBase.Add(5 * time.Minute))
	state, err := f.svc.Evaluate(context.Background(), alice, f.booking.ID)
	require.NoError(t, err)
	assert.False(t, state.TimeActive)
	assert.False(t, state.Admitted)
}

func TestAdmissionService_Ownership(t *testing.T) {
	t.Parallel()
	f := newAdmissionFixture(t)
	ctx := context.Background()

	_, err := f.svc.Evaluate(ctx, bob, f.booking.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.StartSession(ctx, bob, f.booking.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Evaluate(ctx, alice, "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
	_, err = f.svc.Evaluate(ctx, alice, " ")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestAdmissionService_StartSession(t *testing.T) {
	t.Parallel()
	f := newAdmissionFixture(t)
	f.checkIn(t)
	f.clock.Set(testBase.Add(time.Minute))
	ctx := context.Background()

	first, err := f.svc.StartSession(ctx, alice, f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "session-b-0900", first.SessionRoomID)
	assert.Equal(t, f.booking.ID, first.BookingID)

	second, err := f.svc.StartSession(ctx, alice, f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAdmissionService_StartSessionSharesInflightCall(t *testing.T) {
	t.Parallel()
	f := newAdmissionFixture(t)
	f.checkIn(t)
	f.clock.Set(testBase.Add(time.Minute))
	f.gateway.delay = 50 * time.Millisecond

	const n = 8
	var wg sync.WaitGroup
	results := make([]SessionResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.StartSession(context.Background(), alice, f.booking.ID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "session-b-0900", results[i].SessionRoomID)
	}
	assert.Less(t, f.gateway.calls.Load(), int32(n))
}

func TestAdmissionService_StartSessionSurvivesCallerCancellation(t *testing.T) {
	t.Parallel()
	f := newAdmissionFixture(t)
	f.checkIn(t)
	f.clock.Set(testBase.Add(time.Minute))
	f.gateway.delay = 100 * time.Millisecond

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var leaderErr, followerErr error
	var follower SessionResult
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, leaderErr = f.svc.StartSession(leaderCtx, alice, f.booking.ID)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		follower, followerErr = f.svc.StartSession(context.Background(), alice, f.booking.ID)
	}()
	time.Sleep(20 * time.Millisecond)
	cancelLeader()
	wg.Wait()

	require.NoError(t, followerErr)
	assert.Equal(t, "session-b-0900", follower.SessionRoomID)
	assert.NoError(t, leaderErr)
}

func TestAdmissionService_StartSessionTimeout(t *testing.T) {
	t.Parallel()
	f := newAdmissionFixture(t)
	f.checkIn(t)
	f.clock.Set(testBase.Add(time.Minute))
	f.gateway.delay = time.Second
	f.svc.sessionTimeout = 20 * time.Millisecond

	_, err := f.svc.StartSession(context.Background(), alice, f.booking.ID)
	assert.ErrorIs(t, err, ErrSessionProviderUnavailable)
}

func TestAdmissionService_EvaluateIsStable(t *testing.T) {
	t.Parallel()
	f := newAdmissionFixture(t)
	ctx := context.Background()

	for _, at := range []time.Time{testBase.Add(-time.Minute), testBase.Add(30 * time.Minute)} {
		f.clock.Set(at)
		first, err := f.svc.Evaluate(ctx, alice, f.booking.ID)
		require.NoError(t, err)
		second, err := f.svc.Evaluate(ctx, alice, f.booking.ID)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}

	f.checkIn(t)
	first, err := f.svc.Evaluate(ctx, alice, f.booking.ID)
	require.NoError(t, err)
	second, err := f.svc.Evaluate(ctx, alice, f.booking.ID)
	require.NoError(t, err)
	assert.True(t, first.Admitted)
	assert.Equal(t, first, second)
}

func TestAdmissionService_StartSessionProviderFailure(t *testing.T) {
	t.Parallel()
	f := newAdmissionFixture(t)
	f.checkIn(t)
	f.clock.Set(testBase.Add(time.Minute))
	f.gateway.failErr = errors.New("janus: connection refused")

	_, err := f.svc.StartSession(context.Background(), alice, f.booking.ID)
	assert.ErrorIs(t, err, ErrSessionProviderUnavailable)
	assert.Equal(t, "session_provider_unavailable", ErrorKind(err))

	svc := NewAdmissionService(f.store, f.store, nil, f.clock.Now)
	_, err = svc.StartSession(context.Background(), alice, f.booking.ID)
	assert.ErrorIs(t, err, ErrSessionProviderUnavailable)
}

func TestAdmissionService_GuestStatus(t *testing.T) {
	t.Parallel()
	f := newAdmissionFixture(t)
	ctx := context.Background()

	f.clock.Set(testBase.Add(time.Minute))
	status, err := f.svc.GuestStatus(ctx, f.booking.ID)
	require.NoError(t, err)
	assert.False(t, status.Admitted)
	assert.Empty(t, status.SessionRoomID)

	f.checkIn(t)
	status, err = f.svc.GuestStatus(ctx, f.booking.ID)
	require.NoError(t, err)
	assert.True(t, status.Admitted)
	assert.Equal(t, "session-b-0900", status.SessionRoomID)
	assert.Zero(t, f.gateway.calls.Load())

	_, err = f.svc.GuestStatus(ctx, "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestAdmissionService_PollInterval(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultPollInterval, NewAdmissionService(nil, nil, nil, nil).PollInterval())
	assert.Equal(t, time.Second, newAdmissionFixture(t).svc.PollInterval())

	var nilSvc *AdmissionService
	assert.Equal(t, DefaultPollInterval, nilSvc.PollInterval())
}
