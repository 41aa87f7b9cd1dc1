package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trainwatch-go/internal/datastore"
	"github.com/tphakala/trainwatch-go/internal/viaggiatreno"
)

func notifierFixture(t *testing.T) (*Notifier, *fakeStore, *mockTransport) {
	t.Helper()
	store := newFakeStore()
	store.tokens[7] = "pushover://token@user"
	transport := &mockTransport{}
	n := NewNotifier(store, transport, 600*time.Second, "TrainWatch", testLogger())
	return n, store, transport
}

func testRoute() *datastore.Route {
	return &datastore.Route{
		ID:            1,
		UserID:        7,
		DepartureName: "Pinerolo",
		ArrivalName:   "Torino Porta Susa",
	}
}

func TestMaybeNotifySends(t *testing.T) {
	n, store, transport := notifierFixture(t)
	transport.On("Send", mock.Anything, "pushover://token@user", "TrainWatch", mock.Anything).Return(nil)

	outcome, err := n.MaybeNotify(context.Background(), testRoute(), "4659", viaggiatreno.StatusDelayed, 12)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Equal(t, 1, store.logCount())

	last, err := store.LatestNotificationLog(1, "4659", datastore.EventDelay)
	require.NoError(t, err)
	require.NotNil(t, last)
	transport.AssertExpectations(t)
}

func TestMaybeNotifySuppressesWithinWindow(t *testing.T) {
	n, store, transport := notifierFixture(t)
	transport.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return base }

	outcome, err := n.MaybeNotify(context.Background(), testRoute(), "4659", viaggiatreno.StatusDelayed, 12)
	require.NoError(t, err)
	require.Equal(t, OutcomeSent, outcome)

	n.now = func() time.Time { return base.Add(599 * time.Second) }
	outcome, err = n.MaybeNotify(context.Background(), testRoute(), "4659", viaggiatreno.StatusDelayed, 8)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuppressed, outcome)
	assert.Equal(t, 1, store.logCount())

	n.now = func() time.Time { return base.Add(601 * time.Second) }
	outcome, err = n.MaybeNotify(context.Background(), testRoute(), "4659", viaggiatreno.StatusDelayed, 15)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Equal(t, 2, store.logCount())
	transport.AssertNumberOfCalls(t, "Send", 2)
}

func TestMaybeNotifyWindowIsPerEventKind(t *testing.T) {
	n, store, transport := notifierFixture(t)
	transport.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return base }

	outcome, err := n.MaybeNotify(context.Background(), testRoute(), "4659", viaggiatreno.StatusDelayed, 12)
	require.NoError(t, err)
	require.Equal(t, OutcomeSent, outcome)

	// A different event kind a minute later is not throttled by the
	// delay notification.
	n.now = func() time.Time { return base.Add(60 * time.Second) }
	outcome, err = n.MaybeNotify(context.Background(), testRoute(), "4659", viaggiatreno.StatusCancelled, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Equal(t, 2, store.logCount())
}

func TestMaybeNotifySkipsWithoutToken(t *testing.T) {
	store := newFakeStore()
	transport := &mockTransport{}
	n := NewNotifier(store, transport, 600*time.Second, "TrainWatch", testLogger())

	outcome, err := n.MaybeNotify(context.Background(), testRoute(), "4659", viaggiatreno.StatusDelayed, 12)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, 0, store.logCount())
	transport.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMaybeNotifyTransportFailureLeavesNoLog(t *testing.T) {
	n, store, transport := notifierFixture(t)
	transport.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError).Once()
	transport.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	outcome, err := n.MaybeNotify(context.Background(), testRoute(), "4659", viaggiatreno.StatusCancelled, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, 0, store.logCount(), "failed sends must not start a suppression window")

	// The retry on the next detected change goes through.
	outcome, err = n.MaybeNotify(context.Background(), testRoute(), "4659", viaggiatreno.StatusCancelled, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Equal(t, 1, store.logCount())
}

func TestEventKindMapping(t *testing.T) {
	assert.Equal(t, datastore.EventCancellation, eventKindFor(viaggiatreno.StatusCancelled))
	assert.Equal(t, datastore.EventDelay, eventKindFor(viaggiatreno.StatusDelayed))
	assert.Equal(t, datastore.EventRestored, eventKindFor(viaggiatreno.StatusOnTime))
}

func TestFormatMessage(t *testing.T) {
	route := testRoute()

	assert.Equal(t,
		"Train 4659 cancelled on Pinerolo → Torino Porta Susa.",
		formatMessage(route, "4659", viaggiatreno.StatusCancelled, 0))
	assert.Equal(t,
		"Train 4659 delayed by 12 min (Pinerolo → Torino Porta Susa).",
		formatMessage(route, "4659", viaggiatreno.StatusDelayed, 12))
	assert.Equal(t,
		"Train 4659 back on schedule (Pinerolo → Torino Porta Susa).",
		formatMessage(route, "4659", viaggiatreno.StatusOnTime, 0))
}
