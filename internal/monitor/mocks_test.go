package monitor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tphakala/trainwatch-go/internal/datastore"
	"github.com/tphakala/trainwatch-go/internal/viaggiatreno"
)

// fakeStore is an in-memory stand-in for the datastore slices the engine
// uses. History and notification logs are append-only, like the real store.
type fakeStore struct {
	mu       sync.Mutex
	routes   map[uint]datastore.Route
	statuses []datastore.TrainStatus
	logs     []datastore.NotificationLog
	tokens   map[uint]string

	statusErr error // injected failure for LatestTrainStatus
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		routes: make(map[uint]datastore.Route),
		tokens: make(map[uint]string),
	}
}

func (f *fakeStore) GetActiveRoutes() ([]datastore.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []datastore.Route
	for _, r := range f.routes {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetRoute(id uint) (datastore.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.routes[id], nil
}

func (f *fakeStore) SaveRoute(route *datastore.Route) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route.ID] = *route
	return nil
}

func (f *fakeStore) LatestTrainStatus(routeID uint, trainCode string) (*datastore.TrainStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	for i := len(f.statuses) - 1; i >= 0; i-- {
		s := f.statuses[i]
		if s.RouteID == routeID && s.TrainCode == trainCode {
			return &s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SaveTrainStatus(status *datastore.TrainStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, *status)
	return nil
}

func (f *fakeStore) LatestNotificationLog(routeID uint, trainCode, eventType string) (*datastore.NotificationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.logs) - 1; i >= 0; i-- {
		l := f.logs[i]
		if l.RouteID == routeID && l.TrainCode == trainCode && l.EventType == eventType {
			return &l, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SaveNotificationLog(entry *datastore.NotificationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeStore) UserPushToken(userID uint) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[userID], nil
}

func (f *fakeStore) statusCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.statuses)
}

func (f *fakeStore) logCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.logs)
}

// fakeResolver resolves from a fixed name-to-code table.
type fakeResolver struct {
	codes map[string]string
}

func (f *fakeResolver) Resolve(_ context.Context, name string) (string, error) {
	if code, ok := f.codes[name]; ok {
		return code, nil
	}
	return "", viaggiatreno.ErrStationNotFound
}

// fakeClient serves canned upstream responses.
type fakeClient struct {
	mu          sync.Mutex
	departures  map[string][]viaggiatreno.RawDeparture
	trainStatus map[string]*viaggiatreno.RawDeparture // key: station code + "/" + train number
}

func (f *fakeClient) FetchDepartures(_ context.Context, stationCode string) []viaggiatreno.RawDeparture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.departures[stationCode]
}

func (f *fakeClient) FetchTrainStatus(_ context.Context, stationCode, trainNumber string) (*viaggiatreno.RawDeparture, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.trainStatus[stationCode+"/"+trainNumber]
	return raw, ok
}

func (f *fakeClient) setDepartures(stationCode string, deps []viaggiatreno.RawDeparture) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.departures == nil {
		f.departures = make(map[string][]viaggiatreno.RawDeparture)
	}
	f.departures[stationCode] = deps
}

// mockTransport records Send calls through testify's mock machinery.
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Send(ctx context.Context, target, title, body string) error {
	args := m.Called(ctx, target, title, body)
	return args.Error(0)
}

func (m *mockTransport) Name() string { return "mock" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestMonitor wires an engine over the fakes without going through the
// settings-based constructor.
func newTestMonitor(store *fakeStore, res *fakeResolver, client *fakeClient, transport *mockTransport, window time.Duration) *Monitor {
	logger := testLogger()
	return &Monitor{
		routes:        store,
		resolver:      res,
		client:        client,
		detector:      NewDetector(store, logger),
		notifier:      NewNotifier(store, transport, window, "TrainWatch", logger),
		maxConcurrent: 4,
		logger:        logger,
	}
}
