package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tphakala/trainwatch-go/internal/conf"
	"github.com/tphakala/trainwatch-go/internal/datastore"
	"github.com/tphakala/trainwatch-go/internal/monitor"
	"github.com/tphakala/trainwatch-go/internal/station"
)

// memStore is an in-memory datastore.Interface for handler tests.
type memStore struct {
	users    map[uint]datastore.User
	routes   map[uint]datastore.Route
	statuses []datastore.TrainStatus
	stations map[string]datastore.Station
	nextID   uint
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uint]datastore.User),
		routes:   make(map[uint]datastore.Route),
		stations: make(map[string]datastore.Station),
	}
}

func (m *memStore) Open() error  { return nil }
func (m *memStore) Close() error { return nil }

func (m *memStore) SaveUser(user *datastore.User) error {
	if user.ID == 0 {
		m.nextID++
		user.ID = m.nextID
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memStore) GetUser(id uint) (datastore.User, error) {
	u, ok := m.users[id]
	if !ok {
		return datastore.User{}, fmt.Errorf("user %d: %w", id, gorm.ErrRecordNotFound)
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(email string) (datastore.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return datastore.User{}, fmt.Errorf("user %s: %w", email, gorm.ErrRecordNotFound)
}

func (m *memStore) UserPushToken(userID uint) (string, error) {
	return m.users[userID].PushToken, nil
}

func (m *memStore) SaveRoute(route *datastore.Route) error {
	if route.ID == 0 {
		m.nextID++
		route.ID = m.nextID
	}
	m.routes[route.ID] = *route
	return nil
}

func (m *memStore) GetRoute(id uint) (datastore.Route, error) {
	r, ok := m.routes[id]
	if !ok {
		return datastore.Route{}, fmt.Errorf("route %d: %w", id, gorm.ErrRecordNotFound)
	}
	return r, nil
}

func (m *memStore) GetActiveRoutes() ([]datastore.Route, error) {
	var out []datastore.Route
	for _, r := range m.routes {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) GetRoutesByUser(userID uint) ([]datastore.Route, error) {
	var out []datastore.Route
	for _, r := range m.routes {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) DeleteRoute(id uint) error {
	delete(m.routes, id)
	return nil
}

func (m *memStore) SaveTrainStatus(status *datastore.TrainStatus) error {
	m.statuses = append(m.statuses, *status)
	return nil
}

func (m *memStore) LatestTrainStatus(routeID uint, trainCode string) (*datastore.TrainStatus, error) {
	for i := len(m.statuses) - 1; i >= 0; i-- {
		s := m.statuses[i]
		if s.RouteID == routeID && s.TrainCode == trainCode {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *memStore) TrainStatusHistory(routeID uint, limit int) ([]datastore.TrainStatus, error) {
	var out []datastore.TrainStatus
	for _, s := range m.statuses {
		if s.RouteID == routeID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdate.After(out[j].LastUpdate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) SaveNotificationLog(*datastore.NotificationLog) error { return nil }
func (m *memStore) LatestNotificationLog(uint, string, string) (*datastore.NotificationLog, error) {
	return nil, nil
}

func (m *memStore) GetStationByName(name string) (*datastore.Station, error) {
	if s, ok := m.stations[strings.ToLower(name)]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *memStore) SaveStation(s *datastore.Station) error {
	m.stations[strings.ToLower(s.Name)] = *s
	return nil
}

func (m *memStore) ListStations() ([]datastore.Station, error) {
	var out []datastore.Station
	for _, s := range m.stations {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) ClearStations() (int64, error) {
	n := int64(len(m.stations))
	m.stations = make(map[string]datastore.Station)
	return n, nil
}

type fixedResolver struct {
	codes       map[string]string
	invalidated bool
}

func (f *fixedResolver) Resolve(_ context.Context, name string) (string, error) {
	if code, ok := f.codes[name]; ok {
		return code, nil
	}
	return "", station.ErrNotFound
}

func (f *fixedResolver) Invalidate() { f.invalidated = true }

type noopRefresher struct{ called uint }

func (n *noopRefresher) RefreshRoute(_ context.Context, routeID uint) error {
	n.called = routeID
	return nil
}

type noopScheduler struct{}

func (noopScheduler) Status() monitor.SchedulerStatus {
	return monitor.SchedulerStatus{Interval: "10m0s"}
}

func apiFixture() (*Controller, *memStore, *fixedResolver) {
	store := newMemStore()
	res := &fixedResolver{codes: map[string]string{
		"Pinerolo":          "S01409",
		"Torino Porta Susa": "S00219",
	}}
	settings := &conf.Settings{}
	settings.Monitor.HistoryLimit = 20

	c := New(echo.New(), store, settings, res, &noopRefresher{}, noopScheduler{})
	return c, store, res
}

func doRequest(c *Controller, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func jsonDecode(rec *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}

func TestHealthEndpoint(t *testing.T) {
	c, _, _ := apiFixture()
	rec := doRequest(c, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestRegisterUserCreatesAndUpdates(t *testing.T) {
	c, store, _ := apiFixture()

	rec := doRequest(c, http.MethodPost, "/api/v1/users/register",
		`{"email":"Rider@Example.com","push_token":"pushover://a@b"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	u, err := store.GetUserByEmail("rider@example.com")
	require.NoError(t, err)
	assert.Equal(t, "pushover://a@b", u.PushToken)

	// Registering again swaps the token without creating a second user.
	rec = doRequest(c, http.MethodPost, "/api/v1/users/register",
		`{"email":"rider@example.com","push_token":"pushover://c@d"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, store.users, 1)

	u, err = store.GetUserByEmail("rider@example.com")
	require.NoError(t, err)
	assert.Equal(t, "pushover://c@d", u.PushToken)
}

func TestRegisterUserRequiresEmail(t *testing.T) {
	c, _, _ := apiFixture()
	rec := doRequest(c, http.MethodPost, "/api/v1/users/register", `{"push_token":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRouteResolvesStations(t *testing.T) {
	c, store, _ := apiFixture()
	require.NoError(t, store.SaveUser(&datastore.User{Email: "rider@example.com"}))

	rec := doRequest(c, http.MethodPost, "/api/v1/routes",
		`{"user_id":1,"departure_name":"Pinerolo","arrival_name":"Torino Porta Susa"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"S01409"`)
	assert.Contains(t, rec.Body.String(), `"S00219"`)
}

func TestCreateRouteRejectsUnknownStation(t *testing.T) {
	c, store, _ := apiFixture()
	require.NoError(t, store.SaveUser(&datastore.User{Email: "rider@example.com"}))

	rec := doRequest(c, http.MethodPost, "/api/v1/routes",
		`{"user_id":1,"departure_name":"Nowhereville","arrival_name":"Torino Porta Susa"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nowhereville")
	assert.Empty(t, store.routes)
}

func TestCreateRouteRejectsUnknownUser(t *testing.T) {
	c, _, _ := apiFixture()
	rec := doRequest(c, http.MethodPost, "/api/v1/routes",
		`{"user_id":42,"departure_name":"Pinerolo","arrival_name":"Torino Porta Susa"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouteHistoryReturnsNewestFirst(t *testing.T) {
	c, store, _ := apiFixture()
	require.NoError(t, store.SaveUser(&datastore.User{Email: "rider@example.com"}))
	require.NoError(t, store.SaveRoute(&datastore.Route{UserID: 1, Active: true}))

	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveTrainStatus(&datastore.TrainStatus{
			RouteID:      2,
			TrainCode:    "4659",
			Status:       datastore.StatusDelayed,
			DelayMinutes: i,
			LastUpdate:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rec := doRequest(c, http.MethodGet, "/api/v1/routes/2/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []TrainStatusResponse
	require.NoError(t, jsonDecode(rec, &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, 2, rows[0].DelayMinutes, "newest record first")
}

func TestRouteHistoryUnknownRoute(t *testing.T) {
	c, _, _ := apiFixture()
	rec := doRequest(c, http.MethodGet, "/api/v1/routes/99/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClearStationsFlushesResolver(t *testing.T) {
	c, store, res := apiFixture()
	require.NoError(t, store.SaveStation(&datastore.Station{Name: "Pinerolo", Code: "S01409"}))

	rec := doRequest(c, http.MethodDelete, "/api/v1/stations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"removed":1`)
	assert.True(t, res.invalidated)
	assert.Empty(t, store.stations)
}

func TestControllerFileLogging(t *testing.T) {
	dir := t.TempDir()
	store := newMemStore()
	settings := &conf.Settings{}
	settings.Monitor.HistoryLimit = 20
	settings.Main.Log.Enabled = true
	settings.Main.Log.Path = filepath.Join(dir, "trainwatch.log")

	c := New(echo.New(), store, settings, &fixedResolver{}, &noopRefresher{}, noopScheduler{})

	rec := doRequest(c, http.MethodPost, "/api/v1/users/register",
		`{"email":"rider@example.com","push_token":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, c.Shutdown())

	// The controller logs into its own rotating file next to the main log.
	data, err := os.ReadFile(filepath.Join(dir, "api.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "user registered")
	assert.Contains(t, string(data), `"service":"api"`)
}

func TestDeleteRoute(t *testing.T) {
	c, store, _ := apiFixture()
	require.NoError(t, store.SaveUser(&datastore.User{Email: "rider@example.com"}))
	require.NoError(t, store.SaveRoute(&datastore.Route{UserID: 1, Active: true}))

	rec := doRequest(c, http.MethodDelete, "/api/v1/routes/2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.routes)

	rec = doRequest(c, http.MethodDelete, "/api/v1/routes/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
