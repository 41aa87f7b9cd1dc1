// Package viaggiatreno fetches live departure data from the Viaggiatreno
// REST API. The client is a pure I/O boundary: it parses payloads but
// carries no caching and no knowledge of canonical status.
package viaggiatreno

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tphakala/trainwatch-go/internal/conf"
	"github.com/tphakala/trainwatch-go/internal/errors"
	"github.com/tphakala/trainwatch-go/internal/logging"
)

// UserAgent sent with every upstream request.
const UserAgent = "TrainWatch-Go"

// Fallback timeouts used when the settings carry zero or negative values,
// which would otherwise produce already-expired request contexts.
const (
	defaultLookupTimeout = 8 * time.Second
	defaultStatusTimeout = 10 * time.Second
)

// ErrStationNotFound is returned by LookupStationCode when the upstream
// lookup succeeds but knows no station by that name. Distinct from
// transport errors so that callers can reject bad names with a clear
// message instead of silently proceeding.
var ErrStationNotFound = errors.Newf("station not found").
	Component("viaggiatreno").
	Category(errors.CategoryNotFound).
	Build()

// Client talks to the Viaggiatreno REST API.
type Client struct {
	baseURL       string
	lookupTimeout time.Duration
	statusTimeout time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewClient creates a client from the upstream settings.
func NewClient(settings *conf.Settings) *Client {
	logger := logging.ForService("viaggiatreno")
	if logger == nil {
		logger = slog.Default().With("service", "viaggiatreno")
	}

	lookupTimeout := time.Duration(settings.Upstream.LookupTimeout) * time.Second
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	statusTimeout := time.Duration(settings.Upstream.StatusTimeout) * time.Second
	if statusTimeout <= 0 {
		statusTimeout = defaultStatusTimeout
	}

	return &Client{
		baseURL:       strings.TrimRight(settings.Upstream.BaseURL, "/"),
		lookupTimeout: lookupTimeout,
		statusTimeout: statusTimeout,
		httpClient:    &http.Client{},
		logger:        logger,
	}
}

// LookupStationCode resolves a station name to its upstream code.
// The endpoint answers with newline-separated "CODE|Name" lines; the first
// line's code wins. An empty body means the name is unknown.
func (c *Client) LookupStationCode(ctx context.Context, name string) (string, error) {
	endpoint := fmt.Sprintf("%s/cercaStazione/%s", c.baseURL, url.PathEscape(name))

	body, err := c.get(ctx, endpoint, c.lookupTimeout)
	if err != nil {
		return "", errors.New(err).
			Component("viaggiatreno").
			Category(errors.CategoryNetwork).
			NetworkContext("station_lookup", c.lookupTimeout).
			Context("station_name", name).
			Build()
	}

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return "", ErrStationNotFound
	}

	// Example line: "S01409|Pinerolo"
	code, _, _ := strings.Cut(lines[0], "|")
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrStationNotFound
	}
	return code, nil
}

// FetchDepartures returns all departures from a station. Transport errors,
// non-success responses and unparseable bodies fail soft to an empty list.
func (c *Client) FetchDepartures(ctx context.Context, stationCode string) []RawDeparture {
	endpoint := fmt.Sprintf("%s/partenze/%s", c.baseURL, url.PathEscape(stationCode))

	body, err := c.get(ctx, endpoint, c.statusTimeout)
	if err != nil {
		c.logger.Warn("departure board fetch failed", "station_code", stationCode, "error", err)
		return nil
	}

	var departures []RawDeparture
	if err := json.Unmarshal(body, &departures); err != nil {
		c.logger.Warn("departure board payload unparseable", "station_code", stationCode, "error", err)
		return nil
	}
	return departures
}

// FetchTrainStatus returns the status of one train departing from a
// station, or ok=false when the upstream has nothing usable.
func (c *Client) FetchTrainStatus(ctx context.Context, stationCode, trainNumber string) (*RawDeparture, bool) {
	endpoint := fmt.Sprintf("%s/andamentoTreno/%s/%s",
		c.baseURL, url.PathEscape(stationCode), url.PathEscape(trainNumber))

	body, err := c.get(ctx, endpoint, c.statusTimeout)
	if err != nil {
		c.logger.Warn("train status fetch failed",
			"station_code", stationCode, "train_number", trainNumber, "error", err)
		return nil, false
	}

	var departure RawDeparture
	if err := json.Unmarshal(body, &departure); err != nil {
		c.logger.Warn("train status payload unparseable",
			"station_code", stationCode, "train_number", trainNumber, "error", err)
		return nil, false
	}
	return &departure, true
}

// get performs a GET with a bounded timeout and returns the body of a
// 200 response.
func (c *Client) get(ctx context.Context, endpoint string, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 response: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}
