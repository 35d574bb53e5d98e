// Package waqi looks up air-quality monitoring stations via the World Air
// Quality Index search API.
package waqi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Station is one monitoring station returned by a city search.
type Station struct {
	Name string
	Lat  float64
	Lon  float64
}

// Client queries the WAQI station search endpoint.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a WAQI search client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.waqi.info",
		logger:  logger,
	}
}

// SearchStations returns the stations matching a city name.
func (c *Client) SearchStations(ctx context.Context, city string) ([]Station, error) {
	params := url.Values{
		"token":   {c.token},
		"keyword": {city},
	}
	fullURL := fmt.Sprintf("%s/search/?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("station search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("waqi API error: status %d: %s", resp.StatusCode, body)
	}

	var waqiResp response
	if err := json.NewDecoder(resp.Body).Decode(&waqiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if waqiResp.Status != "ok" {
		return nil, fmt.Errorf("waqi API status %q for city %q", waqiResp.Status, city)
	}

	stations := make([]Station, 0, len(waqiResp.Data))
	for _, d := range waqiResp.Data {
		s := Station{Name: d.Station.Name}
		if len(d.Station.Geo) == 2 {
			s.Lat = d.Station.Geo[0]
			s.Lon = d.Station.Geo[1]
		}
		stations = append(stations, s)
	}

	c.logger.Debug("station search complete", "city", city, "stations", len(stations))
	return stations, nil
}

// WAQI API response types.

type response struct {
	Status string  `json:"status"`
	Data   []entry `json:"data"`
}

type entry struct {
	Station struct {
		Name string    `json:"name"`
		Geo  []float64 `json:"geo"` // [lat, lon]
	} `json:"station"`
}
