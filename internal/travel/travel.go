// Package travel estimates driving time between two places, used to size
// the validity window of transport permits. Geocoding goes through
// Nominatim and routing through OpenRouteService.
package travel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const orsDirectionsURL = "https://api.openrouteservice.org/v2/directions/driving-car"

// Config carries the estimator settings.
type Config struct {
	// ORSAPIKey authorizes OpenRouteService directions requests.
	ORSAPIKey string
	// NominatimURL is the geocoder root, default the public instance.
	NominatimURL string
	// UserAgent identifies this service to Nominatim, whose usage policy
	// requires one.
	UserAgent string
	// HTTPClient overrides the default client (primarily for tests).
	HTTPClient *http.Client
	Timeout    time.Duration
	// DirectionsURL overrides the ORS endpoint (for tests).
	DirectionsURL string
}

// Estimator resolves place names and computes a travel-time estimate.
type Estimator struct {
	cfg        Config
	httpClient *http.Client
}

// New validates cfg and returns a ready Estimator.
func New(cfg Config) (*Estimator, error) {
	if cfg.ORSAPIKey == "" {
		return nil, errors.New("travel: ORS API key is required")
	}
	if cfg.NominatimURL == "" {
		cfg.NominatimURL = "https://nominatim.openstreetmap.org"
	}
	cfg.NominatimURL = strings.TrimRight(cfg.NominatimURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = "gsmb-backend/1.0"
	}
	if cfg.DirectionsURL == "" {
		cfg.DirectionsURL = orsDirectionsURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Estimator{cfg: cfg, httpClient: httpClient}, nil
}

type coordinate struct {
	Lon float64
	Lat float64
}

func (e *Estimator) geocode(ctx context.Context, place string) (coordinate, error) {
	q := url.Values{"q": {place}, "format": {"json"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.NominatimURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return coordinate{}, fmt.Errorf("travel: create request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return coordinate{}, fmt.Errorf("travel: geocode %q: %w", place, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return coordinate{}, fmt.Errorf("travel: geocode %q: read response: %w", place, err)
	}
	if resp.StatusCode != http.StatusOK {
		return coordinate{}, fmt.Errorf("travel: geocoding failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(data, &results); err != nil {
		return coordinate{}, fmt.Errorf("travel: geocode %q: decode response: %w", place, err)
	}
	if len(results) == 0 {
		return coordinate{}, fmt.Errorf("travel: location %q not found", place)
	}
	var c coordinate
	if _, err := fmt.Sscanf(results[0].Lat, "%f", &c.Lat); err != nil {
		return coordinate{}, fmt.Errorf("travel: geocode %q: bad latitude: %w", place, err)
	}
	if _, err := fmt.Sscanf(results[0].Lon, "%f", &c.Lon); err != nil {
		return coordinate{}, fmt.Errorf("travel: geocode %q: bad longitude: %w", place, err)
	}
	return c, nil
}

func (e *Estimator) routeDistanceKM(ctx context.Context, from, to coordinate) (float64, error) {
	body := map[string]any{
		"coordinates": [][]float64{{from.Lon, from.Lat}, {to.Lon, to.Lat}},
		"units":       "km",
	}
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("travel: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.DirectionsURL, strings.NewReader(string(data)))
	if err != nil {
		return 0, fmt.Errorf("travel: create request: %w", err)
	}
	req.Header.Set("Authorization", e.cfg.ORSAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("travel: directions request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("travel: directions request: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("travel: directions failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out struct {
		Routes []struct {
			Summary struct {
				Distance float64 `json:"distance"`
			} `json:"summary"`
		} `json:"routes"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("travel: directions request: decode response: %w", err)
	}
	if len(out.Routes) == 0 {
		return 0, errors.New("travel: no route found")
	}
	return out.Routes[0].Summary.Distance, nil
}

// EstimateHours returns the whole-hour driving estimate between two places:
// the route distance at 30 km/h plus a 2 hour loading allowance, rounded to
// the nearest hour.
func (e *Estimator) EstimateHours(ctx context.Context, from, to string) (int, error) {
	a, err := e.geocode(ctx, from)
	if err != nil {
		return 0, err
	}
	b, err := e.geocode(ctx, to)
	if err != nil {
		return 0, err
	}
	distanceKM, err := e.routeDistanceKM(ctx, a, b)
	if err != nil {
		return 0, err
	}
	return int(math.Round(distanceKM/30 + 2)), nil
}
