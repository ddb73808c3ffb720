package locationIQ

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
)

const DefaultBaseURL = "https://us1.locationiq.com"

// LocationIQClient resolves addresses to coordinates and back.
type LocationIQClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func New(apiKey, baseURL string) *LocationIQClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &LocationIQClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

type addressPayload struct {
	Address string `json:"display_name"`
}

type searchResult struct {
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Address string `json:"display_name"`
}

// Geocode returns the best match for address.
// An address LocationIQ cannot place returns types.ErrLocationNotFound.
func (c *LocationIQClient) Geocode(ctx context.Context, address string) (models.Location, error) {
	ctx = wrap.WithAction(ctx, "locationiq_geocode")

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	var results []searchResult
	if err := c.get(ctx, "/v1/search", q, &results); err != nil {
		return models.Location{}, err
	}
	if len(results) == 0 {
		return models.Location{}, wrap.Error(ctx, types.ErrLocationNotFound)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Location{}, wrap.Error(ctx, fmt.Errorf("failed to parse latitude: %w", err))
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Location{}, wrap.Error(ctx, fmt.Errorf("failed to parse longitude: %w", err))
	}

	resolved := results[0].Address
	if resolved == "" {
		resolved = address
	}
	return models.Location{Latitude: lat, Longitude: lon, Address: resolved}, nil
}

// ReverseGeocode returns the display address of a coordinate.
func (c *LocationIQClient) ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error) {
	ctx = wrap.WithAction(ctx, "locationiq_reverse_geocode")

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("format", "json")

	var payload addressPayload
	if err := c.get(ctx, "/v1/reverse", q, &payload); err != nil {
		return "", err
	}
	return payload.Address, nil
}

func (c *LocationIQClient) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("build LocationIQ request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return wrap.Error(ctx, fmt.Errorf("failed to make request to LocationIQ: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return wrap.Error(ctx, types.ErrLocationNotFound)
	case resp.StatusCode != http.StatusOK:
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return wrap.Error(ctx, fmt.Errorf("unexpected LocationIQ response status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to decode LocationIQ response: %w", err))
	}
	return nil
}
