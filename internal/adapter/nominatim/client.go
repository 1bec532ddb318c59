package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/observability"
)

// DefaultBaseURL is the public OpenStreetMap reverse geocoding endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org/reverse"

// Client implements domain.Geocoder using the Nominatim reverse API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	language   string
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Config holds the provider settings for a Client.
type Config struct {
	BaseURL   string
	Language  string // accept-language, e.g. "pt-BR"
	UserAgent string // required by the Nominatim usage policy
	Timeout   time.Duration
}

// NewClient creates a Nominatim reverse geocoding client.
func NewClient(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   baseURL,
		language:  cfg.Language,
		userAgent: cfg.UserAgent,
		metrics:   metrics,
		logger:    logger,
	}
}

// ReverseGeocode converts coordinates to the provider's display name. Coordinates
// are sent at full precision. Every failure wraps domain.ErrGeocodeUpstream.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{
		"format": {"jsonv2"},
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	if c.language != "" {
		params.Set("accept-language", c.language)
	}

	start := time.Now()
	addr, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		c.logger.Debug("nominatim request failed", "lat", lat, "lon", lon, "error", err)
	case addr == "":
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return addr, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", domain.ErrGeocodeUpstream, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: reverse geocode request: %w", domain.ErrGeocodeUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: nominatim status %d: %s", domain.ErrGeocodeUpstream, resp.StatusCode, body)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", domain.ErrGeocodeUpstream, err)
	}
	if out.DisplayName == nil {
		if out.Error != "" {
			c.logger.DebugContext(ctx, "nominatim returned no address", "reason", out.Error)
		}
		return "", nil
	}
	return *out.DisplayName, nil
}

// Nominatim API response; only the display name is used.
type response struct {
	DisplayName *string `json:"display_name"`
	Error       string  `json:"error,omitempty"` // e.g. "Unable to geocode" for open ocean
}
