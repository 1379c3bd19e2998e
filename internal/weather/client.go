// Package weather fetches historical daily conditions from the Visual
// Crossing timeline API and caches them into daily entries.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultBaseURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

// ErrNoData is returned when the API answers without any day records.
var ErrNoData = errors.New("no weather data for day")

// Conditions is one day of weather.
type Conditions struct {
	Temp       float64 `json:"temp"`
	Conditions string  `json:"conditions"`
}

// Client calls the Visual Crossing timeline API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a weather client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type timelineResponse struct {
	Days []Conditions `json:"days"`
}

// Day fetches conditions for one calendar day (YYYY-MM-DD) at a location.
// Transient failures are retried with exponential backoff; client errors from
// the API are not.
func (c *Client) Day(ctx context.Context, location, day string) (*Conditions, error) {
	endpoint := fmt.Sprintf("%s/%s/%s?unitGroup=metric&include=days&contentType=json&key=%s",
		c.baseURL, url.PathEscape(location), url.PathEscape(day), url.QueryEscape(c.apiKey))

	var conditions *Conditions
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building weather request: %w", err))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("requesting weather: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("weather API returned %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("weather API returned %d", resp.StatusCode))
		}

		var body timelineResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding weather response: %w", err))
		}
		if len(body.Days) == 0 {
			return backoff.Permanent(ErrNoData)
		}
		conditions = &body.Days[0]
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return conditions, nil
}
