package prayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"vakit-notify/internal/models"
)

// ErrLocalityUnresolved marks a locality whose times could not be obtained.
// The dispatch cycle skips such localities and carries on.
var ErrLocalityUnresolved = errors.New("locality unresolved")

// TimeSource supplies a locality's prayer times for a civil day.
type TimeSource interface {
	Times(ctx context.Context, loc Locality, day models.Date) ([]models.PrayerTime, error)
}

// Client queries an HTTP prayer-times API that serves today's schedule as
// {"success": true, "result": [{"vakit": "İmsak", "saat": "05:54"}, ...]}.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type apiResponse struct {
	Success bool                `json:"success"`
	Result  []models.PrayerTime `json:"result"`
	Message string              `json:"message,omitempty"`
}

// Times fetches the schedule. The API only serves the current day, so day is
// not sent upstream.
func (c *Client) Times(ctx context.Context, loc Locality, _ models.Date) ([]models.PrayerTime, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid prayer API URL: %w", err)
	}
	q := u.Query()
	q.Set("data.city", loc.Slug)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "apikey "+c.APIKey)
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLocalityUnresolved, loc.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrLocalityUnresolved, loc.Name, resp.StatusCode, body)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %s: decode: %v", ErrLocalityUnresolved, loc.Name, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("%w: %s: upstream reported failure: %s", ErrLocalityUnresolved, loc.Name, out.Message)
	}
	if err := Validate(out.Result); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLocalityUnresolved, loc.Name, err)
	}
	return out.Result[:len(models.PrayerNames)], nil
}

// Validate checks that times holds the six canonical prayers in order with
// parseable clock values. Extra trailing entries are ignored.
func Validate(times []models.PrayerTime) error {
	if len(times) < len(models.PrayerNames) {
		return fmt.Errorf("expected %d prayer times, got %d", len(models.PrayerNames), len(times))
	}
	for i, name := range models.PrayerNames {
		if Key(times[i].Vakit) != Key(name) {
			return fmt.Errorf("entry %d: expected %s, got %q", i, name, times[i].Vakit)
		}
		if _, err := ParseClock(times[i].Saat); err != nil {
			return fmt.Errorf("entry %d (%s): %w", i, name, err)
		}
	}
	return nil
}
