package nordpool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://dataportal-api.nordpoolgroup.com"

// ErrNoDataYet is returned when Nord Pool has not published prices for the
// requested date yet (HTTP 204). It is an expected outcome, not a failure,
// and drives the poller's retry loop.
var ErrNoDataYet = errors.New("nordpool: no day-ahead data published yet")

type Client struct {
	baseURL  string
	areas    []string
	currency string
	http     *http.Client
}

func NewClient(baseURL string, areas []string, currency string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		areas:    areas,
		currency: currency,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchDayAheadPrices fetches the day-ahead prices for the given delivery
// date. Returns ErrNoDataYet when the auction result is not published yet.
func (c *Client) FetchDayAheadPrices(ctx context.Context, date time.Time) (*DayAheadPrices, error) {
	url := fmt.Sprintf("%s/api/DayAheadPrices?date=%s&market=DayAhead&deliveryArea=%s&currency=%s",
		c.baseURL,
		date.Format("2006-01-02"),
		strings.Join(c.areas, ","),
		c.currency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching day-ahead prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, ErrNoDataYet
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from nordpool", resp.StatusCode)
	}

	var data DayAheadPrices
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding day-ahead response: %w", err)
	}

	return &data, nil
}
