package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Offer is one streaming-availability listing for a movie.
type Offer struct {
	Provider string  `json:"provider"`
	Kind     string  `json:"kind"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Link     string  `json:"link"`
}

// PriceClient looks up streaming offers for a movie from the availability
// API.
type PriceClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewPriceClient(baseURL, apiKey string) *PriceClient {
	return &PriceClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *PriceClient) OffersForMovie(ctx context.Context, movieID int64) ([]Offer, error) {
	params := url.Values{}
	params.Set("movie_id", strconv.FormatInt(movieID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/offers?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build pricing request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pricing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pricing responded with status %d", resp.StatusCode)
	}

	var offers []Offer
	if err := json.NewDecoder(resp.Body).Decode(&offers); err != nil {
		return nil, fmt.Errorf("decode pricing response: %w", err)
	}

	return offers, nil
}
