// Package catalog wraps the third-party movie catalog API and the
// streaming-price lookup API. Both are plain request/response proxies with no
// state of their own.
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

type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type listResponse struct {
	Page    int     `json:"page"`
	Results []Movie `json:"results"`
}

func (c *Client) Search(ctx context.Context, query string, page int) ([]Movie, error) {
	params := url.Values{}
	params.Set("query", query)
	return c.list(ctx, "/search/movie", params, page)
}

func (c *Client) Discover(ctx context.Context, page int) ([]Movie, error) {
	params := url.Values{}
	params.Set("sort_by", "popularity.desc")
	return c.list(ctx, "/discover/movie", params, page)
}

func (c *Client) list(ctx context.Context, path string, params url.Values, page int) ([]Movie, error) {
	if page < 1 {
		page = 1
	}
	params.Set("api_key", c.apiKey)
	params.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog responded with status %d", resp.StatusCode)
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	return body.Results, nil
}
