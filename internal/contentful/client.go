// Package contentful provides a minimal client for the Contentful Content
// Management API (CMA): reading a single asset and paging through the assets
// of a space environment.
//
// Requests authenticate with a CMA personal access token sent as a bearer
// token. Rate-limited responses (429) are retried after the delay advertised
// in X-Contentful-RateLimit-Reset, up to maxRateLimitRetries times.
package contentful

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// defaultBaseURL is the Content Management API base URL.
	defaultBaseURL = "https://api.contentful.com"

	// defaultTimeout is the HTTP client timeout for API calls.
	defaultTimeout = 30 * time.Second

	// maxRateLimitRetries bounds retries of 429 responses per request.
	maxRateLimitRetries = 3

	// maxPageSize is the CMA collection limit.
	maxPageSize = 1000
)

// ErrNotFound is matched by APIError values for 404 responses.
var ErrNotFound = errors.New("contentful: resource not found")

// APIError is a non-2xx response from the CMA.
type APIError struct {
	StatusCode int
	ID         string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("contentful API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("contentful API error: %s (status %d, id %s)", e.Message, e.StatusCode, e.ID)
}

// Is reports ErrNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// errorBody is the CMA error envelope.
type errorBody struct {
	Sys struct {
		ID string `json:"id"`
	} `json:"sys"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// Client calls the Contentful Content Management API.
type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient creates a CMA client. An empty baseURL selects the public API.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		token:      token,
		baseURL:    baseURL,
		sleep:      sleepCtx,
	}
}

// GetAsset fetches a single asset.
func (c *Client) GetAsset(ctx context.Context, spaceID, environmentID, assetID string) (*Asset, error) {
	path := fmt.Sprintf("/spaces/%s/environments/%s/assets/%s",
		url.PathEscape(spaceID), url.PathEscape(environmentID), url.PathEscape(assetID))

	var asset Asset
	if err := c.get(ctx, path, nil, &asset); err != nil {
		return nil, fmt.Errorf("get asset %s/%s/%s: %w", spaceID, environmentID, assetID, err)
	}
	return &asset, nil
}

// ListAssets fetches one page of assets ordered by creation time so that
// skip-based paging is stable across requests.
func (c *Client) ListAssets(ctx context.Context, spaceID, environmentID string, skip, limit int) (*AssetPage, error) {
	if limit <= 0 || limit > maxPageSize {
		return nil, fmt.Errorf("list assets: limit %d out of range 1..%d", limit, maxPageSize)
	}
	path := fmt.Sprintf("/spaces/%s/environments/%s/assets",
		url.PathEscape(spaceID), url.PathEscape(environmentID))
	query := url.Values{
		"skip":  {strconv.Itoa(skip)},
		"limit": {strconv.Itoa(limit)},
		"order": {"sys.createdAt"},
	}

	var page AssetPage
	if err := c.get(ctx, path, query, &page); err != nil {
		return nil, fmt.Errorf("list assets %s/%s skip=%d: %w", spaceID, environmentID, skip, err)
	}
	return &page, nil
}

// get issues an authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/vnd.contentful.management.v1+json")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		log.Debug().
			Str("path", path).
			Int("statusCode", resp.StatusCode).
			Dur("duration", time.Since(start)).
			Msg("Contentful API response")

		if readErr != nil {
			return fmt.Errorf("read response: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRateLimitRetries {
			wait := rateLimitReset(resp.Header)
			log.Warn().Str("path", path).Dur("wait", wait).Int("attempt", attempt+1).Msg("Contentful rate limit hit, retrying")
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return parseAPIError(resp.StatusCode, body)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200))
		}
		return nil
	}
}

func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.ID = eb.Sys.ID
		apiErr.Message = eb.Message
		apiErr.RequestID = eb.RequestID
	}
	return apiErr
}

// rateLimitReset reads the seconds-until-reset header, defaulting to 1s.
func rateLimitReset(h http.Header) time.Duration {
	if v := h.Get("X-Contentful-RateLimit-Reset"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
