package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Option customises a Client or Scraper
type Option func(*transport)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(t *transport) { t.httpClient = c }
}

// WithLimiter shares an outbound rate limiter, e.g. between the catalog
// client and the scraper that hit the same storefront.
func WithLimiter(l *rate.Limiter) Option {
	return func(t *transport) { t.limiter = l }
}

// NewLimiter returns a limiter for rps requests per second, or nil when rps is zero.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

type transport struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

func newTransport(config Config, opts []Option) *transport {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	t := &transport{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    NewLimiter(config.RequestsPerSecond),
		userAgent:  config.UserAgent,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// get performs a GET and returns the body of a 2xx response. Every failure is
// reported as a *RemoteFetchError.
func (t *transport) get(ctx context.Context, rawURL string, accept string) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &RemoteFetchError{URL: rawURL, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &RemoteFetchError{URL: rawURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	req.Header.Set("Accept", accept)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteFetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteFetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteFetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Body:       truncateBody(body),
			Err:        ErrUnexpectedStatus,
		}
	}

	return body, nil
}

// Client fetches pages of the remote product catalog
type Client struct {
	config Config
	*transport
}

// NewClient creates a new catalog client with the given configuration
func NewClient(config Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Client{config: config, transport: newTransport(config, opts)}, nil
}

// CatalogURL builds the request URL for the given filter params
func (c *Client) CatalogURL(params map[string]string) string {
	if len(params) == 0 {
		return c.config.CatalogURL
	}
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return c.config.CatalogURL + "?" + values.Encode()
}

// FetchCatalog fetches one page of products. Params are forwarded verbatim
// as the query string. No retry is attempted.
func (c *Client) FetchCatalog(ctx context.Context, params map[string]string) ([]Product, error) {
	catalogURL := c.CatalogURL(params)

	body, err := c.get(ctx, catalogURL, "application/json")
	if err != nil {
		return nil, err
	}

	var page CatalogResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &RemoteFetchError{
			URL:        catalogURL,
			StatusCode: http.StatusOK,
			Body:       truncateBody(body),
			Err:        fmt.Errorf("failed to unmarshal catalog response: %w", err),
		}
	}

	return page.Products, nil
}
