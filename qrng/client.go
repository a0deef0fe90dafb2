package qrng

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gabstv/httpdigest"

	"github.com/safing/entropool/info"
	"github.com/safing/entropool/log"
)

// Defaults.
const (
	DefaultURL     = "https://qrng.anu.edu.au/API/jsonI.php"
	DefaultTimeout = 5 * time.Minute

	// maxResponseSize limits how much is read from the service per request.
	maxResponseSize = 64 << 20
)

// Options configures a Client.
type Options struct {
	// URL is the JSON endpoint of the service.
	URL string
	// Timeout bounds every single request.
	Timeout time.Duration
	// APIKey is sent in the x-api-key header, if set.
	APIKey string
	// User and Password enable HTTP digest authentication, if set.
	User     string
	Password string
	// Transport overrides the default transport. It is not used with digest
	// authentication.
	Transport http.RoundTripper
}

// Client fetches entropy from the remote service.
// It holds no state apart from its HTTP client and is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

// NewClient returns a new client for the service.
func NewClient(opts Options) (*Client, error) {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	baseURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid service url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid service url: unsupported scheme %q", baseURL.Scheme)
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert
	}
	if opts.User != "" {
		transport = httpdigest.New(opts.User, opts.Password)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  opts.APIKey,
		timeout: opts.Timeout,
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
	}, nil
}

// FetchBytes fetches exactly n bytes from the service with a single request.
func (c *Client) FetchBytes(ctx context.Context, n int) ([]byte, error) {
	body, err := c.fetch(ctx, n, UnitByte)
	if err != nil {
		return nil, err
	}
	return ParseBytes(body, n)
}

// FetchHex fetches exactly n hex pairs from the service with a single request.
func (c *Client) FetchHex(ctx context.Context, n int) ([]string, error) {
	body, err := c.fetch(ctx, n, UnitHex)
	if err != nil {
		return nil, err
	}
	return ParseHex(body, n)
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

func (c *Client) requestURL(n int, unitType UnitType) string {
	u := *c.baseURL
	q := u.Query()
	q.Set("length", strconv.Itoa(n))
	q.Set("type", string(unitType))
	q.Set("size", "1")
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) fetch(ctx context.Context, n int, unitType UnitType) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("qrng: invalid unit count %d", n)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(n, unitType), nil)
	if err != nil {
		return nil, fmt.Errorf("qrng: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "entropool/"+info.Version())
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain for connection reuse
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: service returned status %s", ErrSourceUnavailable, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, classifyError(err)
	}

	log.Tracef("qrng: fetched %d %s units in %s", n, unitType, time.Since(started))
	return body, nil
}

func classifyError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
}
