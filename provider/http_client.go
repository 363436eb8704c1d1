package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultHTTPTimeout   = 30 * time.Second
	maxResponseBodyBytes = 4 << 20
)

// HTTPClientConfig configures a ProviderHTTPClient
type HTTPClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	DefaultHeaders map[string]string

	// Username and Password are sent as HTTP basic auth on every request when Username is set
	Username string
	Password string

	// Transport overrides http.DefaultTransport
	Transport http.RoundTripper
}

// DefaultHTTPClientConfig returns the configuration shared by gateway clients
func DefaultHTTPClientConfig(baseURL string, timeout time.Duration) HTTPClientConfig {
	return HTTPClientConfig{
		BaseURL: baseURL,
		Timeout: timeout,
		DefaultHeaders: map[string]string{
			"Accept":     "application/json",
			"User-Agent": "medusa-razorpay/1.0",
		},
	}
}

// HTTPRequest describes one gateway call. Endpoint is either absolute or relative to the base URL.
type HTTPRequest struct {
	Method      string
	Endpoint    string
	Headers     map[string]string
	Body        any
	QueryParams map[string]string
}

// HTTPResponse is a fully read gateway response
type HTTPResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// DecodeJSON unmarshals the body into target
func (r *HTTPResponse) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

// HTTPStatusError is returned for non-2xx answers. Response holds the body so gateways can decode their error format.
type HTTPStatusError struct {
	Response *HTTPResponse
}

func (e *HTTPStatusError) Error() string {
	body := e.Response.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("HTTP error %d: %s", e.Response.StatusCode, body)
}

// ProviderHTTPClient sends JSON requests to a gateway API
type ProviderHTTPClient struct {
	config HTTPClientConfig
	client *http.Client
}

// NewProviderHTTPClient creates a client, applying a 30s timeout when none is set
func NewProviderHTTPClient(config HTTPClientConfig) *ProviderHTTPClient {
	if config.Timeout <= 0 {
		config.Timeout = defaultHTTPTimeout
	}

	return &ProviderHTTPClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout, Transport: config.Transport},
	}
}

// Do sends req with a JSON body and decodes a successful answer into out when out is not nil.
// Non-2xx answers fail with *HTTPStatusError.
func (c *ProviderHTTPClient) Do(ctx context.Context, req *HTTPRequest, out any) (*HTTPResponse, error) {
	target, err := c.resolveURL(req.Endpoint, req.QueryParams)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	c.setHeaders(httpReq, req.Headers, body != nil)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	result := &HTTPResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: raw}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, &HTTPStatusError{Response: result}
	}

	if out != nil {
		if err := result.DecodeJSON(out); err != nil {
			return result, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return result, nil
}

func (c *ProviderHTTPClient) setHeaders(r *http.Request, headers map[string]string, hasBody bool) {
	for key, value := range c.config.DefaultHeaders {
		r.Header.Set(key, value)
	}
	for key, value := range headers {
		r.Header.Set(key, value)
	}
	if hasBody {
		r.Header.Set("Content-Type", "application/json")
	}
	if c.config.Username != "" {
		r.SetBasicAuth(c.config.Username, c.config.Password)
	}
}

// resolveURL joins relative endpoints onto the base URL and applies the query parameters
func (c *ProviderHTTPClient) resolveURL(endpoint string, query map[string]string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	if !u.IsAbs() {
		base, err := url.Parse(c.config.BaseURL)
		if err != nil {
			return "", fmt.Errorf("invalid base URL %q: %w", c.config.BaseURL, err)
		}
		joined := base.JoinPath(u.EscapedPath())
		joined.RawQuery = u.RawQuery
		u = joined
	}

	if len(query) > 0 {
		q := u.Query()
		for key, value := range query {
			q.Set(key, value)
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}
