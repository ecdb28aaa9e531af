package commercetools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/fjod/cartlink/pkg/circuitbreaker"
)

const maxResponseBytes = 10 << 20

type Config struct {
	ProjectKey   string
	ClientID     string
	ClientSecret string
	AuthURL      string
	APIURL       string
	SessionURL   string
	Scopes       []string
	Timeout      time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	breaker *circuitbreaker.Breaker
	log     zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the OAuth2 client, e.g. to point tests at an httptest server.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(log zerolog.Logger) Option {
	return func(cl *Client) { cl.log = log }
}

func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(cl *Client) { cl.breaker = b }
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ProjectKey == "" {
		return nil, ErrMissingProjectKey
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Client{cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = oauthClient(cfg)
	}
	if c.breaker == nil {
		s := circuitbreaker.DefaultSettings("commercetools")
		s.IsSuccessful = func(err error) bool { return err == nil || isClientError(err) }
		c.breaker = circuitbreaker.New(s, c.log)
	}
	return c, nil
}

func oauthClient(cfg Config) *http.Client {
	base := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     strings.TrimRight(cfg.AuthURL, "/") + "/oauth/token",
		Scopes:       cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := cc.Client(ctx)
	client.Timeout = cfg.Timeout
	return client
}

func (c *Client) projectURL(path string) string {
	return strings.TrimRight(c.cfg.APIURL, "/") + "/" + c.cfg.ProjectKey + path
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, out any) error {
	return c.breaker.Execute(func() error {
		return c.roundTrip(ctx, method, endpoint, query, body, out)
	})
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("commercetools request")

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, data []byte) error {
	apiErr := &APIError{}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" && len(apiErr.Errors) == 0 {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	apiErr.StatusCode = status
	return apiErr
}
