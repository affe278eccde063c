// Package doh sends raw DNS messages to a DNS-over-HTTPS upstream (RFC 8484).
package doh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/net/http2"

	"github.com/haukened/rr-doh/internal/dns/common/log"
)

const (
	mediaType = "application/dns-message"
	// MaxMessageSize is the largest DNS message a DoH body may carry.
	MaxMessageSize = 65535

	defaultTimeout  = 5 * time.Second
	readIdleTimeout = 30 * time.Second
	pingTimeout     = 15 * time.Second
)

// Client posts DNS queries to DoH upstreams. It is safe for concurrent use and
// is meant to be shared by the whole process.
type Client struct {
	http    *http.Client
	timeout time.Duration
	logger  log.Logger
}

// Options configures a Client.
type Options struct {
	// Timeout bounds a request whose context carries no deadline. Defaults to 5s.
	Timeout time.Duration
	Logger  log.Logger
	// HTTPClient overrides the pooled client from NewHTTPClient, mainly for tests.
	HTTPClient *http.Client
}

// NewHTTPClient returns a pooled HTTP client with HTTP/2 enabled and idle
// connection health checks, so a dead upstream connection is noticed before
// a query is sent down it.
func NewHTTPClient() (*http.Client, error) {
	tr := cleanhttp.DefaultPooledTransport()
	h2, err := http2.ConfigureTransports(tr)
	if err != nil {
		return nil, fmt.Errorf("failed to configure http2 transport: %w", err)
	}
	h2.ReadIdleTimeout = readIdleTimeout
	h2.PingTimeout = pingTimeout
	return &http.Client{
		Transport: tr,
		// DoH endpoints are fixed URLs; a redirect means misconfiguration.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	if opts.HTTPClient == nil {
		hc, err := NewHTTPClient()
		if err != nil {
			return nil, err
		}
		opts.HTTPClient = hc
	}
	return &Client{
		http:    opts.HTTPClient,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}, nil
}

// ensureContextDeadline applies the client timeout when ctx has no deadline of its own.
func (c *Client) ensureContextDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, nil
}

// Send POSTs query to upstreamURL and returns the body of a 2xx response
// unchanged. Failures are returned as *TransportError. Send never retries.
func (c *Client) Send(ctx context.Context, upstreamURL string, query []byte) ([]byte, error) {
	ctx, cancel := c.ensureContextDeadline(ctx)
	if cancel != nil {
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(query))
	if err != nil {
		return nil, &TransportError{Kind: KindNetwork, URL: upstreamURL, Err: err}
	}
	req.Header.Set("Content-Type", mediaType)
	req.Header.Set("Accept", mediaType)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Kind: KindNetwork, URL: upstreamURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &TransportError{
			Kind:       KindStatus,
			URL:        upstreamURL,
			StatusCode: resp.StatusCode,
			Err:        errors.New(resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxMessageSize+1))
	if err != nil {
		return nil, &TransportError{Kind: KindBody, URL: upstreamURL, Err: err}
	}
	if len(body) > MaxMessageSize {
		return nil, &TransportError{
			Kind: KindBody,
			URL:  upstreamURL,
			Err:  fmt.Errorf("response body exceeds %d bytes", MaxMessageSize),
		}
	}

	c.logger.Debug(map[string]any{
		"upstream":     upstreamURL,
		"proto":        resp.Proto,
		"content_type": resp.Header.Get("Content-Type"),
		"bytes":        len(body),
		"elapsed":      time.Since(start).String(),
	}, "DoH exchange complete")
	return body, nil
}
