// Package network provides the pre-configured HTTP execution layer shared by every site adapter.
package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ovod-cli/ovod/hook"
	"github.com/ovod-cli/ovod/log"
)

// maxRedirects bounds redirect following; scraped sites occasionally loop.
const maxRedirects = 10

// maxBodySize caps how much of a response is read into memory.
const maxBodySize = 20 << 20

// ErrStatus is returned when the final attempt still yielded a non-2xx
// status. The hook chain has already normalized the body by then.
var ErrStatus = errors.New("unexpected status")

// Options configure a Client.
type Options struct {
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	// TLSSpoof routes HTTPS through the Chrome-fingerprint transport.
	TLSSpoof bool
	// InsecureTLS disables certificate verification on the plain transport.
	InsecureTLS bool
}

// Client executes hook-processed HTTP requests with bounded retry.
// It is safe for concurrent use.
type Client struct {
	http     *http.Client
	requests *hook.RequestChain
	response *hook.ResponseChain
	opts     Options
}

// New builds a Client. Nil chains are replaced by empty ones so the envelope
// path is uniform.
func New(opts Options, requests *hook.RequestChain, responses *hook.ResponseChain) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if requests == nil {
		requests = hook.NewRequestChain()
	}
	if responses == nil {
		responses = hook.NewResponseChain()
	}

	var transport http.RoundTripper
	if opts.TLSSpoof {
		transport = newSpoofedTransport(opts.Timeout)
	} else {
		transport = newTransport(opts.InsecureTLS)
	}

	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		requests: requests,
		response: responses,
		opts:     opts,
	}
}

// Get fetches url with optional extra headers.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (hook.Response, error) {
	return c.Do(ctx, hook.Request{
		Method:  http.MethodGet,
		URL:     rawURL,
		Headers: cloneOrEmpty(headers),
		Meta:    map[string]string{},
	})
}

// Post sends body with the given content type.
func (c *Client) Post(ctx context.Context, rawURL, contentType string, body []byte, headers map[string]string) (hook.Response, error) {
	h := cloneOrEmpty(headers)
	h["Content-Type"] = contentType
	return c.Do(ctx, hook.Request{
		Method:  http.MethodPost,
		URL:     rawURL,
		Headers: h,
		Body:    body,
		Meta:    map[string]string{},
	})
}

// PostForm url-encodes values and posts them.
func (c *Client) PostForm(ctx context.Context, rawURL string, values url.Values, headers map[string]string) (hook.Response, error) {
	return c.Post(ctx, rawURL, "application/x-www-form-urlencoded", []byte(values.Encode()), headers)
}

// Do runs the request envelope through the request chain, executes it with
// bounded retry, and runs the result through the response chain.
//
// Network failures and 5xx/429 statuses are retried; every abandoned
// response body is drained and closed before the next attempt so the
// underlying connection returns to the pool.
func (c *Client) Do(ctx context.Context, req hook.Request) (hook.Response, error) {
	processed := c.requests.Apply(req)

	var resp *http.Response
	var err error
	attempts := c.opts.Retries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			log.Warnf("retrying %s %s (attempt %d/%d): %v",
				processed.Method, processed.URL, attempt+1, attempts, retryCause(resp, err))
			select {
			case <-ctx.Done():
				return hook.Response{}, ctx.Err()
			case <-time.After(c.opts.RetryDelay * time.Duration(attempt)):
			}
		}

		if resp != nil {
			drain(resp)
		}

		resp, err = c.attempt(ctx, processed)
		if err != nil {
			if ctx.Err() != nil {
				return hook.Response{}, ctx.Err()
			}
			continue
		}
		if !retryableStatus(resp.StatusCode) {
			break
		}
	}

	if err != nil {
		return hook.Response{}, fmt.Errorf("%s %s: %w", processed.Method, processed.URL, err)
	}
	defer drain(resp)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return hook.Response{}, fmt.Errorf("read body: %w", err)
	}

	envelope := c.response.Apply(hook.Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType(resp),
		Headers:     flattenHeaders(resp.Header),
		Body:        body,
		Meta:        map[string]string{},
	})

	if envelope.StatusCode < 200 || envelope.StatusCode >= 300 {
		return envelope, fmt.Errorf("%w: %d for %s", ErrStatus, envelope.StatusCode, envelope.URL)
	}
	return envelope, nil
}

// Stats exposes the hook chain counters for diagnostics commands.
func (c *Client) Stats() (requests, responses hook.Snapshot) {
	return c.requests.Stats(), c.response.Stats()
}

func (c *Client) attempt(ctx context.Context, envelope hook.Request) (*http.Response, error) {
	var body io.Reader
	if len(envelope.Body) > 0 {
		body = bytes.NewReader(envelope.Body)
	}

	req, err := http.NewRequestWithContext(ctx, envelope.Method, envelope.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range envelope.Headers {
		req.Header.Set(k, v)
	}
	return c.http.Do(req)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func retryCause(resp *http.Response, err error) any {
	if err != nil {
		return err
	}
	if resp != nil {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return "unknown"
}

// drain consumes the remaining body and closes it so the connection can be
// reused by the transport.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	resp.Body.Close()
}

func contentType(resp *http.Response) string {
	ct := resp.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func cloneOrEmpty(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
