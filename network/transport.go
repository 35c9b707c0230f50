// Package network provides the pre-configured HTTP execution layer shared by every site adapter.
package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// newTransport initializes a tuned http.Transport with optimized pool and
// timeout parameters for concurrent scraping workloads.
func newTransport(insecure bool) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 100
	t.MaxConnsPerHost = 200
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	t.ExpectContinueTimeout = 30 * time.Second
	if insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return t
}

// spoofedTransport emulates Chrome's TLS Client Hello with utls so sites
// behind anti-bot challenges (Cloudflare, DDoS-Guard) accept the connection.
// It tries HTTP/2 first and transparently falls back to an HTTP/1.1
// transport when the h2 handshake is refused.
type spoofedTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

func newSpoofedTransport(dialTimeout time.Duration) *spoofedTransport {
	return &spoofedTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialSpoofed(ctx, network, addr, dialTimeout, nil)
			},
		},
		h1: &http.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialSpoofed(ctx, network, addr, dialTimeout, []string{"http/1.1"})
			},
		},
	}
}

// RoundTrip routes plain HTTP through the default pool and HTTPS through the
// fingerprinted dialers.
func (t *spoofedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return http.DefaultTransport.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	if req.GetBody != nil {
		body, berr := req.GetBody()
		if berr != nil {
			return nil, fmt.Errorf("h2 failed (%v), body rewind: %w", err, berr)
		}
		req = req.Clone(req.Context())
		req.Body = body
	}
	return t.h1.RoundTrip(req)
}

// dialSpoofed opens a TCP connection and completes a utls handshake
// presenting Chrome 120's fingerprint. A nil protos slice advertises Chrome's
// natural ALPN (h2 + http/1.1).
func dialSpoofed(ctx context.Context, network, addr string, timeout time.Duration, protos []string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	cfg := &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}
	if protos != nil {
		cfg.NextProtos = protos
	}

	tlsConn := utls.UClient(conn, cfg, utls.HelloChrome_120)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return tlsConn, nil
}
