package netutil

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"ipscope/internal/logger"

	"golang.org/x/net/proxy"
)

// NewClient builds the client shared by trace, geo and AI calls. A zero
// timeout leaves requests bounded only by the transport. proxyURL accepts
// http, https and socks5 schemes; empty means direct.
func NewClient(timeout time.Duration, proxyURL string) (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}

		switch u.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		case "socks5", "socks5h":
			d, err := proxy.FromURL(u, dialer)
			if err != nil {
				return nil, fmt.Errorf("failed to create socks dialer: %w", err)
			}
			cd, ok := d.(proxy.ContextDialer)
			if !ok {
				return nil, fmt.Errorf("socks dialer does not support contexts")
			}
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return cd.DialContext(ctx, network, addr)
			}
		default:
			return nil, fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
		}
		logger.Log.Debugf("Outbound requests via proxy: %s", u.Redacted())
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}
