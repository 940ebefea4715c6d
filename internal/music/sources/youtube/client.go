package youtube

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	_ "github.com/bdandy/go-socks4"
	kkdai "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"
)

const (
	clientTimeout = 15 * time.Second
	dialTimeout   = 10 * time.Second
)

// NewHTTPClient returns an HTTP client that goes through proxyStr, which may be
// empty or an http, https, socks5 or socks4 URL. A proxy that cannot be used
// is logged and skipped.
func NewHTTPClient(proxyStr string, log zerolog.Logger) *http.Client {
	if proxyStr == "" {
		return &http.Client{Timeout: clientTimeout}
	}

	transport, err := proxyTransport(proxyStr)
	if err != nil {
		log.Warn().Err(err).Msg("Proxy unusable, connecting directly")
		return &http.Client{Timeout: clientTimeout}
	}

	log.Info().Str("proxy", redact(proxyStr)).Msg("Using proxy for YouTube requests")
	return &http.Client{Timeout: clientTimeout, Transport: transport}
}

// NewClient returns a kkdai client on top of NewHTTPClient.
func NewClient(proxyStr string, log zerolog.Logger) *kkdai.Client {
	return &kkdai.Client{HTTPClient: NewHTTPClient(proxyStr, log)}
}

func proxyTransport(proxyStr string) (*http.Transport, error) {
	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy format: %w", err)
	}

	switch proxyURL.Scheme {
	case "http", "https":
		return &http.Transport{Proxy: http.ProxyURL(proxyURL)}, nil

	case "socks5", "socks4":
		// socks4 is registered with x/net/proxy by go-socks4
		dialer, err := proxy.FromURL(proxyURL, &net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: dialTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("%s dialer: %w", proxyURL.Scheme, err)
		}
		return &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %q", proxyURL.Scheme)
	}
}

func redact(proxyStr string) string {
	u, err := url.Parse(proxyStr)
	if err != nil {
		return ""
	}
	return u.Redacted()
}
