// Package http builds the outbound client used for Poynt API calls.
package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"
)

// ClientOptions tunes the pooled transport.
type ClientOptions struct {
	Timeout               time.Duration
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration
	KeepAlive             time.Duration
	MaxConnsPerHost       int
	MaxIdleConnsPerHost   int
	// Proxy overrides http.ProxyFromEnvironment when set.
	Proxy func(*http.Request) (*url.URL, error)
}

// PoyntDefaults is sized for a single API host, small JSON bodies, and
// bursts of resync traffic.
func PoyntDefaults() ClientOptions {
	return ClientOptions{
		Timeout:               30 * time.Second,
		DialTimeout:           5 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		KeepAlive:             60 * time.Second,
		MaxConnsPerHost:       32,
		MaxIdleConnsPerHost:   16,
	}
}

// Option mutates ClientOptions.
type Option func(*ClientOptions)

// WithTimeout sets the whole-request timeout, including token refreshes.
func WithTimeout(d time.Duration) Option {
	return func(o *ClientOptions) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithMaxConnsPerHost caps concurrent connections to the API host.
func WithMaxConnsPerHost(n int) Option {
	return func(o *ClientOptions) {
		if n > 0 {
			o.MaxConnsPerHost = n
			if o.MaxIdleConnsPerHost > n {
				o.MaxIdleConnsPerHost = n
			}
		}
	}
}

// NewClient returns a pooled client. TLS 1.2 is the floor; certificate
// verification is never disabled.
func NewClient(opts ...Option) *http.Client {
	o := PoyntDefaults()
	for _, opt := range opts {
		opt(&o)
	}

	proxy := http.ProxyFromEnvironment
	if o.Proxy != nil {
		proxy = o.Proxy
	}

	dialer := &net.Dialer{Timeout: o.DialTimeout, KeepAlive: o.KeepAlive}
	transport := &http.Transport{
		Proxy:                 proxy,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          o.MaxIdleConnsPerHost,
		MaxIdleConnsPerHost:   o.MaxIdleConnsPerHost,
		MaxConnsPerHost:       o.MaxConnsPerHost,
		IdleConnTimeout:       o.IdleConnTimeout,
		TLSHandshakeTimeout:   o.DialTimeout,
		ResponseHeaderTimeout: o.ResponseHeaderTimeout,
		ExpectContinueTimeout: time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{Transport: transport, Timeout: o.Timeout}
}
