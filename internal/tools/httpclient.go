package tools

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// newHTTPClient builds the HTTP client the web tools share. TLS 1.2 is the
// floor; connections are pooled and time-bounded so a stuck remote cannot
// hold a tool call open past the timeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
