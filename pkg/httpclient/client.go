// Package httpclient provides the shared outbound HTTP client configuration
// for keyscope. All lookups that leave the process go through it: retries are
// reserved for rate limiting, default headers are injected once, and the
// HTTP_PROXY environment variable is honored unless explicitly ignored.
package httpclient

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"os"
	"sync/atomic"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// ignoreProxy controls whether the HTTP_PROXY environment variable is ignored.
var ignoreProxy atomic.Bool

// SetIgnoreProxy sets whether to ignore the HTTP_PROXY environment variable.
func SetIgnoreProxy(ignore bool) {
	ignoreProxy.Store(ignore)
}

// HeaderRoundTripper is an http.RoundTripper that adds default headers to
// requests. Headers already present on the request are left untouched.
type HeaderRoundTripper struct {
	Headers map[string]string
	Next    http.RoundTripper
}

func (hrt *HeaderRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if hrt.Next == nil {
		return nil, http.ErrNotSupported
	}

	for k, v := range hrt.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	return hrt.Next.RoundTrip(req)
}

// Get creates the keyscope retryable HTTP client.
//
// Rate limiting (429) is retried exactly once, honoring the server's
// Retry-After hint through retryablehttp's default backoff. Every other
// failure is surfaced to the caller immediately: a breach or liveness lookup
// that errors must degrade, not loop.
func Get(defaultHeaders map[string]string) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 1
	// Hand the last response back when the retry budget is spent so callers
	// can classify the status themselves instead of seeing a generic error.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil || resp == nil {
			return false, err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			log.Debug().Int("statusCode", resp.StatusCode).Msg("Rate limited, retrying once after backoff")
			return true, nil
		}
		return false, nil
	}

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}

	if !ignoreProxy.Load() {
		proxyServer, useHTTPProxy := os.LookupEnv("HTTP_PROXY")
		if useHTTPProxy {
			proxyURL, err := url.Parse(proxyServer)
			if err != nil {
				log.Fatal().Err(err).Str("HTTP_PROXY", proxyServer).Msg("Invalid Proxy URL in HTTP_PROXY environment variable")
			}
			log.Info().Str("proxy", proxyURL.String()).Msg("Using HTTP_PROXY")
			tr.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client.HTTPClient.Transport = &HeaderRoundTripper{Headers: defaultHeaders, Next: tr}
	return client
}
