// Package httpclient builds the shared HTTP client used for Azure AD token
// requests and Management API calls: retryablehttp wrapped in an OTel
// transport, adapted from
// Chris-Alexander-Pop-microservices-library/pkg/client/rest/client.go.
package httpclient

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config controls retry count, timeout, and the User-Agent header sent on
// every request.
type Config struct {
	Timeout   time.Duration `env:"HTTPCLIENT__TIMEOUT" env-default:"30s"`
	Retries   int           `env:"HTTPCLIENT__RETRIES" env-default:"3"`
	UserAgent string        `env:"HTTPCLIENT__USER_AGENT" env-default:"sbcore-client"`
}

// New builds an *http.Client with retry, User-Agent, and OTel
// instrumentation wired in.
func New(cfg Config) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.Logger = nil

	baseTransport := retryClient.HTTPClient.Transport
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}
	retryClient.HTTPClient.Transport = otelhttp.NewTransport(&userAgentTransport{
		next:      baseTransport,
		userAgent: cfg.UserAgent,
	})

	return retryClient.StandardClient()
}

// userAgentTransport sets the User-Agent header on every outbound request
// that doesn't already carry one.
type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.next.RoundTrip(req)
}
