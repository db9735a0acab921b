package source

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const maxBodySize = 5 * 1024 * 1024

// Requester performs rate limited GET requests for every strategy
type Requester struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewRequester creates a Requester, requestsPerSecond <= 0 disables rate limiting
func NewRequester(timeout time.Duration, requestsPerSecond float64, userAgent string) *Requester {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &Requester{
		client: &http.Client{
			Timeout: timeout,
		},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: userAgent,
	}
}

// Client returns the underlying HTTP client
func (r *Requester) Client() *http.Client {
	return r.client
}

// Get downloads url and returns its body, non-2xx responses are errors
func (r *Requester) Get(ctx context.Context, url string) ([]byte, error) {
	err := r.limiter.Wait(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "rate limit wait cancelled")
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failure creating request")
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "failure performing request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("received unexpected status code: %d", resp.StatusCode)
	}

	body, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "failure reading response body")
	}

	return body, nil
}
