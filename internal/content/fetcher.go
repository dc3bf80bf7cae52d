// Package content retrieves the rendered campaign HTML from its source
// and exposes the optional cache-refresh precondition in front of it.
package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultFetchTimeout = 30 * time.Second

// cacheBustParam carries the current Unix timestamp so intermediary
// caches never serve yesterday's rendering.
const cacheBustParam = "cb"

var (
	// ErrFetch marks a failed or empty content retrieval.
	ErrFetch = errors.New("content: fetch failed")

	// ErrRefresh marks a failed cache-refresh precondition.
	ErrRefresh = errors.New("content: refresh failed")

	// ErrAuth marks a rejected login against the content source's
	// ancillary system. Gets its own process exit code.
	ErrAuth = errors.New("content: authentication failed")
)

// Fetcher retrieves the rendered HTML document over HTTP.
type Fetcher struct {
	client    *resty.Client
	sourceURL string
	cacheBust bool
	now       func() time.Time
}

func NewFetcher(sourceURL string, cacheBust bool) (*Fetcher, error) {
	client := resty.New()
	client.SetTimeout(defaultFetchTimeout)
	client.SetRetryCount(0)

	return NewFetcherWithClient(sourceURL, cacheBust, client)
}

func NewFetcherWithClient(sourceURL string, cacheBust bool, client *resty.Client) (*Fetcher, error) {
	trimmedURL := strings.TrimSpace(sourceURL)
	if trimmedURL == "" {
		return nil, fmt.Errorf("content source url is required")
	}
	if _, err := url.ParseRequestURI(trimmedURL); err != nil {
		return nil, fmt.Errorf("invalid content source url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	return &Fetcher{
		client:    client,
		sourceURL: trimmedURL,
		cacheBust: cacheBust,
		now:       time.Now,
	}, nil
}

// Fetch performs the single content GET of a run.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	req := f.client.R().SetContext(ctx)
	if f.cacheBust {
		req.SetQueryParam(cacheBustParam, strconv.FormatInt(f.now().Unix(), 10))
	}

	resp, err := req.Get(f.sourceURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: source returned status %d", ErrFetch, resp.StatusCode())
	}

	body := resp.String()
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("%w: source returned an empty document", ErrFetch)
	}

	return body, nil
}

// Refresher is the optional precondition that flushes the source's cache
// before the content GET.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// HTTPRefresher triggers a CMS cache flush through an authenticated
// endpoint.
type HTTPRefresher struct {
	client   *resty.Client
	endpoint string
	token    string
}

func NewHTTPRefresher(endpoint, token string) (*HTTPRefresher, error) {
	client := resty.New()
	client.SetTimeout(defaultFetchTimeout)
	client.SetRetryCount(0)

	return NewHTTPRefresherWithClient(endpoint, token, client)
}

func NewHTTPRefresherWithClient(endpoint, token string, client *resty.Client) (*HTTPRefresher, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("refresh endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid refresh endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	return &HTTPRefresher{
		client:   client,
		endpoint: trimmedEndpoint,
		token:    strings.TrimSpace(token),
	}, nil
}

func (r *HTTPRefresher) Refresh(ctx context.Context) error {
	req := r.client.R().SetContext(ctx)
	if r.token != "" {
		req.SetAuthToken(r.token)
	}

	resp, err := req.Post(r.endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefresh, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: refresh endpoint returned status %d", ErrAuth, code)
	case code < http.StatusOK || code >= http.StatusMultipleChoices:
		return fmt.Errorf("%w: refresh endpoint returned status %d", ErrRefresh, code)
	}

	return nil
}
