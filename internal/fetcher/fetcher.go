// Package fetcher performs the single HTTP GET the upstream catalog
// requires: a browser-TLS-impersonated request through a rotating proxy,
// with status-code-specific retry handling.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tlsclient "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"golang.org/x/time/rate"
)

// browserHeaders mirrors a stock Chrome navigation request; the upstream
// rejects requests that don't look like a real browser tab.
var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
}

func newRequest(ctx context.Context, reqURL string) (*fhttp.Request, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	return req, nil
}

const baseURL = "https://www.hugedomains.com/domain_search.cfm"

// Outcome classifies a single fetch attempt's result.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTerminal // 302: token expired / partition exhausted, not retried
	OutcomeTransient
)

// Params is one page request: the fixed partition/ordering plus pagination.
type Params struct {
	Length    int
	Ordering  string
	Start     int
	NextToken string // empty means "no continuation token yet"
}

func (p Params) values() url.Values {
	v := url.Values{}
	v.Set("maxrows", "500")
	v.Set("start", strconv.Itoa(p.Start))
	v.Set("anchor", "all")
	v.Set("length_start", strconv.Itoa(p.Length))
	v.Set("length_end", strconv.Itoa(p.Length))
	v.Set("highlightbg", "1")
	v.Set("catsearch", "0")
	v.Set("sort", p.Ordering)
	if p.NextToken != "" {
		v.Set("n", p.NextToken)
	}
	return v
}

// Fetcher issues one impersonated GET per call. It is safe for concurrent
// use: every Fetch builds its own request against a shared client.
type Fetcher struct {
	client     tlsclient.HttpClient
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	limiter    *rate.Limiter
}

// New builds a Fetcher that impersonates the Chrome 120 TLS profile and
// routes through proxyURL (a full http(s)://user:pass@host:port URL). An
// empty proxyURL disables proxying (useful in tests). rps caps the
// sustained request rate through the proxy, complementing the flat
// retryDelay between retries; rps <= 0 disables the limiter.
func New(proxyURL string, timeout time.Duration, maxRetries int, retryDelay time.Duration, rps float64) (*Fetcher, error) {
	opts := []tlsclient.HttpClientOption{
		tlsclient.WithClientProfile(profiles.Chrome_120),
		tlsclient.WithTimeoutSeconds(int(timeout.Seconds())),
		tlsclient.WithNotFollowRedirects(),
	}
	if proxyURL != "" {
		opts = append(opts, tlsclient.WithProxyUrl(proxyURL))
	}
	client, err := tlsclient.NewHttpClient(tlsclient.NewNoopLogger(), opts...)
	if err != nil {
		return nil, fmt.Errorf("fetcher: build tls client: %w", err)
	}

	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	return &Fetcher{
		client:     client,
		timeout:    timeout,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		limiter:    limiter,
	}, nil
}

// Fetch performs one page request, making up to maxRetries attempts in
// total on transient failures with a flat retryDelay between them: no exponential
// escalation, since the proxy pool provides diversity rather than the
// client backing off. It aborts early if isRunning reports false, so a
// cancelled harvest doesn't burn through retries.
func (f *Fetcher) Fetch(ctx context.Context, p Params, isRunning func() bool) (body string, outcome Outcome, err error) {
	reqURL := baseURL + "?" + p.values().Encode()

	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if isRunning != nil && !isRunning() {
			return "", OutcomeTransient, context.Canceled
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return "", OutcomeTransient, err
			}
		}

		body, outcome, err = f.attempt(ctx, reqURL)
		switch outcome {
		case OutcomeOK:
			return body, OutcomeOK, nil
		case OutcomeTerminal:
			return "", OutcomeTerminal, nil
		}

		select {
		case <-ctx.Done():
			return "", OutcomeTransient, ctx.Err()
		case <-time.After(f.retryDelay):
		}
	}
	return "", OutcomeTransient, fmt.Errorf("fetcher: exhausted %d attempts: %w", f.maxRetries, err)
}

func (f *Fetcher) attempt(ctx context.Context, reqURL string) (string, Outcome, error) {
	req, err := newRequest(ctx, reqURL)
	if err != nil {
		return "", OutcomeTransient, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", OutcomeTransient, err
	}
	defer resp.Body.Close()

	switch ClassifyStatus(resp.StatusCode) {
	case OutcomeOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", OutcomeTransient, err
		}
		return string(data), OutcomeOK, nil
	case OutcomeTerminal:
		return "", OutcomeTerminal, nil
	default:
		// 403/429 blocked, or any other non-2xx: transient, retried by the caller.
		return "", OutcomeTransient, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

// ClassifyStatus maps an HTTP status code to an outcome: 200 delivers the
// body, 302 is terminal (token expired / partition exhausted), everything
// else is transient and retried.
func ClassifyStatus(code int) Outcome {
	switch code {
	case 200:
		return OutcomeOK
	case 302:
		return OutcomeTerminal
	default:
		return OutcomeTransient
	}
}
