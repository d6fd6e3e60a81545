package sites

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

// Page is a fetched document.
type Page struct {
	// URL is the final URL after redirects.
	URL string
	// StatusCode is the HTTP status code.
	StatusCode int
	// Body is the raw response body.
	Body []byte
}

// Document parses the body as HTML.
func (p *Page) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p.URL, err)
	}
	if u, err := url.Parse(p.URL); err == nil {
		doc.Url = u
	}
	return doc, nil
}

// Request carries per-site request settings.
type Request struct {
	Cookie  string
	Headers map[string]string
}

// Fetcher performs HTTP GETs shared by every task of a run.
// It is safe for concurrent use.
type Fetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

type fetcherOptions struct {
	timeout    time.Duration
	retries    int
	retryWait  time.Duration
	rate       float64
	burst      int
	userAgent  string
	proxy      string
	logger     *slog.Logger
	httpClient *http.Client
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*fetcherOptions)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) FetcherOption {
	return func(o *fetcherOptions) {
		o.timeout = d
	}
}

// WithRetries sets the number of retries on network errors, 429 and 5xx.
func WithRetries(n int) FetcherOption {
	return func(o *fetcherOptions) {
		o.retries = n
	}
}

// WithRetryWait sets the initial backoff between retries.
func WithRetryWait(d time.Duration) FetcherOption {
	return func(o *fetcherOptions) {
		o.retryWait = d
	}
}

// WithRate limits requests to r per second with the given burst.
// A non-positive r disables limiting.
func WithRate(r float64, burst int) FetcherOption {
	return func(o *fetcherOptions) {
		o.rate = r
		o.burst = burst
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(o *fetcherOptions) {
		o.userAgent = ua
	}
}

// WithProxy routes requests through a proxy URL. socks5:// and bare
// host:port use a SOCKS5 dialer; http:// and https:// use an HTTP proxy.
func WithProxy(proxyURL string) FetcherOption {
	return func(o *fetcherOptions) {
		o.proxy = proxyURL
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(o *fetcherOptions) {
		o.httpClient = c
	}
}

// WithFetcherLogger sets a custom logger for the fetcher.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(o *fetcherOptions) {
		o.logger = logger
	}
}

// NewFetcher creates a Fetcher. It fails only on an invalid proxy.
func NewFetcher(opts ...FetcherOption) (*Fetcher, error) {
	o := &fetcherOptions{
		timeout:   30 * time.Second,
		retryWait: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	var client *resty.Client
	if o.httpClient != nil {
		client = resty.NewWithClient(o.httpClient)
	} else {
		client = resty.New()
	}

	client.
		SetTimeout(o.timeout).
		SetRetryCount(o.retries).
		SetRetryWaitTime(o.retryWait).
		SetRetryMaxWaitTime(10 * o.retryWait).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := r.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})
	if o.userAgent != "" {
		client.SetHeader("User-Agent", o.userAgent)
	}

	if o.proxy != "" {
		if err := configureProxy(client, o.proxy); err != nil {
			return nil, err
		}
	}

	f := &Fetcher{
		client: client,
		logger: o.logger,
	}
	if o.rate > 0 {
		burst := o.burst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(o.rate), burst)
		client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return f.limiter.Wait(r.Context())
		})
	}

	return f, nil
}

// configureProxy installs a SOCKS5 dialer or an HTTP proxy on client.
func configureProxy(client *resty.Client, raw string) error {
	if !strings.Contains(raw, "://") {
		raw = "socks5://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidProxy, u.Redacted())
	}

	switch u.Scheme {
	case "http", "https":
		client.SetProxy(u.String())
		return nil
	case "socks5", "socks5h":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}

	var auth *proxy.Auth
	if u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: password}
	}
	dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
	if err != nil {
		return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	transport := &http.Transport{
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	client.SetTransport(transport)
	return nil
}

// Get fetches rawURL. Responses outside 2xx return ErrStatus after retries
// are exhausted.
func (f *Fetcher) Get(ctx context.Context, rawURL string, req Request) (*Page, error) {
	r := f.client.R().SetContext(ctx)
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if req.Cookie != "" {
		r.SetHeader("Cookie", req.Cookie)
	}

	f.logger.Debug("fetching page", "url", rawURL)

	resp, err := r.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}

	final := rawURL
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		final = resp.RawResponse.Request.URL.String()
	}

	if resp.IsError() || resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %s returned %d", ErrStatus, rawURL, resp.StatusCode())
	}

	return &Page{
		URL:        final,
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}
