package sites

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/flatparser/internal/config"
	"github.com/nao1215/flatparser/internal/table"
)

// Seed columns produced by Listing.Seeds.
const (
	SeedURL  = "url"
	SeedPage = "page"
)

// Option configures a scraper.
type Option func(*scraperOptions)

type scraperOptions struct {
	logger *slog.Logger
}

// WithLogger sets a custom logger for a scraper.
func WithLogger(logger *slog.Logger) Option {
	return func(o *scraperOptions) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) *scraperOptions {
	o := &scraperOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Listing discovers listings from numbered result pages.
type Listing struct {
	name    string
	site    config.SiteConfig
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewListing creates a listing scraper for the named site.
func NewListing(name string, site config.SiteConfig, fetcher *Fetcher, opts ...Option) *Listing {
	o := buildOptions(opts)
	return &Listing{
		name:    name,
		site:    site,
		fetcher: fetcher,
		logger:  o.logger,
	}
}

// Seeds returns one seed row per page to visit. Page 1 is the configured
// URL unchanged; later pages set the page parameter.
func (l *Listing) Seeds() ([]table.Row, error) {
	if l.site.URL == "" {
		return nil, &config.SiteError{Parser: l.name, Err: config.ErrNoURL}
	}
	base, err := url.Parse(l.site.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid url: %w", l.name, err)
	}

	param := l.site.PageParam
	if param == "" {
		param = "page"
	}

	pages := l.site.Pages()
	seeds := make([]table.Row, 0, pages)
	for n := 1; n <= pages; n++ {
		u := *base
		if n > 1 {
			q := u.Query()
			q.Set(param, strconv.Itoa(n))
			u.RawQuery = q.Encode()
		}
		seeds = append(seeds, table.Row{
			SeedURL:  u.String(),
			SeedPage: strconv.Itoa(n),
		})
	}
	return seeds, nil
}

// Work fetches the page named by the seed row and returns one row per card.
func (l *Listing) Work(ctx context.Context, seed table.Row) ([]table.Row, error) {
	page, err := l.fetcher.Get(ctx, seed[SeedURL], Request{
		Cookie:  l.site.Cookie,
		Headers: l.site.Headers,
	})
	if err != nil {
		return nil, err
	}
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}

	var rows []table.Row
	doc.Find(l.site.Card).Each(func(_ int, card *goquery.Selection) {
		row := extractFields(card, l.site.Fields, doc.Url)
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s page %s", ErrNoListings, l.name, seed[SeedPage])
	}

	l.logger.Debug("listing page scraped",
		"parser", l.name,
		"page", seed[SeedPage],
		"listings", len(rows),
	)
	return rows, nil
}
