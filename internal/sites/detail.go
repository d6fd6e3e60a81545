package sites

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/nao1215/flatparser/internal/config"
	"github.com/nao1215/flatparser/internal/table"
	"github.com/nao1215/flatparser/internal/task"
)

// Detail enriches an address row with house attributes.
type Detail struct {
	name    string
	site    config.SiteConfig
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewDetail creates a detail scraper for the named site.
func NewDetail(name string, site config.SiteConfig, fetcher *Fetcher, opts ...Option) *Detail {
	o := buildOptions(opts)
	return &Detail{
		name:    name,
		site:    site,
		fetcher: fetcher,
		logger:  o.logger,
	}
}

// addressColumn returns the configured address column.
func (d *Detail) addressColumn() string {
	if d.site.AddressColumn != "" {
		return d.site.AddressColumn
	}
	return task.DefaultAddressColumn
}

// Work searches the site for the row's address, optionally follows the
// first result link and returns the row merged with the scraped fields.
func (d *Detail) Work(ctx context.Context, prev table.Row) ([]table.Row, error) {
	address := strings.TrimSpace(prev[d.addressColumn()])
	if address == "" {
		return nil, ErrNoAddress
	}

	target, err := expandTemplate(d.site.URL, address)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid url template: %w", d.name, err)
	}

	req := Request{Cookie: d.site.Cookie, Headers: d.site.Headers}
	page, err := d.fetcher.Get(ctx, target, req)
	if err != nil {
		return nil, err
	}
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}

	if d.site.Follow != "" {
		css, attr := splitSelector(d.site.Follow)
		if attr == "" {
			attr = "href"
		}
		link := extractField(doc.Selection, css+"@"+attr, doc.Url)
		if link == "" {
			return nil, fmt.Errorf("%w: no search result for %q", ErrNoDetails, address)
		}
		if page, err = d.fetcher.Get(ctx, link, req); err != nil {
			return nil, err
		}
		if doc, err = page.Document(); err != nil {
			return nil, err
		}
	}

	fields := extractFields(doc.Selection, d.site.Fields, doc.Url)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoDetails, address)
	}

	out := prev.Clone()
	maps.Copy(out, fields)

	d.logger.Debug("house details scraped", "parser", d.name, "address", address, "fields", len(fields))
	return []table.Row{out}, nil
}
