package sites

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/flatparser/internal/config"
	"github.com/nao1215/flatparser/internal/table"
	"github.com/nao1215/flatparser/internal/task"
)

// Columns added by Location.
const (
	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
)

// Location adds coordinates to a prior row.
type Location struct {
	name    string
	site    config.SiteConfig
	pattern *regexp.Regexp
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewLocation creates a location scraper. The coordinate pattern must have
// two capture groups: latitude then longitude.
func NewLocation(name string, site config.SiteConfig, fetcher *Fetcher, opts ...Option) (*Location, error) {
	o := buildOptions(opts)

	expr := site.Pattern
	if expr == "" {
		expr = config.DefaultCoordinatePattern
	}
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid pattern: %w", name, err)
	}
	if pattern.NumSubexp() < 2 {
		return nil, fmt.Errorf("%s: pattern %q needs two capture groups", name, expr)
	}

	return &Location{
		name:    name,
		site:    site,
		pattern: pattern,
		fetcher: fetcher,
		logger:  o.logger,
	}, nil
}

// Work looks up the row's address and returns the row with latitude and
// longitude added. The final URL is searched before the body because map
// sites redirect to a URL carrying the coordinates.
func (l *Location) Work(ctx context.Context, prev table.Row) ([]table.Row, error) {
	column := l.site.AddressColumn
	if column == "" {
		column = task.DefaultAddressColumn
	}
	address := strings.TrimSpace(prev[column])
	if address == "" {
		return nil, ErrNoAddress
	}

	target, err := expandTemplate(l.site.URL, address)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid url template: %w", l.name, err)
	}

	page, err := l.fetcher.Get(ctx, target, Request{
		Cookie:  l.site.Cookie,
		Headers: l.site.Headers,
	})
	if err != nil {
		return nil, err
	}

	lat, lng, ok := l.coordinates(page.URL)
	if !ok {
		lat, lng, ok = l.coordinates(string(page.Body))
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoCoordinates, address)
	}

	out := prev.Clone()
	out[ColumnLatitude] = lat
	out[ColumnLongitude] = lng

	l.logger.Debug("location scraped", "parser", l.name, "address", address)
	return []table.Row{out}, nil
}

// coordinates returns the first valid latitude/longitude pair in s.
func (l *Location) coordinates(s string) (string, string, bool) {
	for _, m := range l.pattern.FindAllStringSubmatch(s, -1) {
		lat, err := strconv.ParseFloat(m[1], 64)
		if err != nil || lat < -90 || lat > 90 {
			continue
		}
		lng, err := strconv.ParseFloat(m[2], 64)
		if err != nil || lng < -180 || lng > 180 {
			continue
		}
		return m[1], m[2], true
	}
	return "", "", false
}
