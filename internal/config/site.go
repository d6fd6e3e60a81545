package config

import (
	"maps"
	"strings"
)

// AddressPlaceholder is replaced by the escaped address in detail and
// location URL templates.
const AddressPlaceholder = "{address}"

// DefaultCoordinatePattern matches "@<lat>,<lng>" as found in map URLs.
const DefaultCoordinatePattern = `@(-?\d+\.\d+),(-?\d+\.\d+)`

// SiteConfig is the scraping recipe for one parser.
//
// Field selectors use goquery syntax. A selector may end with "@attr" to
// read an attribute instead of the element text, e.g. "a.title@href".
type SiteConfig struct {
	// URL is the listing seed URL, or the detail/location URL template
	// containing AddressPlaceholder.
	URL string `yaml:"url,omitempty"`

	// PageCount is the number of listing pages to visit.
	PageCount int `yaml:"page_count,omitempty"`

	// ScrollCount is the number of infinite-scroll batches to visit. Sites
	// that load more results on scroll expose them as numbered pages, so it
	// is treated like PageCount.
	ScrollCount int `yaml:"scroll_count,omitempty"`

	// PageParam is the query parameter carrying the page number.
	PageParam string `yaml:"page_param,omitempty"`

	// Card selects one listing on a listing page.
	Card string `yaml:"card,omitempty"`

	// Fields maps an output column to a selector.
	Fields map[string]string `yaml:"fields,omitempty"`

	// Follow selects a link on the search result page that leads to the
	// detail page. Empty means the fields are read from the first page.
	Follow string `yaml:"follow,omitempty"`

	// Pattern is the coordinate regular expression for location parsers.
	Pattern string `yaml:"pattern,omitempty"`

	// AddressColumn is the prior-data column holding the address.
	AddressColumn string `yaml:"address_column,omitempty"`

	// Cookie is sent as the Cookie header.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent to this site.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Pages returns how many listing pages to visit, at least 1.
func (s SiteConfig) Pages() int {
	n := max(s.PageCount, s.ScrollCount)
	if n < 1 {
		return 1
	}
	return n
}

// DefaultSites returns the built-in recipes. Listing and house parsers
// ship without a URL because the search to run is user specific.
func DefaultSites() map[string]SiteConfig {
	return map[string]SiteConfig{
		"avito": {
			ScrollCount: 1,
			PageParam:   "p",
			Card:        "[data-marker=item]",
			Fields: map[string]string{
				"title":   "[itemprop=name]",
				"price":   "[itemprop=price]@content",
				"address": "[data-marker=item-address] span",
				"url":     "a[itemprop=url]@href",
			},
		},
		"youla": {
			ScrollCount: 1,
			PageParam:   "page",
			Card:        "[data-test-component=ProductCard]",
			Fields: map[string]string{
				"title":   "[data-test-block=ProductName]",
				"price":   "[data-test-component=Price]",
				"address": "[data-test-block=ProductLocation]",
				"url":     "a@href",
			},
		},
		"upn": {
			PageCount: 1,
			PageParam: "page",
			Card:      ".object-list .object-item",
			Fields: map[string]string{
				"title":   ".object-title",
				"price":   ".object-price",
				"floors":  ".object-floor",
				"address": ".object-address",
				"url":     "a.object-title@href",
			},
		},
		"domaekb": {
			Follow: ".search-results a@href",
			Fields: map[string]string{
				"build_year":      "[data-field=build_year]",
				"lift_count":      "[data-field=lift_count]",
				"public_area":     "[data-field=public_area]",
				"foundation_type": "[data-field=foundation_type]",
				"house_type":      "[data-field=house_type]",
				"coating_type":    "[data-field=coating_type]",
				"house_area":      "[data-field=house_area]",
				"playground":      "[data-field=playground]",
				"sport_ground":    "[data-field=sport_ground]",
				"land_area":       "[data-field=land_area]",
				"porch_count":     "[data-field=porch_count]",
				"people_count":    "[data-field=people_count]",
			},
		},
		"google_maps": {
			URL:     "https://www.google.com/maps/search/" + AddressPlaceholder,
			Pattern: DefaultCoordinatePattern,
		},
	}
}

// Site returns the recipe for parser name: the built-in recipe overridden
// field by field with the configured one. A recipe without a URL yields a
// *SiteError wrapping ErrNoURL.
func (c *Config) Site(name string) (SiteConfig, error) {
	result := DefaultSites()[name]
	if override, ok := c.Sites[name]; ok {
		result = mergeSite(result, override)
	}

	if strings.TrimSpace(result.URL) == "" {
		return result, &SiteError{Parser: name, Err: ErrNoURL}
	}
	return result, nil
}

// mergeSite overlays non-zero fields of override onto base.
func mergeSite(base, override SiteConfig) SiteConfig {
	result := base
	if override.URL != "" {
		result.URL = override.URL
	}
	if override.PageCount != 0 {
		result.PageCount = override.PageCount
	}
	if override.ScrollCount != 0 {
		result.ScrollCount = override.ScrollCount
	}
	if override.PageParam != "" {
		result.PageParam = override.PageParam
	}
	if override.Card != "" {
		result.Card = override.Card
	}
	if override.Follow != "" {
		result.Follow = override.Follow
	}
	if override.Pattern != "" {
		result.Pattern = override.Pattern
	}
	if override.AddressColumn != "" {
		result.AddressColumn = override.AddressColumn
	}
	if override.Cookie != "" {
		result.Cookie = override.Cookie
	}
	if len(override.Fields) > 0 {
		// Configured fields replace the built-in set entirely.
		result.Fields = maps.Clone(override.Fields)
	}
	if len(override.Headers) > 0 {
		headers := maps.Clone(base.Headers)
		if headers == nil {
			headers = make(map[string]string, len(override.Headers))
		}
		maps.Copy(headers, override.Headers)
		result.Headers = headers
	}
	return result
}
