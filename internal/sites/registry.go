package sites

import (
	"fmt"
	"slices"

	"github.com/nao1215/flatparser/internal/config"
	"github.com/nao1215/flatparser/internal/pipeline"
	"github.com/nao1215/flatparser/internal/table"
	"github.com/nao1215/flatparser/internal/task"
)

// Parser is a registered scraping target.
type Parser struct {
	// Name is the CLI name and the config.Sites key.
	Name string
	// Category selects the task factory, the worker divisor and the
	// default output path.
	Category pipeline.Category
}

var registry = []Parser{
	{Name: "avito", Category: pipeline.CategoryFlat},
	{Name: "youla", Category: pipeline.CategoryFlat},
	{Name: "upn", Category: pipeline.CategoryFlat},
	{Name: "domaekb", Category: pipeline.CategoryHouse},
	{Name: "google_maps", Category: pipeline.CategoryLocation},
}

// Lookup returns the parser registered under name, or an error wrapping
// config.ErrUnknownParser.
func Lookup(name string) (Parser, error) {
	for _, p := range registry {
		if p.Name == name {
			return p, nil
		}
	}
	return Parser{}, fmt.Errorf("%s: %w", name, config.ErrUnknownParser)
}

// Names returns the parser names of a category in registration order.
// An empty category returns every name.
func Names(category pipeline.Category) []string {
	names := make([]string, 0, len(registry))
	for _, p := range registry {
		if category == "" || p.Category == category {
			names = append(names, p.Name)
		}
	}
	return slices.Clip(names)
}

// NeedsInput reports whether the parser works on prior-data rows.
func (p Parser) NeedsInput() bool {
	return p.Category != pipeline.CategoryFlat
}

// Batch builds the task batch for one run. Listing parsers ignore input
// and create one task per page; house parsers create one task per address
// row; location parsers one task per prior row.
func (p Parser) Batch(site config.SiteConfig, fetcher *Fetcher, input []table.Row, opts ...Option) (*task.Batch, error) {
	switch p.Category {
	case pipeline.CategoryFlat:
		listing := NewListing(p.Name, site, fetcher, opts...)
		seeds, err := listing.Seeds()
		if err != nil {
			return nil, err
		}
		return task.NewBatch(p.Name, task.FromSeeds(p.Name, seeds, listing.Work)), nil

	case pipeline.CategoryHouse:
		detail := NewDetail(p.Name, site, fetcher, opts...)
		return task.NewBatch(p.Name, task.FromAddresses(input, detail.addressColumn(), detail.Work)), nil

	case pipeline.CategoryLocation:
		location, err := NewLocation(p.Name, site, fetcher, opts...)
		if err != nil {
			return nil, err
		}
		return task.NewBatch(p.Name, task.WithPrevData(p.Name, input, location.Work)), nil

	default:
		return nil, fmt.Errorf("%s: %w", p.Name, config.ErrUnknownParser)
	}
}
