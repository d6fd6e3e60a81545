package sites

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/flatparser/internal/config"
	"github.com/nao1215/flatparser/internal/table"
)

const listingHTML = `<html><body>
<div class="card"><a class="title" href="/flat/1">Flat one</a><span class="price">3.500.000</span></div>
<div class="card"><a class="title" href="/flat/2">  Flat
  two </a></div>
<div class="card"><span class="other">ignored</span></div>
</body></html>`

func TestSplitSelector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spec     string
		wantCSS  string
		wantAttr string
	}{
		{spec: ".price", wantCSS: ".price"},
		{spec: "a.title@href", wantCSS: "a.title", wantAttr: "href"},
		{spec: "@href", wantCSS: "", wantAttr: "href"},
		{spec: " meta[itemprop=price] @ content ", wantCSS: "meta[itemprop=price]", wantAttr: "content"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			t.Parallel()
			css, attr := splitSelector(tt.spec)
			if css != tt.wantCSS || attr != tt.wantAttr {
				t.Errorf("splitSelector(%q) = (%q, %q), want (%q, %q)", tt.spec, css, attr, tt.wantCSS, tt.wantAttr)
			}
		})
	}
}

func TestExpandTemplate(t *testing.T) {
	t.Parallel()

	got, err := expandTemplate("https://maps.example/search/{address}", "Lenina 1, Ekb")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://maps.example/search/Lenina%201%2C%20Ekb" {
		t.Errorf("unexpected url %q", got)
	}

	got, err = expandTemplate("https://houses.example/find?city=ekb", "Lenina 1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://houses.example/find?city=ekb&q=Lenina+1" {
		t.Errorf("unexpected url %q", got)
	}
}

func TestListing(t *testing.T) {
	t.Parallel()

	t.Run("seeds one row per page", func(t *testing.T) {
		t.Parallel()

		l := NewListing("upn", config.SiteConfig{
			URL:       "https://upn.example/flats?rooms=2",
			PageCount: 3,
			PageParam: "page",
		}, nil, WithLogger(discardLogger()))

		seeds, err := l.Seeds()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []table.Row{
			{SeedURL: "https://upn.example/flats?rooms=2", SeedPage: "1"},
			{SeedURL: "https://upn.example/flats?page=2&rooms=2", SeedPage: "2"},
			{SeedURL: "https://upn.example/flats?page=3&rooms=2", SeedPage: "3"},
		}
		if diff := cmp.Diff(want, seeds); diff != "" {
			t.Errorf("seeds mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing url is a site error", func(t *testing.T) {
		t.Parallel()

		_, err := NewListing("avito", config.SiteConfig{}, nil).Seeds()
		if !errors.Is(err, config.ErrNoURL) {
			t.Fatalf("expected ErrNoURL, got %v", err)
		}
		var siteErr *config.SiteError
		if !errors.As(err, &siteErr) || siteErr.Parser != "avito" {
			t.Errorf("expected site error for avito, got %v", err)
		}
	})

	t.Run("extracts one row per card", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, listingHTML)
		}))
		defer srv.Close()

		l := NewListing("upn", config.SiteConfig{
			URL:  srv.URL,
			Card: ".card",
			Fields: map[string]string{
				"title": "a.title",
				"url":   "a.title@href",
				"price": ".price",
			},
		}, newTestFetcher(t), WithLogger(discardLogger()))

		rows, err := l.Work(context.Background(), table.Row{SeedURL: srv.URL + "/list", SeedPage: "1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []table.Row{
			{"title": "Flat one", "url": srv.URL + "/flat/1", "price": "3.500.000"},
			{"title": "Flat two", "url": srv.URL + "/flat/2"},
		}
		if diff := cmp.Diff(want, rows); diff != "" {
			t.Errorf("rows mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("page without cards fails", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "<html><body>captcha</body></html>")
		}))
		defer srv.Close()

		l := NewListing("avito", config.SiteConfig{URL: srv.URL, Card: ".card"}, newTestFetcher(t), WithLogger(discardLogger()))
		_, err := l.Work(context.Background(), table.Row{SeedURL: srv.URL, SeedPage: "1"})
		if !errors.Is(err, ErrNoListings) {
			t.Errorf("expected ErrNoListings, got %v", err)
		}
	})
}

func TestDetail(t *testing.T) {
	t.Parallel()

	newServer := func(t *testing.T) *httptest.Server {
		t.Helper()
		mux := http.NewServeMux()
		mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("q") == "Lenina 1" {
				_, _ = io.WriteString(w, `<div class="results"><a href="/house/1">Lenina 1</a></div>`)
				return
			}
			_, _ = io.WriteString(w, `<div class="results"></div>`)
		})
		mux.HandleFunc("/house/1", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `<table>
				<tr><td data-field="build_year">1975</td></tr>
				<tr><td data-field="lift_count">2</td></tr>
			</table>`)
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)
		return srv
	}

	site := func(base string) config.SiteConfig {
		return config.SiteConfig{
			URL:    base + "/search",
			Follow: ".results a",
			Fields: map[string]string{
				"build_year": "[data-field=build_year]",
				"lift_count": "[data-field=lift_count]",
			},
		}
	}

	t.Run("follows the result and merges the row", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t)
		d := NewDetail("domaekb", site(srv.URL), newTestFetcher(t), WithLogger(discardLogger()))

		prev := table.Row{"address": "Lenina 1", "price": "100"}
		rows, err := d.Work(context.Background(), prev)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []table.Row{{"address": "Lenina 1", "price": "100", "build_year": "1975", "lift_count": "2"}}
		if diff := cmp.Diff(want, rows); diff != "" {
			t.Errorf("rows mismatch (-want +got):\n%s", diff)
		}
		if _, ok := prev["build_year"]; ok {
			t.Error("prior row must not be mutated")
		}
	})

	t.Run("no search result fails", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t)
		d := NewDetail("domaekb", site(srv.URL), newTestFetcher(t), WithLogger(discardLogger()))
		_, err := d.Work(context.Background(), table.Row{"address": "Nowhere 9"})
		if !errors.Is(err, ErrNoDetails) {
			t.Errorf("expected ErrNoDetails, got %v", err)
		}
	})

	t.Run("row without address fails", func(t *testing.T) {
		t.Parallel()

		d := NewDetail("domaekb", config.SiteConfig{URL: "http://unused"}, nil, WithLogger(discardLogger()))
		_, err := d.Work(context.Background(), table.Row{"price": "1"})
		if !errors.Is(err, ErrNoAddress) {
			t.Errorf("expected ErrNoAddress, got %v", err)
		}
	})
}

func TestLocation(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/maps/search/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "Lenina") {
			http.Redirect(w, r, "/maps/place/Lenina/@56.8380,60.5975,17z", http.StatusFound)
			return
		}
		if strings.Contains(r.URL.Path, "Mira") {
			_, _ = io.WriteString(w, `<script>center="@95.0,10.0" real="@56.84,60.65"</script>`)
			return
		}
		_, _ = io.WriteString(w, "<html>nothing</html>")
	})
	mux.HandleFunc("/maps/place/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>place</html>")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	site := config.SiteConfig{URL: srv.URL + "/maps/search/" + config.AddressPlaceholder}
	loc, err := NewLocation("google_maps", site, newTestFetcher(t), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewLocation: %v", err)
	}

	t.Run("reads coordinates from the redirect url", func(t *testing.T) {
		t.Parallel()

		rows, err := loc.Work(context.Background(), table.Row{"address": "Lenina 1", "floor": "3"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []table.Row{{"address": "Lenina 1", "floor": "3", ColumnLatitude: "56.8380", ColumnLongitude: "60.5975"}}
		if diff := cmp.Diff(want, rows); diff != "" {
			t.Errorf("rows mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("skips out of range matches in the body", func(t *testing.T) {
		t.Parallel()

		rows, err := loc.Work(context.Background(), table.Row{"address": "Mira 5"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rows[0][ColumnLatitude] != "56.84" || rows[0][ColumnLongitude] != "60.65" {
			t.Errorf("unexpected coordinates %v", rows[0])
		}
	})

	t.Run("no coordinates fails", func(t *testing.T) {
		t.Parallel()

		_, err := loc.Work(context.Background(), table.Row{"address": "Unknown"})
		if !errors.Is(err, ErrNoCoordinates) {
			t.Errorf("expected ErrNoCoordinates, got %v", err)
		}
	})
}

func TestNewLocationPattern(t *testing.T) {
	t.Parallel()

	if _, err := NewLocation("google_maps", config.SiteConfig{Pattern: `@(\d+`}, nil); err == nil {
		t.Error("expected error for invalid pattern")
	}
	if _, err := NewLocation("google_maps", config.SiteConfig{Pattern: `@(\d+\.\d+)`}, nil); err == nil {
		t.Error("expected error for a pattern with one group")
	}
}
