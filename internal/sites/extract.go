package sites

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/flatparser/internal/config"
	"github.com/nao1215/flatparser/internal/table"
)

// splitSelector splits "css@attr" into its parts. The attribute is empty
// when the element text is wanted.
func splitSelector(spec string) (css, attr string) {
	i := strings.LastIndex(spec, "@")
	if i < 0 {
		return strings.TrimSpace(spec), ""
	}
	return strings.TrimSpace(spec[:i]), strings.TrimSpace(spec[i+1:])
}

// extractField reads one value below sel. An empty css part targets sel
// itself. href and src attributes are resolved against base.
func extractField(sel *goquery.Selection, spec string, base *url.URL) string {
	css, attr := splitSelector(spec)
	target := sel
	if css != "" {
		target = sel.Find(css).First()
	}
	if target.Length() == 0 {
		return ""
	}

	if attr == "" {
		return collapseSpace(target.Text())
	}

	v, ok := target.Attr(attr)
	if !ok {
		return ""
	}
	v = strings.TrimSpace(v)
	if (attr == "href" || attr == "src") && base != nil && v != "" {
		if ref, err := url.Parse(v); err == nil {
			return base.ResolveReference(ref).String()
		}
	}
	return v
}

// extractFields reads every configured field. Fields without a match are
// left out of the row.
func extractFields(sel *goquery.Selection, fields map[string]string, base *url.URL) table.Row {
	row := make(table.Row, len(fields))
	for column, spec := range fields {
		if v := extractField(sel, spec, base); v != "" {
			row[column] = v
		}
	}
	return row
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// expandTemplate substitutes the escaped address into tmpl. Templates
// without a placeholder get the address as the q query parameter.
func expandTemplate(tmpl, address string) (string, error) {
	escaped := strings.ReplaceAll(url.QueryEscape(address), "+", "%20")
	if strings.Contains(tmpl, config.AddressPlaceholder) {
		return strings.ReplaceAll(tmpl, config.AddressPlaceholder, escaped), nil
	}

	u, err := url.Parse(tmpl)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("q", address)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
