package parser

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/asn-report-crawler/internal/asn"
)

var reportLinkPattern = regexp.MustCompile(`^/country/([A-Z]{2,})$`)

// ParseDirectoryPage returns a reference for each country report link on the
// listing page, in document order. base resolves relative links. When filter
// is non-empty only the listed country codes are returned.
func ParseDirectoryPage(r io.Reader, base *url.URL, filter []string) ([]asn.PageReference, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parse directory: %w", asn.ErrMalformedPage, err)
	}

	allowed := codeSet(filter)
	refs := []asn.PageReference{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		m := reportLinkPattern.FindStringSubmatch(link.Path)
		if m == nil {
			return
		}
		code := m[1]
		if len(allowed) > 0 {
			if _, ok := allowed[code]; !ok {
				return
			}
		}
		target := link
		if base != nil {
			target = base.ResolveReference(link)
		}
		refs = append(refs, asn.PageReference{CountryCode: code, URL: target.String()})
	})
	return refs, nil
}

func codeSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}
