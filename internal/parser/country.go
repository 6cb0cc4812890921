package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/asn-report-crawler/internal/asn"
)

const (
	asnTableSelector = "table#asns"
	asnPrefix        = "AS"
	cellsPerRow      = 6
)

// Column positions inside a table row. The 3rd and 5th cells carry
// unrelated columns and are never read.
const (
	colIdentifier = 0
	colOwnerName  = 1
	colRoutesV4   = 3
	colRoutesV6   = 5
)

var thousandsSeparators = strings.NewReplacer(",", "", ".", "", "'", "", " ", "", "\u00a0", "")

// ParseCountryPage extracts every AS listed in the country table of a report page.
// A page without the table yields an empty report.
func ParseCountryPage(r io.Reader, countryCode string) (asn.Report, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parse country %s: %w", asn.ErrMalformedPage, countryCode, err)
	}

	report := asn.Report{}
	table := doc.Find(asnTableSelector).First()
	if table.Length() == 0 {
		return report, nil
	}

	var rowErr error
	table.ChildrenFiltered("tbody").ChildrenFiltered("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td")
		if cells.Length() == 0 {
			return true
		}
		rec, err := parseRow(cells, countryCode)
		if err != nil {
			rowErr = fmt.Errorf("%w: country %s row %d: %w", asn.ErrMalformedPage, countryCode, i+1, err)
			return false
		}
		report[rec.Identifier] = rec
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return report, nil
}

func parseRow(cells *goquery.Selection, countryCode string) (asn.Record, error) {
	if cells.Length() != cellsPerRow {
		return asn.Record{}, fmt.Errorf("expected %d cells, got %d", cellsPerRow, cells.Length())
	}

	id, err := parseIdentifier(cells.Eq(colIdentifier).Text())
	if err != nil {
		return asn.Record{}, err
	}
	v4, err := parseCount(cells.Eq(colRoutesV4).Text())
	if err != nil {
		return asn.Record{}, fmt.Errorf("routes v4: %w", err)
	}
	v6, err := parseCount(cells.Eq(colRoutesV6).Text())
	if err != nil {
		return asn.Record{}, fmt.Errorf("routes v6: %w", err)
	}

	return asn.Record{
		Identifier:  id,
		CountryCode: countryCode,
		OwnerName:   cells.Eq(colOwnerName).Text(),
		RoutesV4:    v4,
		RoutesV6:    v6,
	}, nil
}

func parseIdentifier(raw string) (string, error) {
	id := strings.TrimPrefix(strings.TrimSpace(raw), asnPrefix)
	if id == "" || !isDigits(id) {
		return "", fmt.Errorf("invalid identifier %q", raw)
	}
	return id, nil
}

func parseCount(raw string) (int64, error) {
	cleaned := thousandsSeparators.Replace(strings.TrimSpace(raw))
	if cleaned == "" || !isDigits(cleaned) {
		return 0, fmt.Errorf("invalid count %q", raw)
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", raw, err)
	}
	return n, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
