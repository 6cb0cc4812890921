// Package directory discovers the country report pages linked from the
// world listing.
package directory

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/asn-report-crawler/internal/asn"
	"github.com/JakeFAU/asn-report-crawler/internal/parser"
)

// DefaultListingURL is the world report listing every country page.
const DefaultListingURL = "https://bgp.he.net/report/world"

// Index resolves country codes to report page references.
type Index struct {
	listingURL *url.URL
	fetcher    asn.Fetcher
	logger     *zap.Logger
}

// New creates an Index reading the listing at listingURL.
func New(listingURL string, fetcher asn.Fetcher, logger *zap.Logger) (*Index, error) {
	if listingURL == "" {
		listingURL = DefaultListingURL
	}
	u, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url %q: %w", listingURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("listing url %q must be absolute", listingURL)
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{listingURL: u, fetcher: fetcher, logger: logger}, nil
}

// References fetches the listing and returns the country pages in document
// order, restricted to filter when it is non-empty.
func (i *Index) References(ctx context.Context, filter []string) ([]asn.PageReference, error) {
	body, err := i.fetcher.Fetch(ctx, i.listingURL.String())
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	refs, err := parser.ParseDirectoryPage(bytes.NewReader(body), i.listingURL, filter)
	if err != nil {
		return nil, err
	}
	i.logger.Info("resolved country reports",
		zap.String("listing", i.listingURL.String()),
		zap.Strings("filter", filter),
		zap.Int("references", len(refs)),
	)
	return refs, nil
}
