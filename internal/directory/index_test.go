package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/asn-report-crawler/internal/asn"
)

func staticFetcher(pages map[string]string) asn.Fetcher {
	return asn.FetcherFunc(func(_ context.Context, url string) ([]byte, error) {
		body, ok := pages[url]
		if !ok {
			return nil, errors.Join(asn.ErrFetch, errors.New("not found: "+url))
		}
		return []byte(body), nil
	})
}

func TestIndexReferences(t *testing.T) {
	t.Parallel()

	fetcher := staticFetcher(map[string]string{
		"https://example.test/report/world": `<a href="/country/US">US</a><a href="/country/UK">UK</a><a href="/country/DE">DE</a>`,
	})
	idx, err := New("https://example.test/report/world", fetcher, zap.NewNop())
	require.NoError(t, err)

	refs, err := idx.References(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []asn.PageReference{
		{CountryCode: "US", URL: "https://example.test/country/US"},
		{CountryCode: "UK", URL: "https://example.test/country/UK"},
		{CountryCode: "DE", URL: "https://example.test/country/DE"},
	}, refs)

	refs, err = idx.References(context.Background(), []string{"DE"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "DE", refs[0].CountryCode)
}

func TestIndexReferencesFetchError(t *testing.T) {
	t.Parallel()

	idx, err := New("https://example.test/report/world", staticFetcher(nil), nil)
	require.NoError(t, err)

	_, err = idx.References(context.Background(), nil)
	assert.ErrorIs(t, err, asn.ErrFetch)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New("/report/world", staticFetcher(nil), nil)
	assert.Error(t, err)

	_, err = New("https://example.test/report/world", nil, nil)
	assert.Error(t, err)

	idx, err := New("", staticFetcher(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultListingURL, idx.listingURL.String())
}
