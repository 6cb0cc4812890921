package asn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportMergeUnion(t *testing.T) {
	t.Parallel()

	dst := Report{"1": {Identifier: "1", CountryCode: "US"}}
	collisions := dst.Merge(Report{"2": {Identifier: "2", CountryCode: "DE"}})

	assert.Empty(t, collisions)
	assert.Len(t, dst, 2)
	assert.Equal(t, "DE", dst["2"].CountryCode)
}

func TestReportMergeLastWriteWins(t *testing.T) {
	t.Parallel()

	dst := Report{"1": {Identifier: "1", CountryCode: "US", OwnerName: "first"}}
	collisions := dst.Merge(Report{"1": {Identifier: "1", CountryCode: "DE", OwnerName: "second"}})

	assert.Equal(t, []string{"1"}, collisions)
	require.Len(t, dst, 1)
	assert.Equal(t, "second", dst["1"].OwnerName)
	assert.Equal(t, "DE", dst["1"].CountryCode)
}

func TestFetcherFunc(t *testing.T) {
	t.Parallel()

	var got string
	f := FetcherFunc(func(_ context.Context, url string) ([]byte, error) {
		got = url
		return []byte("ok"), nil
	})

	body, err := f.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "https://example.com", got)
}
