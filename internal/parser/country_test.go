package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/asn-report-crawler/internal/asn"
)

const blankPage = `<html><head></head><body></body></html>`

func TestParseCountryPageNoTableReturnsEmpty(t *testing.T) {
	t.Parallel()

	report, err := ParseCountryPage(strings.NewReader(blankPage), "US")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Empty(t, report)
}

func TestParseCountryPageSingleRow(t *testing.T) {
	t.Parallel()

	page := `<table id="asns"><tbody><tr>` +
		`<td>AS123</td>` +
		`<td>Some Company</td>` +
		`<td>1</td>` +
		`<td>2</td>` +
		`<td>3</td>` +
		`<td>4</td>` +
		`</tr></tbody></table>`

	report, err := ParseCountryPage(strings.NewReader(page), "US")
	require.NoError(t, err)
	assert.Equal(t, asn.Report{
		"123": {Identifier: "123", CountryCode: "US", OwnerName: "Some Company", RoutesV4: 2, RoutesV6: 4},
	}, report)
}

func TestParseCountryPageStripsThousandsSeparators(t *testing.T) {
	t.Parallel()

	page := `<html><body><table id="asns">
<thead><tr><th>ASN</th><th>Name</th><th>Adjacencies v4</th><th>Routes v4</th><th>Adjacencies v6</th><th>Routes v6</th></tr></thead>
<tbody>
<tr><td><a href="/AS3320">AS3320</a></td><td>Deutsche Telekom AG</td><td>1,212</td><td>13,547</td><td>402</td><td>268</td></tr>
<tr><td>AS680</td><td>Verein zur Foerderung eines Deutschen Forschungsnetzes e.V.</td><td>9</td><td>1 024</td><td>7</td><td>1&nbsp;003</td></tr>
</tbody></table></body></html>`

	report, err := ParseCountryPage(strings.NewReader(page), "DE")
	require.NoError(t, err)
	require.Len(t, report, 2)

	assert.Equal(t, int64(13547), report["3320"].RoutesV4)
	assert.Equal(t, int64(268), report["3320"].RoutesV6)
	assert.Equal(t, "Deutsche Telekom AG", report["3320"].OwnerName)
	assert.Equal(t, int64(1024), report["680"].RoutesV4)
	assert.Equal(t, int64(1003), report["680"].RoutesV6)
	assert.Equal(t, "DE", report["680"].CountryCode)
}

func TestParseCountryPageKeepsEmptyOwnerName(t *testing.T) {
	t.Parallel()

	page := `<table id="asns"><tbody><tr><td>AS7</td><td></td><td>0</td><td>0</td><td>0</td><td>0</td></tr></tbody></table>`

	report, err := ParseCountryPage(strings.NewReader(page), "GB")
	require.NoError(t, err)
	require.Contains(t, report, "7")
	assert.Equal(t, "", report["7"].OwnerName)
}

func TestParseCountryPageIgnoresOtherTables(t *testing.T) {
	t.Parallel()

	page := `<table id="prefixes"><tbody><tr><td>AS1</td><td>x</td><td>1</td><td>1</td><td>1</td><td>1</td></tr></tbody></table>`

	report, err := ParseCountryPage(strings.NewReader(page), "US")
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestParseCountryPageMalformedRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		row  string
	}{
		{name: "too few cells", row: `<td>AS1</td><td>x</td><td>1</td><td>2</td><td>3</td>`},
		{name: "too many cells", row: `<td>AS1</td><td>x</td><td>1</td><td>2</td><td>3</td><td>4</td><td>5</td>`},
		{name: "non numeric identifier", row: `<td>ASX1</td><td>x</td><td>1</td><td>2</td><td>3</td><td>4</td>`},
		{name: "non numeric routes", row: `<td>AS1</td><td>x</td><td>1</td><td>two</td><td>3</td><td>4</td>`},
		{name: "empty routes", row: `<td>AS1</td><td>x</td><td>1</td><td>2</td><td>3</td><td> </td>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			page := `<table id="asns"><tbody><tr>` + tt.row + `</tr></tbody></table>`
			report, err := ParseCountryPage(strings.NewReader(page), "US")
			require.ErrorIs(t, err, asn.ErrMalformedPage)
			assert.Nil(t, report)
		})
	}
}

func TestParseCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"42", 42},
		{" 13,547 ", 13547},
		{"1.234.567", 1234567},
		{"9'999", 9999},
	}
	for _, tt := range tests {
		got, err := parseCount(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseCount("-1")
	assert.Error(t, err)
}
