package asn

import (
	"context"
	"time"
)

// Record describes one autonomous system listed on a country report.
type Record struct {
	Identifier  string `json:"-"`
	CountryCode string `json:"Country"`
	OwnerName   string `json:"Name"`
	RoutesV4    int64  `json:"Routes v4"`
	RoutesV6    int64  `json:"Routes v6"`
}

// PageReference points at a single country report page.
type PageReference struct {
	CountryCode string
	URL         string
}

// Report maps an AS identifier to its record.
type Report map[string]Record

// Merge copies every record from other into r. Existing identifiers are
// overwritten. It returns the identifiers that were already present.
func (r Report) Merge(other Report) []string {
	var collisions []string
	for id, rec := range other {
		if _, exists := r[id]; exists {
			collisions = append(collisions, id)
		}
		r[id] = rec
	}
	return collisions
}

// Fetcher retrieves the raw body behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Hasher produces a content digest for a written report.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
