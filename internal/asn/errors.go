package asn

import "errors"

// Error kinds surfaced by the scraping pipeline. Callers match them with errors.Is.
var (
	// ErrFetch marks a page that could not be retrieved or returned a non-2xx status.
	ErrFetch = errors.New("fetch failed")
	// ErrMalformedPage marks markup that does not have the expected structure.
	ErrMalformedPage = errors.New("malformed page")
	// ErrFilesystem marks a failure creating, writing or removing report files.
	ErrFilesystem = errors.New("filesystem failure")
)
