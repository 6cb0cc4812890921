// Package asn defines the records scraped from the country reports together
// with the capability interfaces the scraping pipeline is assembled from.
package asn
