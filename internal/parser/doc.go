// Package parser extracts AS records and country report links from the
// bgp.he.net HTML pages using goquery.
package parser
