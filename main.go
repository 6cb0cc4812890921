// Command asnreport scrapes the bgp.he.net country reports into one JSON
// document keyed by AS number.
package main

import "github.com/JakeFAU/asn-report-crawler/cmd"

func main() {
	cmd.Execute()
}
