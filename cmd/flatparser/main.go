// Package main provides the entry point for the flatparser CLI.
//
// flatparser harvests real-estate listings and house/location details from
// external sites into CSV files and post-processes those files.
//
// Usage:
//
//	flatparser scrape avito flats.csv
//	flatparser house domaekb flats.csv houses.csv
//	flatparser location google_maps houses.csv
//	flatparser binarize houses.csv
//	flatparser clean flats.csv
//
// See --help for all available options.
package main

func main() {
	Execute()
}
