// Package sites holds the scraping collaborators executed by tasks.
//
// A Fetcher performs rate-limited HTTP GETs with retries, optionally through
// a SOCKS5 or HTTP proxy. Listing, Detail and Location turn a site recipe
// from config.SiteConfig into task.Work functions: Listing discovers
// listings from seed pages, Detail enriches an address row with house
// attributes and Location adds coordinates to a prior row. Lookup maps a
// parser name to its kind and builds the task batch for it.
package sites
