// Package config provides flatparser's configuration: output defaults,
// worker sizing, transform recipes, HTTP fetch settings and per-site
// scraping recipes. Values come from defaults, an optional YAML file and
// FLATPARSER_* environment overrides, in that order.
package config
