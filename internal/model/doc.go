// Package model defines the run records shared by the run ledger and the
// report writers. A RunReport describes one invocation of a parser or data
// modifier; its TaskOutcomes describe every task of a scraping run.
package model
