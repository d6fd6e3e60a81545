// Package task defines the unit of scraping work dispatched by the
// orchestrator.
//
// A Task wraps a Work delegate supplied by a site scraper together with the
// prior-data row it was created from. Its status moves strictly forward:
//
//	pending -> running -> succeeded | failed | cancelled
//
// Terminal states never change again, and Run on a task that is not pending
// returns ErrNotPending without side effects. A cancelled task never exposes
// a result, even if its delegate finishes later.
//
// The factories FromAddresses and WithPrevData build exactly one task per
// input row, in input order, each holding a private copy of its row.
package task
